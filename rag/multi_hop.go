package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 🔁 多跳检索控制器
// =============================================================================
// 复杂查询（长查询、多实践领域或显式高级模式）最多执行 max_hops 轮
// 检索。每轮从上一轮结果推导恰好一个后续查询；推导不出则提前终止。
// 所有跳的证据做并集而非替换，早期证据不丢失。
// 跳与跳严格串行：第 n+1 跳的查询依赖第 n 跳的结果。
// =============================================================================

// Retriever 多跳控制器所需的检索契约。
type Retriever interface {
	Retrieve(ctx context.Context, qc types.QueryContext) (*types.RetrievalResult, error)
}

// MultiHopResult 多跳检索的汇总输出。
type MultiHopResult struct {
	Hops       []*types.RetrievalResult `json:"hops"`
	Answer     string                   `json:"answer"`
	Confidence float64                  `json:"confidence"`
	Incomplete bool                     `json:"incomplete,omitempty"`
}

// MultiHopController 有界多跳检索循环。
type MultiHopController struct {
	cfg       config.MultiHopConfig
	retriever Retriever
	generator llm.Generator
	logger    *zap.Logger
}

// NewMultiHopController 创建多跳控制器。
func NewMultiHopController(cfg config.MultiHopConfig, retriever Retriever, generator llm.Generator, logger *zap.Logger) *MultiHopController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiHopController{
		cfg:       cfg,
		retriever: retriever,
		generator: generator,
		logger:    logger.With(zap.String("component", "multi_hop")),
	}
}

// 实践领域词表，用于复杂度判定
var practiceAreas = []string{
	"criminal", "contract", "tort", "employment", "immigration",
	"bankruptcy", "intellectual property", "patent", "copyright",
	"trademark", "tax", "antitrust", "securities", "environmental",
	"family", "estate", "real estate", "constitutional", "corporate",
	"labor", "privacy",
}

// IsComplex 判定查询是否需要多跳：词数达到阈值、涉及多个实践领域，
// 或调用方显式开启高级模式。
func (m *MultiHopController) IsComplex(query string, advanced bool) bool {
	if advanced {
		return true
	}
	if len(strings.Fields(query)) >= m.cfg.ComplexQueryWords {
		return true
	}
	lower := strings.ToLower(query)
	areas := 0
	for _, area := range practiceAreas {
		if strings.Contains(lower, area) {
			areas++
		}
	}
	return areas >= m.cfg.ComplexAreaCount
}

// Run 执行最多 max_hops 轮检索并合成答案。
// 无论后续查询生成行为如何，跳数上界保证终止。
func (m *MultiHopController) Run(ctx context.Context, query string) (*MultiHopResult, error) {
	out := &MultiHopResult{}
	current := query

	for hop := 0; hop < m.cfg.MaxHops; hop++ {
		result, err := m.retriever.Retrieve(ctx, types.QueryContext{
			Query:      current,
			MaxResults: m.cfg.ResultsPerHop,
		})
		if err != nil {
			if len(out.Hops) == 0 {
				return nil, err
			}
			// 后续跳失败：保留已有证据，标记不完整
			m.logger.Warn("hop retrieval failed, keeping prior evidence",
				zap.Int("hop", hop), zap.Error(err))
			out.Incomplete = true
			break
		}
		out.Hops = append(out.Hops, result)

		followUp := m.deriveFollowUp(ctx, query, result)
		if followUp == "" {
			break
		}
		if hop == m.cfg.MaxHops-1 {
			// 跳数预算用尽但仍有待解子问题
			out.Incomplete = true
			break
		}
		current = followUp
	}

	union := unionEvidence(out.Hops)
	out.Answer = m.synthesize(ctx, query, union)
	out.Confidence = meanHopConfidence(out.Hops)
	return out, nil
}

// deriveFollowUp 从一跳的结果推导最重要的未回答子问题。
// 生成失败或回答 NONE 时返回空串（提前终止信号）。
func (m *MultiHopController) deriveFollowUp(ctx context.Context, original string, result *types.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString("Original legal question: ")
	sb.WriteString(original)
	sb.WriteString("\n\nEvidence retrieved so far:\n")
	for i, sc := range result.Chunks {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&sb, "- %s\n", snippet(sc.Chunk.Content, 200))
	}
	sb.WriteString("\nState the single most salient unanswered sub-question, or NONE if the evidence is sufficient. Reply with the sub-question only.")

	reply, err := m.generator.Generate(ctx, sb.String(), llm.GenerateOptions{MaxTokens: 128})
	if err != nil {
		m.logger.Warn("follow-up derivation failed, terminating hops", zap.Error(err))
		return ""
	}
	reply = strings.TrimSpace(reply)
	if reply == "" || strings.EqualFold(reply, "NONE") {
		return ""
	}
	return reply
}

// synthesize 在全部跳的证据并集上合成一个答案。
// 生成失败时返回占位说明而不是错误——部分证据优于无答案。
func (m *MultiHopController) synthesize(ctx context.Context, query string, evidence []types.ScoredChunk) string {
	if len(evidence) == 0 {
		return "No supporting evidence was retrieved for this question."
	}

	var sb strings.Builder
	sb.WriteString("Answer the legal question using only the evidence below.\n\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\n\nEvidence:\n")
	for _, sc := range evidence {
		fmt.Fprintf(&sb, "[%s] %s\n", sc.Chunk.DocumentID, snippet(sc.Chunk.Content, 300))
	}

	answer, err := m.generator.Generate(ctx, sb.String(), llm.GenerateOptions{MaxTokens: 1024})
	if err != nil {
		m.logger.Warn("synthesis generation failed", zap.Error(err))
		return "Synthesis unavailable; see retrieved evidence in hops."
	}
	return strings.TrimSpace(answer)
}

// unionEvidence 合并各跳的块，按块 ID 去重，保持首跳优先的出现顺序。
func unionEvidence(hops []*types.RetrievalResult) []types.ScoredChunk {
	seen := make(map[string]bool)
	var out []types.ScoredChunk
	for _, hop := range hops {
		for _, sc := range hop.Chunks {
			if seen[sc.Chunk.ID] {
				continue
			}
			seen[sc.Chunk.ID] = true
			out = append(out, sc)
		}
	}
	return out
}

func meanHopConfidence(hops []*types.RetrievalResult) float64 {
	if len(hops) == 0 {
		return 0
	}
	sum := 0.0
	for _, h := range hops {
		sum += h.Confidence
	}
	return sum / float64(len(hops))
}

func snippet(text string, max int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
