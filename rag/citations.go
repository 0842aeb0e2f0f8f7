package rag

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/internal/metrics"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 📚 引用验证
// =============================================================================

// CitationVerifier 将幸存块中提取的引用逐条对照权威查找服务验证。
// 查找失败的引用标记为未验证、置信度 0，从不默默省略——
// 调用方必须能区分“查过但失败”与“根本没查到”。
type CitationVerifier struct {
	cfg       config.CitationConfig
	resolver  llm.CitationResolver
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewCitationVerifier 创建引用验证器。
func NewCitationVerifier(cfg config.CitationConfig, resolver llm.CitationResolver, collector *metrics.Collector, logger *zap.Logger) *CitationVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CitationVerifier{
		cfg:       cfg,
		resolver:  resolver,
		collector: collector,
		logger:    logger.With(zap.String("component", "citation_verifier")),
	}
}

// Verify 验证全部引用出现。每个 (块, 引用文本) 对恰好产生一条
// CitationInfo；同一引用文本跨块只向查找服务查一次，结果回填到
// 每个出现。结果按 (块 ID, 引用文本) 排序，保证确定性。
func (v *CitationVerifier) Verify(ctx context.Context, chunks []types.ScoredChunk) []types.CitationInfo {
	type occurrence struct {
		chunkID    string
		documentID string
		text       string
	}

	var occurrences []occurrence
	seen := make(map[[2]string]bool)
	recognized := make(map[string]bool)
	for _, sc := range chunks {
		for _, cit := range sc.Chunk.Citations {
			key := [2]string{sc.Chunk.ID, cit}
			if seen[key] {
				continue
			}
			seen[key] = true
			occurrences = append(occurrences, occurrence{
				chunkID:    sc.Chunk.ID,
				documentID: sc.Chunk.DocumentID,
				text:       cit,
			})
			// 不匹配任何已知格式的文本不值得查：有效的
			// “格式未识别”结果，不是错误
			if _, ok := recognized[cit]; !ok {
				recognized[cit] = RecognizedCitation(cit)
			}
		}
	}
	if len(occurrences) == 0 {
		return nil
	}

	resolved := make(map[string]*llm.Resolution, len(recognized))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if v.cfg.Concurrency > 0 {
		g.SetLimit(v.cfg.Concurrency)
	}
	for text, ok := range recognized {
		if !ok {
			continue
		}
		g.Go(func() error {
			res := v.resolveText(gctx, text)
			mu.Lock()
			resolved[text] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	infos := make([]types.CitationInfo, 0, len(occurrences))
	for _, occ := range occurrences {
		info := types.CitationInfo{
			ID:         uuid.NewString(),
			Text:       occ.text,
			ChunkID:    occ.chunkID,
			DocumentID: occ.documentID,
			Status:     types.CitationUnknown,
			Recognized: recognized[occ.text],
		}
		if res := resolved[occ.text]; res != nil && res.Exists {
			info.Verified = true
			info.Status = res.Status
			info.PrecedentialValue = res.PrecedentialValue
			info.Confidence = statusConfidence(res.Status)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(a, b int) bool {
		if infos[a].ChunkID != infos[b].ChunkID {
			return infos[a].ChunkID < infos[b].ChunkID
		}
		return infos[a].Text < infos[b].Text
	})
	return infos
}

// resolveText 对一条引用文本执行一次权威查找。
// 查找失败返回 nil，让所有出现保持未验证。
func (v *CitationVerifier) resolveText(ctx context.Context, text string) *llm.Resolution {
	callCtx := ctx
	if v.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, v.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := v.resolver.Resolve(callCtx, text)
	v.collector.RecordProviderCall("citation_lookup", callStatus(err), time.Since(start))
	if err != nil {
		v.collector.RecordDegradation("citation_verification")
		v.logger.Warn("citation lookup failed, marking unverified",
			zap.String("citation", text), zap.Error(err))
		return nil
	}
	return &res
}

// statusConfidence 按 Shepardization 状态给出引用置信度
func statusConfidence(status types.CitationStatus) float64 {
	switch status {
	case types.CitationGoodLaw:
		return 1.0
	case types.CitationQuestioned:
		return 0.6
	case types.CitationOverruled:
		return 0.2
	default:
		return 0.5
	}
}
