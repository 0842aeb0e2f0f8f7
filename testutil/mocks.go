package testutil

import (
	"context"
	"crypto/sha256"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm"
)

// =============================================================================
// 🧮 确定性嵌入器
// =============================================================================

// HashEmbedder 由文本词集的哈希构造嵌入向量。
// 完全确定：相同文本恒得相同向量；共享词越多的文本余弦相似度越高。
type HashEmbedder struct {
	Dim   int
	Calls atomic.Int64
}

// NewHashEmbedder 创建维度为 dim 的哈希嵌入器（dim<=0 时取 64）。
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &HashEmbedder{Dim: dim}
}

// Embed 实现 llm.Embedder。
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	h.Calls.Add(1)
	vec := make([]float64, h.Dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(strings.Trim(word, ".,:;?!\"'()")))
		idx := (int(sum[0])<<8 | int(sum[1])) % h.Dim
		vec[idx] += 1
	}
	return vec, nil
}

// EmbedBatch 实现 llm.Embedder。
func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// =============================================================================
// 💬 脚本化生成器
// =============================================================================

// ScriptedGenerator 按脚本顺序返回回复；脚本耗尽后返回 Fallback。
// Script 为空且 Fn 非空时按 Fn(prompt) 计算回复。
type ScriptedGenerator struct {
	mu       sync.Mutex
	Script   []string
	Fallback string
	Fn       func(prompt string) string
	Err      error
	Prompts  []string
}

// Generate 实现 llm.Generator。
func (g *ScriptedGenerator) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Prompts = append(g.Prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	if len(g.Script) > 0 {
		next := g.Script[0]
		g.Script = g.Script[1:]
		return next, nil
	}
	if g.Fn != nil {
		return g.Fn(prompt), nil
	}
	return g.Fallback, nil
}

// GenerateStream 实现 llm.Generator，整段回复作为单个片段发送。
func (g *ScriptedGenerator) GenerateStream(ctx context.Context, prompt string, opts llm.GenerateOptions) (<-chan string, error) {
	text, err := g.Generate(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	ch := make(chan string, 1)
	ch <- text
	close(ch)
	return ch, nil
}

// CallCount 返回已收到的生成调用数。
func (g *ScriptedGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Prompts)
}

// =============================================================================
// 🎯 重排器
// =============================================================================

// IdentityReranker 保持输入顺序，分数线性递减。
type IdentityReranker struct{}

// Rerank 实现 llm.Reranker。
func (IdentityReranker) Rerank(_ context.Context, _ string, candidates []string) ([]llm.RerankItem, error) {
	items := make([]llm.RerankItem, len(candidates))
	for i := range candidates {
		items[i] = llm.RerankItem{Index: i, Score: 1 - float64(i)/float64(len(candidates)+1)}
	}
	return items, nil
}

// ReverseReranker 反转输入顺序，用于验证重排确实生效。
type ReverseReranker struct{}

// Rerank 实现 llm.Reranker。
func (ReverseReranker) Rerank(_ context.Context, _ string, candidates []string) ([]llm.RerankItem, error) {
	items := make([]llm.RerankItem, len(candidates))
	for i := range candidates {
		idx := len(candidates) - 1 - i
		items[i] = llm.RerankItem{Index: idx, Score: 1 - float64(i)/float64(len(candidates)+1)}
	}
	return items, nil
}

// BrokenReranker 返回非法排列（丢弃候选），用于验证降级路径。
type BrokenReranker struct{}

// Rerank 实现 llm.Reranker。
func (BrokenReranker) Rerank(_ context.Context, _ string, candidates []string) ([]llm.RerankItem, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	return []llm.RerankItem{{Index: 0, Score: 1}}, nil
}

// FailingReranker 总是失败。
type FailingReranker struct{ Err error }

// Rerank 实现 llm.Reranker。
func (f FailingReranker) Rerank(context.Context, string, []string) ([]llm.RerankItem, error) {
	return nil, f.Err
}

// =============================================================================
// 📚 引用查证
// =============================================================================

// StaticResolver 按预置表解析引用；未登记的引用视为不存在。
// Err 非空时所有查证失败。
type StaticResolver struct {
	Known map[string]llm.Resolution
	Err   error
	Calls atomic.Int64
}

// Resolve 实现 llm.CitationResolver。
func (r *StaticResolver) Resolve(_ context.Context, citation string) (llm.Resolution, error) {
	r.Calls.Add(1)
	if r.Err != nil {
		return llm.Resolution{}, r.Err
	}
	res, ok := r.Known[citation]
	if !ok {
		return llm.Resolution{Exists: false}, nil
	}
	return res, nil
}
