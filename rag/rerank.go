package rag

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/internal/metrics"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 🎯 重排序
// =============================================================================

// Reranker 对融合候选做第二轮查询感知评分。
// 只重排不增删：提供方返回的排列无效或调用失败时，
// 原样保留融合顺序并标注降级，从不因重排失败中止查询。
type Reranker struct {
	cfg       config.RerankConfig
	provider  llm.Reranker
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewReranker 创建重排序器。provider 为 nil 时 Rerank 恒为恒等。
func NewReranker(cfg config.RerankConfig, provider llm.Reranker, collector *metrics.Collector, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{
		cfg:       cfg,
		provider:  provider,
		collector: collector,
		logger:    logger.With(zap.String("component", "reranker")),
	}
}

// Rerank 返回重排后的候选和是否降级。
// 候选集合（成员与数量）保证与输入一致。
func (r *Reranker) Rerank(ctx context.Context, query string, chunks []types.ScoredChunk) ([]types.ScoredChunk, bool) {
	if !r.cfg.Enabled || r.provider == nil || len(chunks) < 2 {
		return chunks, false
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Chunk.Content
	}

	start := time.Now()
	items, err := r.provider.Rerank(ctx, query, texts)
	r.collector.RecordProviderCall("rerank", callStatus(err), time.Since(start))
	if err != nil {
		r.collector.RecordDegradation("rerank")
		r.logger.Warn("rerank degraded, keeping fused order", zap.Error(err))
		return chunks, true
	}
	if !isPermutation(items, len(chunks)) {
		r.collector.RecordDegradation("rerank")
		r.logger.Warn("rerank returned invalid permutation, keeping fused order",
			zap.Int("candidates", len(chunks)), zap.Int("items", len(items)))
		return chunks, true
	}

	out := make([]types.ScoredChunk, 0, len(chunks))
	for _, item := range items {
		c := chunks[item.Index]
		c.RerankScore = item.Score
		c.FinalScore = item.Score
		out = append(out, c)
	}
	return out, false
}

// isPermutation 校验返回的下标恰为 0..n-1 的一个排列
func isPermutation(items []llm.RerankItem, n int) bool {
	if len(items) != n {
		return false
	}
	seen := make([]bool, n)
	for _, item := range items {
		if item.Index < 0 || item.Index >= n || seen[item.Index] {
			return false
		}
		seen[item.Index] = true
	}
	return true
}

func callStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
