package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/internal/metrics"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm"
)

// CachingEmbedder 在外部嵌入能力前加一层记忆化
// 命中时不发起外部调用；未命中时经 singleflight 合并并发请求
type CachingEmbedder struct {
	inner   llm.Embedder
	store   VectorStore
	group   singleflight.Group
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewCachingEmbedder 创建缓存嵌入器
func NewCachingEmbedder(inner llm.Embedder, store VectorStore, collector *metrics.Collector, logger *zap.Logger) *CachingEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryStore(0)
	}
	return &CachingEmbedder{
		inner:   inner,
		store:   store,
		metrics: collector,
		logger:  logger.With(zap.String("component", "embedding_cache")),
	}
}

// cacheKey 对文本取 SHA-256，避免超长键
func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Embed 实现 llm.Embedder.Embed
func (e *CachingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cacheKey(text)

	if vec, err := e.store.Get(ctx, key); err == nil {
		e.metrics.RecordCacheHit("embedding")
		return vec, nil
	} else if err != ErrCacheMiss {
		// 后端故障按未命中处理，继续外部调用
		e.logger.Warn("cache backend get failed", zap.Error(err))
	}
	e.metrics.RecordCacheMiss("embedding")

	v, err, _ := e.group.Do(key, func() (any, error) {
		vec, err := e.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if putErr := e.store.Put(ctx, key, vec); putErr != nil {
			e.logger.Warn("cache backend put failed", zap.Error(putErr))
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float64), nil
}

// EmbedBatch 实现 llm.Embedder.EmbedBatch
// 只为未命中的文本调用外部批量接口
func (e *CachingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	missing := make([]string, 0, len(texts))
	missingIdx := make([]int, 0, len(texts))

	for i, text := range texts {
		if vec, err := e.store.Get(ctx, cacheKey(text)); err == nil {
			e.metrics.RecordCacheHit("embedding")
			out[i] = vec
			continue
		}
		e.metrics.RecordCacheMiss("embedding")
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := e.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range fetched {
		out[missingIdx[j]] = vec
		if putErr := e.store.Put(ctx, cacheKey(missing[j]), vec); putErr != nil {
			e.logger.Warn("cache backend put failed", zap.Error(putErr))
		}
	}
	return out, nil
}

// Size 返回缓存条目数
func (e *CachingEmbedder) Size() int {
	return e.store.Len()
}
