// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 检索管道指标收集器
type Collector struct {
	// 检索指标
	retrievalsTotal   *prometheus.CounterVec
	retrievalDuration *prometheus.HistogramVec
	stageDegradations *prometheus.CounterVec
	fusionCandidates  prometheus.Histogram

	// 外部调用指标
	providerCallsTotal   *prometheus.CounterVec
	providerCallDuration *prometheus.HistogramVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 语料库指标
	documentsIngested prometheus.Counter
	chunksIndexed     prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器
// reg 为 nil 时使用默认注册表
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 检索指标
	c.retrievalsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Total number of retrieval requests",
		},
		[]string{"status"},
	)

	c.retrievalDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_stage_duration_seconds",
			Help:      "Duration of each retrieval pipeline stage",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	c.stageDegradations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_degradations_total",
			Help:      "Stages that degraded instead of failing the query",
		},
		[]string{"stage"},
	)

	c.fusionCandidates = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fusion_candidates",
			Help:      "Number of candidates entering rank fusion",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// 外部调用指标
	c.providerCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Total number of external capability calls",
		},
		[]string{"capability", "status"},
	)

	c.providerCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "External capability call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"capability"},
	)

	// 缓存指标
	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// 语料库指标
	c.documentsIngested = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_ingested_total",
			Help:      "Total number of documents ingested",
		},
	)

	c.chunksIndexed = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Total number of chunks indexed",
		},
	)

	return c
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordRetrieval 记录一次检索请求
func (c *Collector) RecordRetrieval(status string) {
	if c == nil {
		return
	}
	c.retrievalsTotal.WithLabelValues(status).Inc()
}

// RecordStageDuration 记录管道阶段耗时
func (c *Collector) RecordStageDuration(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.retrievalDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordDegradation 记录阶段降级
func (c *Collector) RecordDegradation(stage string) {
	if c == nil {
		return
	}
	c.stageDegradations.WithLabelValues(stage).Inc()
}

// RecordFusionCandidates 记录进入融合的候选数
func (c *Collector) RecordFusionCandidates(n int) {
	if c == nil {
		return
	}
	c.fusionCandidates.Observe(float64(n))
}

// RecordProviderCall 记录外部调用
func (c *Collector) RecordProviderCall(capability, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.providerCallsTotal.WithLabelValues(capability, status).Inc()
	c.providerCallDuration.WithLabelValues(capability).Observe(d.Seconds())
}

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cache string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cache string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordIngestion 记录文档入库
func (c *Collector) RecordIngestion(chunks int) {
	if c == nil {
		return
	}
	c.documentsIngested.Inc()
	c.chunksIndexed.Add(float64(chunks))
}
