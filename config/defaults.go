// =============================================================================
// 📦 BEAR-AI 检索核心默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Chunking:   DefaultChunkingConfig(),
		Retrieval:  DefaultRetrievalConfig(),
		Rerank:     DefaultRerankConfig(),
		Citation:   DefaultCitationConfig(),
		Confidence: DefaultConfidenceConfig(),
		Reasoning:  DefaultReasoningConfig(),
		MultiHop:   DefaultMultiHopConfig(),
		Cache:      DefaultCacheConfig(),
		Database:   DefaultDatabaseConfig(),
		Provider:   DefaultProviderConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultChunkingConfig 返回默认分块配置
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		MaxChunkTokens: 512,
		OverlapTokens:  64,
		MinChunkTokens: 24,
		TokenizerModel: "",
		MaxAge:         365 * 24 * time.Hour,
	}
}

// DefaultRetrievalConfig 返回默认混合检索配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		SparseWeight:    0.4,
		DenseWeight:     0.4,
		GraphWeight:     0.2,
		PerStrategyK:    20,
		MaxResults:      10,
		BM25K1:          1.5,
		BM25B:           0.75,
		GraphSeeds:      5,
		GraphMaxHops:    2,
		EnableExpansion: true,
	}
}

// DefaultRerankConfig 返回默认重排序配置
func DefaultRerankConfig() RerankConfig {
	return RerankConfig{
		Enabled: true,
		Timeout: 15 * time.Second,
	}
}

// DefaultCitationConfig 返回默认引用验证配置
func DefaultCitationConfig() CitationConfig {
	return CitationConfig{
		Concurrency: 4,
		Timeout:     10 * time.Second,
	}
}

// DefaultConfidenceConfig 返回默认置信度评分配置
func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		SimilarityWeight: 0.5,
		CitationWeight:   0.3,
		TemporalWeight:   0.2,
		HighPenalty:      0.15,
		MediumPenalty:    0.08,
		LowPenalty:       0.03,
	}
}

// DefaultReasoningConfig 返回默认推理循环配置
func DefaultReasoningConfig() ReasoningConfig {
	return ReasoningConfig{
		MaxCorrectionRounds: 2,
		Timeout:             2 * time.Minute,
		SupportThreshold:    0.3,
	}
}

// DefaultMultiHopConfig 返回默认多跳配置
func DefaultMultiHopConfig() MultiHopConfig {
	return MultiHopConfig{
		MaxHops:           3,
		ResultsPerHop:     5,
		ComplexQueryWords: 18,
		ComplexAreaCount:  2,
	}
}

// DefaultCacheConfig 返回默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Backend:  "memory",
		Capacity: 4096,
		Addr:     "localhost:6379",
		DB:       0,
		TTL:      24 * time.Hour,
	}
}

// DefaultDatabaseConfig 返回默认语料库存储配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "memory",
		Host:            "localhost",
		Port:            5432,
		User:            "bearai",
		Name:            "bearai",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
}

// DefaultProviderConfig 返回默认外部调用配置
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		BaseURL:      "https://api.openai.com/v1",
		ChatModel:    "gpt-4o-mini",
		EmbedModel:   "text-embedding-3-small",
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		RateLimit:    0,
		RateBurst:    1,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "bearai-retrieval",
		SampleRate:   1.0,
	}
}
