// =============================================================================
// 📦 BEAR-AI 检索核心配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("BEARAI").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是检索核心的完整配置结构
type Config struct {
	// Server 服务器配置（仅 cmd 使用）
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Chunking 分块与富化配置
	Chunking ChunkingConfig `yaml:"chunking" env:"CHUNKING"`

	// Retrieval 混合检索配置
	Retrieval RetrievalConfig `yaml:"retrieval" env:"RETRIEVAL"`

	// Rerank 重排序配置
	Rerank RerankConfig `yaml:"rerank" env:"RERANK"`

	// Citation 引用验证配置
	Citation CitationConfig `yaml:"citation" env:"CITATION"`

	// Confidence 置信度评分配置
	Confidence ConfidenceConfig `yaml:"confidence" env:"CONFIDENCE"`

	// Reasoning 推理循环配置
	Reasoning ReasoningConfig `yaml:"reasoning" env:"REASONING"`

	// MultiHop 多跳检索配置
	MultiHop MultiHopConfig `yaml:"multi_hop" env:"MULTI_HOP"`

	// Cache 嵌入缓存配置
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Database 语料库存储配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Provider 外部能力调用配置
	Provider ProviderConfig `yaml:"provider" env:"PROVIDER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口（健康检查 + 指标）
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// ChunkingConfig 分块配置
type ChunkingConfig struct {
	// 块大小（tokens）
	MaxChunkTokens int `yaml:"max_chunk_tokens" env:"MAX_CHUNK_TOKENS"`
	// 重叠大小（tokens）
	OverlapTokens int `yaml:"overlap_tokens" env:"OVERLAP_TOKENS"`
	// 最小块大小（tokens），低于此值的尾块并入前块
	MinChunkTokens int `yaml:"min_chunk_tokens" env:"MIN_CHUNK_TOKENS"`
	// tiktoken 模型名（空则使用估算分词器）
	TokenizerModel string `yaml:"tokenizer_model" env:"TOKENIZER_MODEL"`
	// 时间相关性视野（默认一年）
	MaxAge time.Duration `yaml:"max_age" env:"MAX_AGE"`
}

// RetrievalConfig 混合检索配置
type RetrievalConfig struct {
	// 融合权重（加权倒数排名）
	SparseWeight float64 `yaml:"sparse_weight" env:"SPARSE_WEIGHT"`
	DenseWeight  float64 `yaml:"dense_weight" env:"DENSE_WEIGHT"`
	GraphWeight  float64 `yaml:"graph_weight" env:"GRAPH_WEIGHT"`

	// 每个策略的候选数
	PerStrategyK int `yaml:"per_strategy_k" env:"PER_STRATEGY_K"`
	// 管道级最大结果数上限
	MaxResults int `yaml:"max_results" env:"MAX_RESULTS"`

	// BM25 参数
	BM25K1 float64 `yaml:"bm25_k1" env:"BM25_K1"`
	BM25B  float64 `yaml:"bm25_b" env:"BM25_B"`

	// 图检索参数
	GraphSeeds   int `yaml:"graph_seeds" env:"GRAPH_SEEDS"`
	GraphMaxHops int `yaml:"graph_max_hops" env:"GRAPH_MAX_HOPS"`

	// 查询扩展
	EnableExpansion bool `yaml:"enable_expansion" env:"ENABLE_EXPANSION"`
}

// RerankConfig 重排序配置
type RerankConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 单次调用超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// CitationConfig 引用验证配置
type CitationConfig struct {
	// 并发查证数
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
	// 单次查证超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// ConfidenceConfig 置信度评分配置
type ConfidenceConfig struct {
	// 信号权重
	SimilarityWeight float64 `yaml:"similarity_weight" env:"SIMILARITY_WEIGHT"`
	CitationWeight   float64 `yaml:"citation_weight" env:"CITATION_WEIGHT"`
	TemporalWeight   float64 `yaml:"temporal_weight" env:"TEMPORAL_WEIGHT"`

	// 矛盾惩罚（按严重程度）
	HighPenalty   float64 `yaml:"high_penalty" env:"HIGH_PENALTY"`
	MediumPenalty float64 `yaml:"medium_penalty" env:"MEDIUM_PENALTY"`
	LowPenalty    float64 `yaml:"low_penalty" env:"LOW_PENALTY"`
}

// ReasoningConfig 推理循环配置
type ReasoningConfig struct {
	// 最大纠正轮数
	MaxCorrectionRounds int `yaml:"max_correction_rounds" env:"MAX_CORRECTION_ROUNDS"`
	// 总超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 幻觉检查的词重叠阈值
	SupportThreshold float64 `yaml:"support_threshold" env:"SUPPORT_THRESHOLD"`
}

// MultiHopConfig 多跳检索配置
type MultiHopConfig struct {
	// 最大跳数
	MaxHops int `yaml:"max_hops" env:"MAX_HOPS"`
	// 每跳结果数
	ResultsPerHop int `yaml:"results_per_hop" env:"RESULTS_PER_HOP"`
	// 复杂查询判定：词数阈值
	ComplexQueryWords int `yaml:"complex_query_words" env:"COMPLEX_QUERY_WORDS"`
	// 复杂查询判定：实践领域数阈值
	ComplexAreaCount int `yaml:"complex_area_count" env:"COMPLEX_AREA_COUNT"`
}

// CacheConfig 嵌入缓存配置
type CacheConfig struct {
	// 后端: memory, redis
	Backend string `yaml:"backend" env:"BACKEND"`
	// 内存缓存容量（条目数）
	Capacity int `yaml:"capacity" env:"CAPACITY"`
	// Redis 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// Redis 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// Redis 数据库编号
	DB int `yaml:"db" env:"DB"`
	// Redis 条目过期时间
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// DatabaseConfig 语料库存储配置
type DatabaseConfig struct {
	// 驱动类型: memory, sqlite, postgres, mysql
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 时为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// ProviderConfig 外部能力调用配置（嵌入/生成/重排/引用查证）
type ProviderConfig struct {
	// OpenAI 兼容接口地址（serve 命令使用）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// API 密钥
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 生成模型名
	ChatModel string `yaml:"chat_model" env:"CHAT_MODEL"`
	// 嵌入模型名
	EmbedModel string `yaml:"embed_model" env:"EMBED_MODEL"`
	// 重排模型名（空则禁用重排能力）
	RerankModel string `yaml:"rerank_model" env:"RERANK_MODEL"`
	// 引用查证服务地址（空则引用一律标记未知）
	ResolverURL string `yaml:"resolver_url" env:"RESOLVER_URL"`
	// 单次调用超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 初始退避延迟
	InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
	// 最大退避延迟
	MaxDelay time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	// 每秒请求数限制（0 表示不限）
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	// 突发请求数
	RateBurst int `yaml:"rate_burst" env:"RATE_BURST"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "BEARAI",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Chunking.MaxChunkTokens <= 0 {
		errs = append(errs, "max_chunk_tokens must be positive")
	}
	if c.Chunking.OverlapTokens < 0 || c.Chunking.OverlapTokens >= c.Chunking.MaxChunkTokens {
		errs = append(errs, "overlap_tokens must be in [0, max_chunk_tokens)")
	}
	if w := c.Retrieval.SparseWeight + c.Retrieval.DenseWeight + c.Retrieval.GraphWeight; w <= 0 {
		errs = append(errs, "fusion weights must sum to a positive value")
	}
	if c.Retrieval.MaxResults <= 0 {
		errs = append(errs, "max_results must be positive")
	}
	if c.MultiHop.MaxHops <= 0 {
		errs = append(errs, "max_hops must be positive")
	}
	if c.Reasoning.MaxCorrectionRounds < 0 {
		errs = append(errs, "max_correction_rounds cannot be negative")
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, "cache backend must be memory or redis")
	}
	switch c.Database.Driver {
	case "memory", "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, "database driver must be memory, sqlite, postgres or mysql")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
