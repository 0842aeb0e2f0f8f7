package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	bearai "github.com/KingOfTheAce2/BEAR-AI-sub001"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/api/handlers"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/corpus"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/internal/cache"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/internal/metrics"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm/retry"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 装配检索引擎并管理 HTTP 生命周期。
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	engine     *bearai.Engine
	registry   *prometheus.Registry
	httpServer *http.Server
}

// NewServer 创建新的服务器实例。
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 装配引擎并启动 HTTP 服务器（非阻塞）。
func (s *Server) Start() error {
	s.registry = prometheus.NewRegistry()
	collector := metrics.NewCollector("bearai", s.registry, s.logger)

	store, err := s.buildStore()
	if err != nil {
		return fmt.Errorf("failed to init corpus store: %w", err)
	}

	embCache, err := s.buildCache()
	if err != nil {
		return fmt.Errorf("failed to init embedding cache: %w", err)
	}

	opts, err := s.buildCapabilities()
	if err != nil {
		return fmt.Errorf("failed to init providers: %w", err)
	}
	opts.Store = store
	opts.Cache = embCache
	opts.Collector = collector
	opts.Logger = s.logger

	s.engine, err = bearai.New(s.cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.logger.Info("Server started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.String("database_driver", s.cfg.Database.Driver),
		zap.String("cache_backend", s.cfg.Cache.Backend),
	)
	return nil
}

// =============================================================================
// 🔧 装配方法
// =============================================================================

// buildStore 根据配置选择语料库后端。
func (s *Server) buildStore() (corpus.Store, error) {
	if s.cfg.Database.Driver == "memory" {
		s.logger.Info("Using in-memory corpus store")
		return corpus.NewMemoryStore(), nil
	}
	db, err := corpus.OpenDatabase(s.cfg.Database, s.logger)
	if err != nil {
		return nil, err
	}
	return corpus.NewDBStore(db, s.logger)
}

// buildCache 根据配置选择嵌入缓存后端。
func (s *Server) buildCache() (cache.VectorStore, error) {
	if s.cfg.Cache.Backend == "redis" {
		return cache.NewRedisStore(cache.RedisConfig{
			Addr:     s.cfg.Cache.Addr,
			Password: s.cfg.Cache.Password,
			DB:       s.cfg.Cache.DB,
			TTL:      s.cfg.Cache.TTL,
		}, s.logger)
	}
	return cache.NewMemoryStore(s.cfg.Cache.Capacity), nil
}

// buildCapabilities 构造带重试与限流的外部能力。
func (s *Server) buildCapabilities() (bearai.Options, error) {
	pcfg := s.cfg.Provider
	client := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:     pcfg.BaseURL,
		APIKey:      pcfg.APIKey,
		ChatModel:   pcfg.ChatModel,
		EmbedModel:  pcfg.EmbedModel,
		RerankModel: pcfg.RerankModel,
		Timeout:     pcfg.Timeout,
	}, s.logger)

	resilience := llm.ResilienceOptions{
		Timeout: pcfg.Timeout,
		Policy: &retry.RetryPolicy{
			MaxRetries:   pcfg.MaxRetries,
			InitialDelay: pcfg.InitialDelay,
			MaxDelay:     pcfg.MaxDelay,
			Multiplier:   2.0,
		},
		RateLimit: pcfg.RateLimit,
		RateBurst: pcfg.RateBurst,
	}

	opts := bearai.Options{
		Embedder:  llm.NewResilientEmbedder(client, resilience, s.logger),
		Generator: llm.NewResilientGenerator(client, resilience, s.logger),
	}
	if pcfg.RerankModel != "" {
		opts.Reranker = llm.NewResilientReranker(client, resilience, s.logger)
	}
	if pcfg.ResolverURL != "" {
		inner := llm.NewRESTResolver(pcfg.ResolverURL, s.cfg.Citation.Timeout, s.logger)
		opts.Resolver = llm.NewResilientResolver(inner, resilience, s.logger)
	} else {
		s.logger.Warn("No citation resolver configured, citations will stay unverified")
		opts.Resolver = llm.UnknownResolver{}
	}

	// 启动时探测一次，端点不通只告警不拒绝启动
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		s.logger.Warn("Provider endpoint not reachable at startup", zap.Error(err))
	}

	return opts, nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 注册路由并启动 HTTP 服务器。
func (s *Server) startHTTPServer() error {
	healthHandler := handlers.NewHealthHandler(s.engine, s.logger)
	docsHandler := handlers.NewDocumentsHandler(s.engine, s.logger)
	queryHandler := handlers.NewQueryHandler(s.engine, s.logger)

	mux := http.NewServeMux()

	// 健康检查与版本
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", healthHandler.HandleReady)
	mux.HandleFunc("/readyz", healthHandler.HandleReady)
	mux.HandleFunc("/version", healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// API 路由
	mux.HandleFunc("/api/v1/documents", docsHandler.HandleDocuments)
	mux.HandleFunc("/api/v1/documents/", docsHandler.HandleDocumentByID)
	mux.HandleFunc("/api/v1/relations", docsHandler.HandleRelations)
	mux.HandleFunc("/api/v1/retrieve", queryHandler.HandleRetrieve)
	mux.HandleFunc("/api/v1/ask", queryHandler.HandleAsk)
	mux.HandleFunc("/api/v1/multihop", queryHandler.HandleMultiHop)

	// Prometheus 指标
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		Tracing(),
	)

	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		Handler:        handler,
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 阻塞直到收到 SIGINT/SIGTERM，然后优雅关闭。
func (s *Server) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	s.logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	s.Shutdown()
}

// Shutdown 优雅关闭 HTTP 服务器。
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
