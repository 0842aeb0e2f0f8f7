package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/corpus"
)

// =============================================================================
// 🗄️ migrate 命令
// =============================================================================

// runMigrate 针对配置的持久化后端建表或更新语料库模式。
// 模式迁移由 GORM AutoMigrate 完成，幂等，可重复执行。
func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (YAML)")
	fs.Parse(args)

	loader := config.NewLoader().WithEnvPrefix("BEARAI")
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Driver == "memory" {
		fmt.Fprintln(os.Stderr, "migrate requires a persistent database driver (sqlite, postgres, mysql)")
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	db, err := corpus.OpenDatabase(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}

	store, err := corpus.NewDBStore(db, logger)
	if err != nil {
		logger.Fatal("Schema migration failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	docs, chunks, err := store.Stats(ctx)
	if err != nil {
		logger.Fatal("Post-migration stats failed", zap.Error(err))
	}

	logger.Info("Corpus schema migrated",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("documents", docs),
		zap.Int("chunks", chunks),
	)
	fmt.Printf("OK: schema up to date (%d documents, %d chunks)\n", docs, chunks)
}
