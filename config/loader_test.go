package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Retrieval.SparseWeight != 0.4 || cfg.Retrieval.DenseWeight != 0.4 || cfg.Retrieval.GraphWeight != 0.2 {
		t.Fatalf("unexpected default fusion weights: %+v", cfg.Retrieval)
	}
	if cfg.MultiHop.MaxHops != 3 {
		t.Fatalf("default max_hops = %d, want 3", cfg.MultiHop.MaxHops)
	}
	if cfg.Chunking.MaxAge != 365*24*time.Hour {
		t.Fatalf("default max_age = %v", cfg.Chunking.MaxAge)
	}
}

func TestLoaderYAMLOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
retrieval:
  sparse_weight: 0.5
  dense_weight: 0.3
  graph_weight: 0.2
multi_hop:
  max_hops: 2
cache:
  backend: redis
  addr: "127.0.0.1:6390"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retrieval.SparseWeight != 0.5 {
		t.Fatalf("sparse_weight = %v, want 0.5", cfg.Retrieval.SparseWeight)
	}
	if cfg.MultiHop.MaxHops != 2 {
		t.Fatalf("max_hops = %d, want 2", cfg.MultiHop.MaxHops)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Addr != "127.0.0.1:6390" {
		t.Fatalf("cache override not applied: %+v", cfg.Cache)
	}
	// Untouched values keep defaults.
	if cfg.Retrieval.BM25K1 != 1.5 {
		t.Fatalf("bm25_k1 = %v, want default 1.5", cfg.Retrieval.BM25K1)
	}
}

func TestLoaderEnvOverridesFile(t *testing.T) {
	t.Setenv("BEARAI_RETRIEVAL_MAX_RESULTS", "25")
	t.Setenv("BEARAI_PROVIDER_TIMEOUT", "5s")
	t.Setenv("BEARAI_CACHE_BACKEND", "redis")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Retrieval.MaxResults != 25 {
		t.Fatalf("max_results = %d, want 25", cfg.Retrieval.MaxResults)
	}
	if cfg.Provider.Timeout != 5*time.Second {
		t.Fatalf("provider timeout = %v, want 5s", cfg.Provider.Timeout)
	}
	if cfg.Cache.Backend != "redis" {
		t.Fatalf("cache backend = %s, want redis", cfg.Cache.Backend)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Chunking.OverlapTokens = cfg.Chunking.MaxChunkTokens
	if err := cfg.Validate(); err == nil {
		t.Fatal("overlap >= chunk size must fail validation")
	}

	cfg = DefaultConfig()
	cfg.Cache.Backend = "memcached"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown cache backend must fail validation")
	}

	cfg = DefaultConfig()
	cfg.Database.Driver = "oracle"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown database driver must fail validation")
	}
}

func TestDatabaseDSN(t *testing.T) {
	t.Parallel()

	d := DatabaseConfig{Driver: "sqlite", Name: "corpus.db"}
	if d.DSN() != "corpus.db" {
		t.Fatalf("sqlite DSN = %q", d.DSN())
	}
	d = DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable"
	if d.DSN() != want {
		t.Fatalf("postgres DSN = %q, want %q", d.DSN(), want)
	}
}
