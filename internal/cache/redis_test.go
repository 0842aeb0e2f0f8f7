package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := NewRedisStore(RedisConfig{
		Addr: mr.Addr(),
		TTL:  time.Minute,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestRedisStore(t)
	ctx := context.Background()

	want := []float64{0.1, -0.5, 3}
	if err := s.Put(ctx, "chunk-1", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "chunk-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("vector length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("vector[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRedisStoreMiss(t *testing.T) {
	t.Parallel()

	s := newTestRedisStore(t)
	if _, err := s.Get(context.Background(), "absent"); err != ErrCacheMiss {
		t.Fatalf("err = %v, want ErrCacheMiss", err)
	}
}

func TestRedisStoreLenCountsPrefixedKeys(t *testing.T) {
	t.Parallel()

	s := newTestRedisStore(t)
	ctx := context.Background()

	_ = s.Put(ctx, "a", []float64{1})
	_ = s.Put(ctx, "b", []float64{2})

	if n := s.Len(); n != 2 {
		t.Fatalf("Len = %d, want 2", n)
	}
}

func TestRedisStoreClosedRejectsOperations(t *testing.T) {
	t.Parallel()

	s := newTestRedisStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Put(context.Background(), "x", []float64{1}); err == nil {
		t.Fatal("Put on closed store should fail")
	}
	if _, err := s.Get(context.Background(), "x"); err == nil {
		t.Fatal("Get on closed store should fail")
	}
}

func TestRedisStoreBackedEmbedder(t *testing.T) {
	t.Parallel()

	inner := &countingEmbedder{}
	e := NewCachingEmbedder(inner, newTestRedisStore(t), nil, zap.NewNop())
	ctx := context.Background()

	if _, err := e.Embed(ctx, "collateral estoppel"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if _, err := e.Embed(ctx, "collateral estoppel"); err != nil {
		t.Fatalf("Embed (cached): %v", err)
	}
	if inner.calls.Load() != 1 {
		t.Fatalf("external calls = %d, want 1", inner.calls.Load())
	}
}
