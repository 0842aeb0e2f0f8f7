package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
)

type countingEmbedder struct {
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	c.calls.Add(1)
	return []float64{float64(len(text)), 1}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestCachingEmbedderHitSkipsExternalCall(t *testing.T) {
	t.Parallel()

	inner := &countingEmbedder{}
	e := NewCachingEmbedder(inner, NewMemoryStore(16), nil, zap.NewNop())
	ctx := context.Background()

	v1, err := e.Embed(ctx, "stare decisis")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	v2, err := e.Embed(ctx, "stare decisis")
	if err != nil {
		t.Fatalf("Embed (cached): %v", err)
	}
	if inner.calls.Load() != 1 {
		t.Fatalf("external calls = %d, want 1", inner.calls.Load())
	}
	if len(v1) != len(v2) || v1[0] != v2[0] {
		t.Fatalf("cached vector mismatch: %v vs %v", v1, v2)
	}
}

func TestMemoryStoreFIFOEviction(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(2)
	ctx := context.Background()

	if err := s.Put(ctx, "a", []float64{1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "b", []float64{2}); err != nil {
		t.Fatal(err)
	}

	// Reading "a" must not protect it: eviction is insertion-order, not LRU.
	if _, err := s.Get(ctx, "a"); err != nil {
		t.Fatalf("Get a: %v", err)
	}

	if err := s.Put(ctx, "c", []float64{3}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get(ctx, "a"); err != ErrCacheMiss {
		t.Fatalf("oldest entry should be evicted, got err=%v", err)
	}
	if _, err := s.Get(ctx, "b"); err != nil {
		t.Fatalf("b should survive: %v", err)
	}
	if _, err := s.Get(ctx, "c"); err != nil {
		t.Fatalf("c should be present: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
}

func TestMemoryStoreUpdateKeepsPosition(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(2)
	ctx := context.Background()

	_ = s.Put(ctx, "a", []float64{1})
	_ = s.Put(ctx, "b", []float64{2})
	_ = s.Put(ctx, "a", []float64{9}) // update, not re-insert
	_ = s.Put(ctx, "c", []float64{3})

	// "a" keeps its original insertion slot, so it is still the oldest.
	if _, err := s.Get(ctx, "a"); err != ErrCacheMiss {
		t.Fatalf("updated entry must keep insertion order, got err=%v", err)
	}
}

func TestCachingEmbedderConcurrentSameKey(t *testing.T) {
	t.Parallel()

	inner := &countingEmbedder{}
	e := NewCachingEmbedder(inner, NewMemoryStore(64), nil, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Embed(ctx, "res judicata"); err != nil {
				t.Errorf("Embed: %v", err)
			}
		}()
	}
	wg.Wait()

	// singleflight collapses concurrent misses; a few extra calls are
	// tolerable if goroutines race past the cache check, but the bound
	// must be far below the request count.
	if calls := inner.calls.Load(); calls > 4 {
		t.Fatalf("external calls = %d, expected concurrent misses to collapse", calls)
	}
}

func TestEmbedBatchFetchesOnlyMisses(t *testing.T) {
	t.Parallel()

	inner := &countingEmbedder{}
	e := NewCachingEmbedder(inner, NewMemoryStore(64), nil, zap.NewNop())
	ctx := context.Background()

	if _, err := e.Embed(ctx, "warm"); err != nil {
		t.Fatal(err)
	}
	before := inner.calls.Load()

	vecs, err := e.EmbedBatch(ctx, []string{"warm", "cold-1", "cold-2"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}
	for i, v := range vecs {
		if v == nil {
			t.Fatalf("vector %d is nil", i)
		}
	}
	if inner.calls.Load()-before != 2 {
		t.Fatalf("external calls for batch = %d, want 2", inner.calls.Load()-before)
	}
}

func TestMemoryStoreManyKeysStaysBounded(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(8)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		_ = s.Put(ctx, fmt.Sprintf("key-%d", i), []float64{float64(i)})
	}
	if s.Len() != 8 {
		t.Fatalf("Len = %d, want capacity 8", s.Len())
	}
}
