package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm/retry"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

type flakyEmbedder struct {
	failures int
	calls    int
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("upstream 503")
	}
	return []float64{1, 0}, nil
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		v, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func fastPolicy(maxRetries int) *retry.RetryPolicy {
	return &retry.RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestResilientEmbedderRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	inner := &flakyEmbedder{failures: 2}
	e := NewResilientEmbedder(inner, ResilienceOptions{Policy: fastPolicy(3)}, zap.NewNop())

	vec, err := e.Embed(context.Background(), "habeas corpus")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("unexpected vector: %v", vec)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
}

func TestResilientEmbedderReturnsStructuredError(t *testing.T) {
	t.Parallel()

	inner := &flakyEmbedder{failures: 100}
	e := NewResilientEmbedder(inner, ResilienceOptions{Policy: fastPolicy(1)}, zap.NewNop())

	_, err := e.Embed(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if types.GetErrorCode(err) != types.ErrEmbeddingFailed {
		t.Fatalf("code = %s, want EMBEDDING_FAILED", types.GetErrorCode(err))
	}
	if !types.IsRetryable(err) {
		t.Fatal("embedding failure should be marked retryable")
	}
}

type slowReranker struct{}

func (slowReranker) Rerank(ctx context.Context, query string, candidates []string) ([]RerankItem, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(200 * time.Millisecond):
		return []RerankItem{{Index: 0, Score: 1}}, nil
	}
}

func TestResilientRerankerTimesOut(t *testing.T) {
	t.Parallel()

	r := NewResilientReranker(slowReranker{}, ResilienceOptions{
		Timeout: 10 * time.Millisecond,
		Policy:  fastPolicy(0),
	}, zap.NewNop())

	_, err := r.Rerank(context.Background(), "q", []string{"a"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if types.GetErrorCode(err) != types.ErrRerankFailed {
		t.Fatalf("code = %s, want RERANK_FAILED", types.GetErrorCode(err))
	}
}

type countingResolver struct{ calls int }

func (c *countingResolver) Resolve(ctx context.Context, citation string) (Resolution, error) {
	c.calls++
	return Resolution{Exists: true, Status: types.CitationGoodLaw}, nil
}

func TestResilientResolverRateLimitAllowsBurst(t *testing.T) {
	t.Parallel()

	inner := &countingResolver{}
	r := NewResilientResolver(inner, ResilienceOptions{
		RateLimit: 1000,
		RateBurst: 5,
		Policy:    fastPolicy(0),
	}, zap.NewNop())

	for i := 0; i < 5; i++ {
		if _, err := r.Resolve(context.Background(), "347 U.S. 483"); err != nil {
			t.Fatalf("Resolve %d: %v", i, err)
		}
	}
	if inner.calls != 5 {
		t.Fatalf("calls = %d, want 5", inner.calls)
	}
}
