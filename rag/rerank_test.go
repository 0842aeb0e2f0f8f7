package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/internal/metrics"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/testutil"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

func scoredChunks(n int) []types.ScoredChunk {
	out := make([]types.ScoredChunk, n)
	for i := range out {
		out[i] = types.ScoredChunk{
			Chunk: types.Chunk{
				ID:         fmt.Sprintf("d1-%04d", i),
				DocumentID: "d1",
				Content:    fmt.Sprintf("chunk %d", i),
			},
			FusedScore: 1 - float64(i)/10,
			FinalScore: 1 - float64(i)/10,
		}
	}
	return out
}

func newTestReranker(provider llm.Reranker) *Reranker {
	cfg := config.RerankConfig{Enabled: true, Timeout: 5 * time.Second}
	collector := metrics.NewCollector("test", prometheus.NewRegistry(), nil)
	return NewReranker(cfg, provider, collector, zap.NewNop())
}

func TestRerankReordersChunks(t *testing.T) {
	t.Parallel()

	r := newTestReranker(testutil.ReverseReranker{})
	in := scoredChunks(4)
	out, degraded := r.Rerank(context.Background(), "query", in)
	if degraded {
		t.Fatal("healthy provider should not degrade")
	}
	for i := range out {
		want := in[len(in)-1-i].Chunk.ID
		if out[i].Chunk.ID != want {
			t.Fatalf("position %d = %q, want %q", i, out[i].Chunk.ID, want)
		}
	}
	if out[0].RerankScore == 0 || out[0].FinalScore != out[0].RerankScore {
		t.Fatalf("final score should follow rerank score, got %+v", out[0])
	}
	// Fused scores survive for auditability.
	if out[0].FusedScore != in[3].FusedScore {
		t.Fatalf("fused score lost in reorder: %+v", out[0])
	}
}

func TestRerankDisabledPassthrough(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector("test", prometheus.NewRegistry(), nil)
	r := NewReranker(config.RerankConfig{Enabled: false}, testutil.ReverseReranker{}, collector, zap.NewNop())
	in := scoredChunks(3)
	out, degraded := r.Rerank(context.Background(), "query", in)
	if degraded {
		t.Fatal("disabled reranker is not a degradation")
	}
	for i := range out {
		if out[i].Chunk.ID != in[i].Chunk.ID {
			t.Fatal("disabled reranker must keep fused order")
		}
	}
}

func TestRerankSingleChunkSkipsProvider(t *testing.T) {
	t.Parallel()

	r := newTestReranker(testutil.FailingReranker{Err: errors.New("should not be called")})
	out, degraded := r.Rerank(context.Background(), "query", scoredChunks(1))
	if degraded || len(out) != 1 {
		t.Fatalf("single chunk needs no reranking, got degraded=%v len=%d", degraded, len(out))
	}
}

func TestRerankProviderFailureDegrades(t *testing.T) {
	t.Parallel()

	r := newTestReranker(testutil.FailingReranker{Err: errors.New("provider down")})
	in := scoredChunks(4)
	out, degraded := r.Rerank(context.Background(), "query", in)
	if !degraded {
		t.Fatal("provider failure must be reported as degradation")
	}
	for i := range out {
		if out[i].Chunk.ID != in[i].Chunk.ID {
			t.Fatal("degraded rerank must keep fused order")
		}
	}
}

func TestRerankInvalidPermutationDegrades(t *testing.T) {
	t.Parallel()

	r := newTestReranker(testutil.BrokenReranker{})
	in := scoredChunks(4)
	out, degraded := r.Rerank(context.Background(), "query", in)
	if !degraded {
		t.Fatal("a response that drops chunks must be rejected")
	}
	if len(out) != len(in) {
		t.Fatalf("degraded rerank lost chunks: %d of %d", len(out), len(in))
	}
	for i := range out {
		if out[i].Chunk.ID != in[i].Chunk.ID {
			t.Fatal("degraded rerank must keep fused order")
		}
	}
}

// permutingReranker applies a fixed index permutation.
type permutingReranker struct{ order []int }

func (p permutingReranker) Rerank(_ context.Context, _ string, _ []string) ([]llm.RerankItem, error) {
	items := make([]llm.RerankItem, len(p.order))
	for i, idx := range p.order {
		items[i] = llm.RerankItem{Index: idx, Score: float64(len(p.order) - i)}
	}
	return items, nil
}

func TestRerankPreservesChunkSet(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 20).Draw(rt, "n")
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		for i := n - 1; i > 0; i-- {
			j := rapid.IntRange(0, i).Draw(rt, "swap")
			order[i], order[j] = order[j], order[i]
		}

		in := scoredChunks(n)
		out, degraded := newTestReranker(permutingReranker{order: order}).
			Rerank(context.Background(), "query", in)
		if degraded {
			rt.Fatalf("valid permutation rejected: %v", order)
		}
		seen := make(map[string]bool, n)
		for _, sc := range out {
			if seen[sc.Chunk.ID] {
				rt.Fatalf("chunk %q duplicated", sc.Chunk.ID)
			}
			seen[sc.Chunk.ID] = true
		}
		if len(seen) != n {
			rt.Fatalf("chunk set changed: %d of %d survive", len(seen), n)
		}
	})
}
