package reasoning

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/testutil"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// stubRetriever serves a fixed result for corrective retrievals.
type stubRetriever struct {
	mu      sync.Mutex
	result  *types.RetrievalResult
	err     error
	queries []string
}

func (s *stubRetriever) Retrieve(_ context.Context, qc types.QueryContext) (*types.RetrievalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, qc.Query)
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &types.RetrievalResult{Query: qc.Query}, nil
}

func reasoningConfig() config.ReasoningConfig {
	return config.ReasoningConfig{
		MaxCorrectionRounds: 2,
		SupportThreshold:    0.3,
		Timeout:             10 * time.Second,
	}
}

func evidenceResult(confidence float64) *types.RetrievalResult {
	return &types.RetrievalResult{
		Confidence: confidence,
		Chunks: []types.ScoredChunk{{
			Chunk: types.Chunk{
				ID:         "lease-1-0000",
				DocumentID: "lease-1",
				Content:    "The tenant may terminate the lease with thirty days written notice.",
			},
		}},
		Documents: map[string]types.LegalDocument{"lease-1": {ID: "lease-1"}},
		Citations: []types.CitationInfo{{ChunkID: "lease-1-0000", Text: "347 U.S. 483", Verified: true}},
	}
}

func TestRunHappyPathStates(t *testing.T) {
	t.Parallel()

	gen := &testutil.ScriptedGenerator{Script: []string{
		"The tenant may terminate the lease with notice.", // reason
		"OK", // reflect: no gaps
		"The tenant may terminate the lease with thirty days notice.", // finalize
	}}
	loop := NewLoop(reasoningConfig(), gen, &stubRetriever{}, zap.NewNop())

	out, err := loop.Run(context.Background(), "Can the tenant terminate the lease?", evidenceResult(0.8))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []State{StateRetrieved, StateReasoned, StateReflected, StateFinalized}
	if len(out.States) != len(want) {
		t.Fatalf("states = %v, want %v", out.States, want)
	}
	for i := range want {
		if out.States[i] != want[i] {
			t.Fatalf("states = %v, want %v", out.States, want)
		}
	}
	if out.Incomplete {
		t.Fatal("clean run should be complete")
	}
	if out.Response != "The tenant may terminate the lease with thirty days notice." {
		t.Fatalf("response = %q", out.Response)
	}
	if out.Confidence != 0.8 {
		t.Fatalf("confidence = %v", out.Confidence)
	}
	if len(out.Citations) != 1 {
		t.Fatalf("citations should flow through: %+v", out.Citations)
	}
}

func TestRunCorrectiveRound(t *testing.T) {
	t.Parallel()

	retriever := &stubRetriever{result: &types.RetrievalResult{
		Confidence: 0.6,
		Chunks: []types.ScoredChunk{{
			Chunk: types.Chunk{
				ID:         "notice-1-0000",
				DocumentID: "notice-1",
				Content:    "Notice must be delivered in writing to the landlord.",
			},
		}},
		Documents: map[string]types.LegalDocument{"notice-1": {ID: "notice-1"}},
	}}
	gen := &testutil.ScriptedGenerator{Script: []string{
		"The tenant may terminate the lease; the notice form is unclear.", // reason
		"GAP: what form must the notice take",                             // reflect round 1
		"The tenant may terminate the lease with written notice.",         // reason after correction
		"OK", // reflect round 2
		"The tenant may terminate the lease with written notice delivered to the landlord.", // finalize
	}}
	loop := NewLoop(reasoningConfig(), gen, retriever, zap.NewNop())

	out, err := loop.Run(context.Background(), "Can the tenant terminate the lease?", evidenceResult(0.8))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(retriever.queries) != 1 || retriever.queries[0] != "what form must the notice take" {
		t.Fatalf("corrective retrieval queries = %v", retriever.queries)
	}
	sawCorrected := false
	for _, s := range out.States {
		if s == StateCorrected {
			sawCorrected = true
		}
	}
	if !sawCorrected {
		t.Fatalf("states missing CORRECTED: %v", out.States)
	}
	if out.Incomplete {
		t.Fatal("resolved gaps should finalize complete")
	}
	// Merged confidence is the running mean of both retrievals.
	if out.Confidence != 0.7 {
		t.Fatalf("confidence = %v, want 0.7", out.Confidence)
	}
}

func TestRunCorrectionBudgetTerminates(t *testing.T) {
	t.Parallel()

	gen := &testutil.ScriptedGenerator{Fn: func(prompt string) string {
		if strings.Contains(prompt, "Critique the following") {
			return "GAP: an insatiable critic always finds more"
		}
		return "The tenant may terminate the lease with thirty days written notice."
	}}
	loop := NewLoop(reasoningConfig(), gen, &stubRetriever{}, zap.NewNop())

	out, err := loop.Run(context.Background(), "question", evidenceResult(0.5))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Incomplete {
		t.Fatal("exhausted correction budget must be flagged incomplete")
	}
	corrected := 0
	for _, s := range out.States {
		if s == StateCorrected {
			corrected++
		}
	}
	if corrected != 2 {
		t.Fatalf("expected exactly 2 correction rounds, got %d (states %v)", corrected, out.States)
	}
	if out.States[len(out.States)-1] != StateFinalized {
		t.Fatalf("loop must always finalize: %v", out.States)
	}
}

func TestRunStripsUnsupportedClaims(t *testing.T) {
	t.Parallel()

	gen := &testutil.ScriptedGenerator{Script: []string{
		"reasoning text about lease termination notice tenant", // reason
		"OK", // reflect
		"The tenant may terminate the lease with thirty days notice. Martian law forbids all leases entirely.", // finalize
	}}
	loop := NewLoop(reasoningConfig(), gen, &stubRetriever{}, zap.NewNop())

	out, err := loop.Run(context.Background(), "Can the tenant terminate the lease?", evidenceResult(0.8))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(out.Response, "Martian") {
		t.Fatalf("unsupported claim survived: %q", out.Response)
	}
	if !strings.Contains(out.Response, "terminate the lease") {
		t.Fatalf("supported claim stripped: %q", out.Response)
	}
	found := false
	for _, line := range out.Trace {
		if strings.Contains(line, "stripped 1 unsupported claims") {
			found = true
		}
	}
	if !found {
		t.Fatalf("strip not traced: %v", out.Trace)
	}
}

func TestRunReflectionFailureDegrades(t *testing.T) {
	t.Parallel()

	// The generator fails on the critique call only.
	gen := &testutil.ScriptedGenerator{Fn: func(prompt string) string {
		return "The tenant may terminate the lease with thirty days written notice."
	}}
	failing := &flakyGenerator{inner: gen, failOn: "Critique the following"}
	loop := NewLoop(reasoningConfig(), failing, &stubRetriever{}, zap.NewNop())

	out, err := loop.Run(context.Background(), "question", evidenceResult(0.8))
	if err != nil {
		t.Fatalf("reflection failure must not fail the loop: %v", err)
	}
	for _, s := range out.States {
		if s == StateCorrected {
			t.Fatalf("no correction without critique: %v", out.States)
		}
	}
	if out.States[len(out.States)-1] != StateFinalized {
		t.Fatalf("loop must finalize: %v", out.States)
	}
}

func TestRunNilResultRejected(t *testing.T) {
	t.Parallel()

	loop := NewLoop(reasoningConfig(), &testutil.ScriptedGenerator{}, &stubRetriever{}, zap.NewNop())
	if _, err := loop.Run(context.Background(), "question", nil); err == nil {
		t.Fatal("nil result must be rejected")
	}
}

func TestRunGenerationFailureIsRetryable(t *testing.T) {
	t.Parallel()

	gen := &testutil.ScriptedGenerator{Err: errors.New("model overloaded")}
	loop := NewLoop(reasoningConfig(), gen, &stubRetriever{}, zap.NewNop())
	_, err := loop.Run(context.Background(), "question", evidenceResult(0.5))
	if err == nil {
		t.Fatal("reasoning failure must surface")
	}
	var appErr *types.Error
	if !errors.As(err, &appErr) || appErr.Code != types.ErrGenerationFailed || !appErr.Retryable {
		t.Fatalf("expected retryable generation failure, got %v", err)
	}
}

// flakyGenerator delegates to inner but fails prompts containing a
// marker substring.
type flakyGenerator struct {
	inner  *testutil.ScriptedGenerator
	failOn string
}

func (f *flakyGenerator) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	if strings.Contains(prompt, f.failOn) {
		return "", errors.New("critique service down")
	}
	return f.inner.Generate(ctx, prompt, opts)
}

func (f *flakyGenerator) GenerateStream(ctx context.Context, prompt string, opts llm.GenerateOptions) (<-chan string, error) {
	text, err := f.Generate(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	ch := make(chan string, 1)
	ch <- text
	close(ch)
	return ch, nil
}
