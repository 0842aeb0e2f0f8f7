package rag

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

func scoredResult(chunks ...types.ScoredChunk) *types.RetrievalResult {
	return &types.RetrievalResult{Chunks: chunks}
}

func TestScoreEmptyResultIsZero(t *testing.T) {
	t.Parallel()

	s := NewConfidenceScorer(config.DefaultConfidenceConfig())
	result := scoredResult()
	s.Score(result)
	if result.Confidence != 0 {
		t.Fatalf("empty result confidence = %v, want 0", result.Confidence)
	}
	if len(result.Reasoning) == 0 || !strings.Contains(result.Reasoning[0], "no supporting chunks") {
		t.Fatalf("missing explanation: %v", result.Reasoning)
	}
}

func TestScoreCombinesSignals(t *testing.T) {
	t.Parallel()

	s := NewConfidenceScorer(config.DefaultConfidenceConfig())
	result := scoredResult(
		types.ScoredChunk{FusedScore: 0.8, Chunk: types.Chunk{TemporalRelevance: 1}},
		types.ScoredChunk{FusedScore: 0.6, Chunk: types.Chunk{TemporalRelevance: 0.5}},
	)
	result.Citations = []types.CitationInfo{
		{Verified: true}, {Verified: true}, {Verified: false}, {Verified: false},
	}

	s.Score(result)
	// 0.5*0.7 + 0.3*0.5 + 0.2*0.75
	want := 0.65
	if diff := result.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("confidence = %v, want %v", result.Confidence, want)
	}
	joined := strings.Join(result.Reasoning, "\n")
	if !strings.Contains(joined, "2 of 4 citations verified") {
		t.Fatalf("citation note missing: %v", result.Reasoning)
	}
	if !strings.Contains(joined, "average temporal relevance 0.75") {
		t.Fatalf("temporal note missing: %v", result.Reasoning)
	}
}

func TestScoreNeutralWithoutCitations(t *testing.T) {
	t.Parallel()

	s := NewConfidenceScorer(config.DefaultConfidenceConfig())
	result := scoredResult(types.ScoredChunk{FusedScore: 1, Chunk: types.Chunk{TemporalRelevance: 1}})
	s.Score(result)
	// 0.5*1 + 0.3*0.5 + 0.2*1: the citation signal sits at its neutral
	// midpoint rather than dragging the score to either extreme.
	want := 0.85
	if diff := result.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("confidence = %v, want %v", result.Confidence, want)
	}
	if !strings.Contains(strings.Join(result.Reasoning, "\n"), "no citations to verify") {
		t.Fatalf("missing neutral citation note: %v", result.Reasoning)
	}
}

func TestScoreContradictionPenalties(t *testing.T) {
	t.Parallel()

	s := NewConfidenceScorer(config.DefaultConfidenceConfig())

	base := scoredResult(types.ScoredChunk{FusedScore: 1, Chunk: types.Chunk{TemporalRelevance: 1}})
	s.Score(base)

	penalized := scoredResult(types.ScoredChunk{FusedScore: 1, Chunk: types.Chunk{TemporalRelevance: 1}})
	penalized.Contradictions = []types.ContradictionInfo{
		{Severity: types.SeverityHigh},
		{Severity: types.SeverityMedium},
		{Severity: types.SeverityLow},
	}
	s.Score(penalized)

	wantDrop := 0.15 + 0.08 + 0.03
	if diff := (base.Confidence - penalized.Confidence) - wantDrop; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("penalty = %v, want %v", base.Confidence-penalized.Confidence, wantDrop)
	}
	if !strings.Contains(strings.Join(penalized.Reasoning, "\n"), "1 high, 1 medium, 1 low") {
		t.Fatalf("penalty note missing: %v", penalized.Reasoning)
	}
}

func TestScoreBounded(t *testing.T) {
	t.Parallel()

	s := NewConfidenceScorer(config.DefaultConfidenceConfig())
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 10).Draw(rt, "chunks")
		result := &types.RetrievalResult{}
		for i := 0; i < n; i++ {
			result.Chunks = append(result.Chunks, types.ScoredChunk{
				FusedScore: rapid.Float64Range(-2, 2).Draw(rt, "fused"),
				Chunk: types.Chunk{
					TemporalRelevance: rapid.Float64Range(-1, 2).Draw(rt, "temporal"),
				},
			})
		}
		for i := rapid.IntRange(0, 8).Draw(rt, "citations"); i > 0; i-- {
			result.Citations = append(result.Citations,
				types.CitationInfo{Verified: rapid.Bool().Draw(rt, "verified")})
		}
		severities := []types.ConflictSeverity{types.SeverityHigh, types.SeverityMedium, types.SeverityLow}
		for i := rapid.IntRange(0, 20).Draw(rt, "conflicts"); i > 0; i-- {
			result.Contradictions = append(result.Contradictions, types.ContradictionInfo{
				Severity: severities[rapid.IntRange(0, 2).Draw(rt, "severity")],
			})
		}

		s.Score(result)
		if result.Confidence < 0 || result.Confidence > 1 {
			rt.Fatalf("confidence %v out of bounds", result.Confidence)
		}
	})
}

func TestScoreStrictlyDecreasingInHighSeverity(t *testing.T) {
	t.Parallel()

	s := NewConfidenceScorer(config.DefaultConfidenceConfig())
	prev := 2.0
	// 0.85 base leaves headroom for five high-severity penalties before
	// the clamp kicks in.
	for n := 0; n <= 5; n++ {
		result := scoredResult(types.ScoredChunk{FusedScore: 1, Chunk: types.Chunk{TemporalRelevance: 1}})
		for i := 0; i < n; i++ {
			result.Contradictions = append(result.Contradictions,
				types.ContradictionInfo{Severity: types.SeverityHigh})
		}
		s.Score(result)
		if result.Confidence >= prev {
			t.Fatalf("%d high contradictions gave %v, previous was %v", n, result.Confidence, prev)
		}
		prev = result.Confidence
	}
}
