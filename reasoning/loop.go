// Package reasoning runs the agentic loop over a retrieval result:
// generate a chain of thought, self-critique it, issue bounded
// corrective retrievals for flagged gaps, and finalize after a
// hallucination check against the retrieved evidence.
package reasoning

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/rag"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// State is a stage of the reasoning loop.
type State string

const (
	StateRetrieved State = "RETRIEVED"
	StateReasoned  State = "REASONED"
	StateReflected State = "REFLECTED"
	StateCorrected State = "CORRECTED"
	StateFinalized State = "FINALIZED"
)

// Outcome is the finalized response payload.
type Outcome struct {
	Response   string               `json:"response"`
	Confidence float64              `json:"confidence"`
	Citations  []types.CitationInfo `json:"citations"`
	Trace      []string             `json:"trace"`
	States     []State              `json:"states"`
	Incomplete bool                 `json:"incomplete,omitempty"`
}

// Loop drives one query through RETRIEVED, REASONED, REFLECTED,
// zero or more CORRECTED rounds, and FINALIZED. The correction-round
// bound guarantees termination no matter how many gaps reflection
// keeps flagging.
type Loop struct {
	cfg       config.ReasoningConfig
	generator llm.Generator
	retriever rag.Retriever
	logger    *zap.Logger
}

// NewLoop creates the reasoning loop. The retriever is used for
// corrective retrievals; the generator for reasoning, reflection, and
// the final response.
func NewLoop(cfg config.ReasoningConfig, generator llm.Generator, retriever rag.Retriever, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		cfg:       cfg,
		generator: generator,
		retriever: retriever,
		logger:    logger.With(zap.String("component", "reasoning_loop")),
	}
}

// Run executes the loop for one query and its retrieval result.
// The result is not mutated; corrective evidence is merged into a copy.
func (l *Loop) Run(ctx context.Context, query string, result *types.RetrievalResult) (*Outcome, error) {
	if result == nil {
		return nil, types.NewError(types.ErrInvalidDocument, "reasoning: nil retrieval result")
	}
	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}

	evidence := cloneResult(result)
	out := &Outcome{States: []State{StateRetrieved}}
	out.Trace = append(out.Trace, fmt.Sprintf("retrieved %d chunks (confidence %.2f)", len(evidence.Chunks), evidence.Confidence))

	rounds := 0
	var thought string
	for {
		var err error
		thought, err = l.reason(ctx, query, evidence)
		if err != nil {
			return nil, err
		}
		out.States = append(out.States, StateReasoned)

		gaps := l.reflect(ctx, query, thought)
		out.States = append(out.States, StateReflected)
		if len(gaps) == 0 {
			break
		}
		out.Trace = append(out.Trace, fmt.Sprintf("reflection flagged %d gaps", len(gaps)))

		if rounds >= l.cfg.MaxCorrectionRounds {
			// Budget exhausted: finalize with the best evidence so far.
			out.Trace = append(out.Trace, "correction budget exhausted, finalizing with current evidence")
			out.Incomplete = true
			break
		}
		rounds++
		l.correct(ctx, gaps, evidence)
		out.States = append(out.States, StateCorrected)
	}

	response, stripped := l.finalize(ctx, query, thought, evidence)
	out.States = append(out.States, StateFinalized)
	if stripped > 0 {
		out.Trace = append(out.Trace, fmt.Sprintf("hallucination check stripped %d unsupported claims", stripped))
	}

	out.Response = response
	out.Confidence = evidence.Confidence
	out.Citations = evidence.Citations
	return out, nil
}

// reason generates a chain of thought from the query and evidence.
func (l *Loop) reason(ctx context.Context, query string, evidence *types.RetrievalResult) (string, error) {
	var sb strings.Builder
	sb.WriteString("You are a legal research assistant. Reason step by step about the question using only the evidence.\n\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\n\nEvidence:\n")
	for _, sc := range evidence.Chunks {
		fmt.Fprintf(&sb, "[%s] %s\n", sc.Chunk.DocumentID, sc.Chunk.Content)
	}

	thought, err := l.generator.Generate(ctx, sb.String(), llm.GenerateOptions{MaxTokens: 1024})
	if err != nil {
		return "", types.NewError(types.ErrGenerationFailed, "chain-of-thought generation failed").
			WithComponent("reasoning_loop").WithRetryable(true).WithCause(err)
	}
	return thought, nil
}

// reflect critiques the chain of thought. Gaps are returned as the
// lines prefixed "GAP:"; a failed critique call yields no gaps, which
// degrades to finalizing without correction rather than erroring.
func (l *Loop) reflect(ctx context.Context, query, thought string) []string {
	prompt := fmt.Sprintf(
		"Critique the following reasoning about the question %q. "+
			"List every unsupported claim or logical gap on its own line prefixed with \"GAP:\". "+
			"If there are none, reply OK.\n\nReasoning:\n%s", query, thought)

	critique, err := l.generator.Generate(ctx, prompt, llm.GenerateOptions{MaxTokens: 512})
	if err != nil {
		l.logger.Warn("reflection generation failed, skipping correction", zap.Error(err))
		return nil
	}

	var gaps []string
	for _, line := range strings.Split(critique, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "GAP:"); ok {
			if g := strings.TrimSpace(rest); g != "" {
				gaps = append(gaps, g)
			}
		}
	}
	return gaps
}

// correct issues one narrower retrieval per gap and merges the new
// evidence in. Retrieval failures degrade to no new evidence.
func (l *Loop) correct(ctx context.Context, gaps []string, evidence *types.RetrievalResult) {
	for _, gap := range gaps {
		fresh, err := l.retriever.Retrieve(ctx, types.QueryContext{Query: gap})
		if err != nil {
			l.logger.Warn("corrective retrieval failed", zap.String("gap", gap), zap.Error(err))
			continue
		}
		mergeResults(evidence, fresh)
	}
}

// finalize produces the response and strips claims not traceable to
// any retrieved chunk. Returns the response and the stripped count.
func (l *Loop) finalize(ctx context.Context, query, thought string, evidence *types.RetrievalResult) (string, int) {
	prompt := fmt.Sprintf(
		"Write the final answer to %q based on this reasoning. State only claims supported by the evidence.\n\nReasoning:\n%s",
		query, thought)
	response, err := l.generator.Generate(ctx, prompt, llm.GenerateOptions{MaxTokens: 1024})
	if err != nil {
		l.logger.Warn("final response generation failed, falling back to reasoning text", zap.Error(err))
		response = thought
	}

	return l.stripUnsupported(response, evidence)
}

// stripUnsupported keeps only sentences whose term overlap with some
// chunk meets the support threshold. Unsupported sentences are
// removed, never silently kept.
func (l *Loop) stripUnsupported(response string, evidence *types.RetrievalResult) (string, int) {
	sentences := splitClaims(response)
	if len(sentences) == 0 {
		return response, 0
	}

	var kept []string
	stripped := 0
	for _, s := range sentences {
		if l.supported(s, evidence) {
			kept = append(kept, s)
		} else {
			stripped++
			l.logger.Debug("stripping unsupported claim", zap.String("claim", s))
		}
	}
	if stripped == 0 {
		return response, 0
	}
	return strings.Join(kept, " "), stripped
}

// supported reports whether a claim's content words overlap some chunk
// at or above the support threshold.
func (l *Loop) supported(claim string, evidence *types.RetrievalResult) bool {
	terms := contentWords(claim)
	if len(terms) == 0 {
		// Nothing factual to trace; keep connective text.
		return true
	}
	threshold := l.cfg.SupportThreshold
	for _, sc := range evidence.Chunks {
		chunkTerms := contentWords(sc.Chunk.Content)
		overlap := 0
		for term := range terms {
			if chunkTerms[term] {
				overlap++
			}
		}
		if float64(overlap)/float64(len(terms)) >= threshold {
			return true
		}
	}
	return false
}

// Common English function words excluded from overlap scoring.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "to": true,
	"of": true, "in": true, "on": true, "for": true, "and": true,
	"or": true, "not": true, "that": true, "this": true, "it": true,
	"as": true, "by": true, "with": true, "at": true, "from": true,
	"under": true, "therefore": true, "thus": true, "however": true,
}

func contentWords(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,:;?!\"'()[]")
		if w == "" || stopWords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

// splitClaims splits a response into sentence-level claims.
func splitClaims(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i, r := range runes {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// cloneResult copies the result so corrective merges never mutate the
// caller's value.
func cloneResult(r *types.RetrievalResult) *types.RetrievalResult {
	cp := *r
	cp.Chunks = append([]types.ScoredChunk(nil), r.Chunks...)
	cp.Citations = append([]types.CitationInfo(nil), r.Citations...)
	cp.Contradictions = append([]types.ContradictionInfo(nil), r.Contradictions...)
	cp.Reasoning = append([]string(nil), r.Reasoning...)
	cp.Documents = make(map[string]types.LegalDocument, len(r.Documents))
	for k, v := range r.Documents {
		cp.Documents[k] = v
	}
	return &cp
}

// mergeResults unions fresh evidence into dst, deduplicating chunks by
// ID and citations by (chunk, text).
func mergeResults(dst, fresh *types.RetrievalResult) {
	have := make(map[string]bool, len(dst.Chunks))
	for _, sc := range dst.Chunks {
		have[sc.Chunk.ID] = true
	}
	for _, sc := range fresh.Chunks {
		if have[sc.Chunk.ID] {
			continue
		}
		have[sc.Chunk.ID] = true
		dst.Chunks = append(dst.Chunks, sc)
	}

	haveCit := make(map[[2]string]bool, len(dst.Citations))
	for _, c := range dst.Citations {
		haveCit[[2]string{c.ChunkID, c.Text}] = true
	}
	for _, c := range fresh.Citations {
		key := [2]string{c.ChunkID, c.Text}
		if haveCit[key] {
			continue
		}
		haveCit[key] = true
		dst.Citations = append(dst.Citations, c)
	}

	for id, doc := range fresh.Documents {
		if _, ok := dst.Documents[id]; !ok {
			dst.Documents[id] = doc
		}
	}
	if fresh.Confidence > 0 {
		// Merged confidence is the running mean of contributing results.
		dst.Confidence = (dst.Confidence + fresh.Confidence) / 2
	}
}
