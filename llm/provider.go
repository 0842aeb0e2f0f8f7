package llm

import (
	"context"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// Embedder turns text into embedding vectors.
type Embedder interface {
	// Embed returns the embedding vector for one text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// GenerateOptions controls a single generation call.
type GenerateOptions struct {
	MaxTokens     int      `json:"max_tokens,omitempty"`
	Temperature   float64  `json:"temperature,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty"`
}

// Generator produces text from a prompt.
type Generator interface {
	// Generate returns the full completion for the prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateStream yields incremental text on the returned channel.
	// The channel is closed when generation finishes or ctx is done.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan string, error)
}

// RerankItem is one entry of a reranking response: the index into the
// candidate list and the provider's relevance score.
type RerankItem struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Reranker reorders a shortlist of candidate texts for a query.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []string) ([]RerankItem, error)
}

// VectorHit is one nearest-neighbor search result.
type VectorHit struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// SearchFilters narrows a nearest-neighbor search.
type SearchFilters struct {
	Jurisdiction string             `json:"jurisdiction,omitempty"`
	DocumentType types.DocumentType `json:"document_type,omitempty"`
}

// VectorSearcher is the externally maintained vector index.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float64, k int, filters SearchFilters) ([]VectorHit, error)
}

// Resolution is the source-of-truth answer for one citation string.
type Resolution struct {
	Exists            bool                    `json:"exists"`
	Status            types.CitationStatus    `json:"status"`
	PrecedentialValue types.PrecedentialValue `json:"precedential_value,omitempty"`
	Title             string                  `json:"title,omitempty"`
	Court             string                  `json:"court,omitempty"`
	Year              int                     `json:"year,omitempty"`
}

// CitationResolver checks a citation string against the legal
// source-of-truth service.
type CitationResolver interface {
	Resolve(ctx context.Context, citation string) (Resolution, error)
}
