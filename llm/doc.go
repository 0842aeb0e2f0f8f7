// Package llm defines the boundary to the external model capabilities
// the retrieval core depends on: text embedding, text generation,
// shortlist reranking, nearest-neighbor search over the externally
// maintained vector index, and the citation source-of-truth lookup.
//
// Every capability is an interface; the core never assumes a concrete
// provider. Resilient* wrappers add per-call timeouts, rate limiting
// and retry with exponential backoff so pipeline stages can degrade
// instead of failing the whole query.
package llm
