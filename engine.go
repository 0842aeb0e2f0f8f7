// Package bearai assembles the retrieval and evidence-assembly
// pipeline behind one Engine facade: corpus mutation (ingest, update,
// remove), hybrid retrieval with reranking, citation verification,
// contradiction detection and confidence scoring, the agentic
// reasoning loop, and the multi-hop controller.
//
// Usage:
//
//	import bearai "github.com/KingOfTheAce2/BEAR-AI-sub001"
//
//	engine, err := bearai.New(cfg, bearai.Options{
//		Embedder:  myEmbedder,
//		Generator: myGenerator,
//		Resolver:  myResolver,
//	})
//	_ = engine.Ingest(ctx, doc)
//	result, err := engine.Retrieve(ctx, types.QueryContext{Query: "..."})
package bearai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/corpus"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/internal/cache"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/internal/metrics"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/rag"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/reasoning"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// Options supplies the external capabilities and optional overrides
// for building an Engine. Embedder, Generator, and Resolver are
// required; the rest default to in-process implementations.
type Options struct {
	// Required external capabilities.
	Embedder  llm.Embedder
	Generator llm.Generator
	Resolver  llm.CitationResolver

	// Optional capabilities. A nil Reranker disables reranking; a nil
	// Searcher uses the in-process vector index fed at ingestion.
	Reranker llm.Reranker
	Searcher llm.VectorSearcher

	// Optional infrastructure overrides.
	Store     corpus.Store
	Cache     cache.VectorStore
	Collector *metrics.Collector
	Logger    *zap.Logger
}

// Engine is the pipeline facade consumed by the application layer.
type Engine struct {
	cfg       *config.Config
	store     corpus.Store
	chunker   *rag.Chunker
	sparse    *rag.SparseIndex
	vectors   *rag.MemoryVectorIndex
	graph     *rag.DocumentGraph
	embedder  llm.Embedder
	embCache  cache.VectorStore
	hybrid    *rag.HybridRetriever
	reranker  *rag.Reranker
	verifier  *rag.CitationVerifier
	detector  *rag.ContradictionDetector
	scorer    *rag.ConfidenceScorer
	loop      *reasoning.Loop
	multiHop  *rag.MultiHopController
	collector *metrics.Collector
	logger    *zap.Logger
}

// New builds an Engine from configuration and capabilities.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts.Embedder == nil {
		return nil, errors.New("bearai: an Embedder is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("bearai: a Generator is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("bearai: a CitationResolver is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := opts.Store
	if store == nil {
		store = corpus.NewMemoryStore()
	}

	embStore := opts.Cache
	if embStore == nil {
		embStore = cache.NewMemoryStore(cfg.Cache.Capacity)
	}
	embedder := cache.NewCachingEmbedder(opts.Embedder, embStore, opts.Collector, logger)

	sparse := rag.NewSparseIndex(cfg.Retrieval.BM25K1, cfg.Retrieval.BM25B)
	vectors := rag.NewMemoryVectorIndex()
	graph := rag.NewDocumentGraph()

	searcher := opts.Searcher
	if searcher == nil {
		searcher = vectors
	}

	hybrid := rag.NewHybridRetriever(
		cfg.Retrieval, cfg.Chunking.MaxAge,
		store, sparse, searcher, embedder, graph,
		opts.Collector, logger,
	)

	e := &Engine{
		cfg:       cfg,
		store:     store,
		chunker:   rag.NewChunker(cfg.Chunking, rag.NewTokenizer(cfg.Chunking.TokenizerModel, logger), logger),
		sparse:    sparse,
		vectors:   vectors,
		graph:     graph,
		embedder:  embedder,
		embCache:  embStore,
		hybrid:    hybrid,
		reranker:  rag.NewReranker(cfg.Rerank, opts.Reranker, opts.Collector, logger),
		verifier:  rag.NewCitationVerifier(cfg.Citation, opts.Resolver, opts.Collector, logger),
		detector:  rag.NewContradictionDetector(logger),
		scorer:    rag.NewConfidenceScorer(cfg.Confidence),
		collector: opts.Collector,
		logger:    logger.With(zap.String("component", "engine")),
	}
	e.loop = reasoning.NewLoop(cfg.Reasoning, opts.Generator, e, logger)
	e.multiHop = rag.NewMultiHopController(cfg.MultiHop, e, opts.Generator, logger)
	return e, nil
}

// Ingest chunks, enriches, embeds, and indexes one document, then
// links it into the relationship graph by shared citations. Corpus
// faults propagate to the caller; they are the only fatal errors.
func (e *Engine) Ingest(ctx context.Context, doc *types.LegalDocument) error {
	if doc == nil || doc.ID == "" {
		return types.NewError(types.ErrInvalidDocument, "ingest: document must have an ID").
			WithComponent("engine")
	}
	if doc.Type != "" && !doc.Type.Valid() {
		return types.NewError(types.ErrInvalidDocument, fmt.Sprintf("ingest: unknown document type %q", doc.Type)).
			WithComponent("engine")
	}

	chunks := e.chunker.Chunk(doc)

	// Embed chunk contents through the cache. Embedding failure is not
	// fatal: the document still serves sparse and graph retrieval.
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Content
		}
		vectors, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			e.logger.Warn("chunk embedding failed, document indexed without vectors",
				zap.String("document_id", doc.ID), zap.Error(err))
		} else {
			for i := range chunks {
				chunks[i].Embedding = vectors[i]
			}
		}
	}

	if err := e.store.PutDocument(ctx, doc, chunks); err != nil {
		return types.NewError(types.ErrStoreFailure, "ingest: persist document").
			WithComponent("engine").WithCause(err)
	}

	sparseChunks := make([]rag.SparseChunk, len(chunks))
	for i, c := range chunks {
		sparseChunks[i] = rag.SparseChunk{ID: c.ID, Content: c.Content}
	}
	e.sparse.IndexDocument(doc.ID, sparseChunks)
	e.vectors.IndexDocument(doc, chunks)
	if err := e.linkRelations(ctx, doc); err != nil {
		e.logger.Warn("relation linking failed", zap.String("document_id", doc.ID), zap.Error(err))
	}

	e.collector.RecordIngestion(len(chunks))
	e.logger.Info("document ingested",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)))
	return nil
}

// Update re-ingests a document: chunking, enrichment, and indexing are
// re-triggered for that document only.
func (e *Engine) Update(ctx context.Context, doc *types.LegalDocument) error {
	return e.Ingest(ctx, doc)
}

// Remove deletes a document from the corpus, every index, and the
// relationship graph.
func (e *Engine) Remove(ctx context.Context, documentID string) error {
	if err := e.store.RemoveDocument(ctx, documentID); err != nil {
		return err
	}
	e.sparse.RemoveDocument(documentID)
	e.vectors.RemoveDocument(documentID)
	e.graph.RemoveDocument(documentID)
	e.logger.Info("document removed", zap.String("document_id", documentID))
	return nil
}

// AddRelation upserts an edge in the document relationship graph.
func (e *Engine) AddRelation(source, target string, kind types.RelationKind, strength float64) {
	e.graph.AddRelation(source, target, kind, strength)
}

// linkRelations adds cites edges between the new document and corpus
// documents whose citation strings overlap.
func (e *Engine) linkRelations(ctx context.Context, doc *types.LegalDocument) error {
	if len(doc.Citations) == 0 {
		return nil
	}
	cited := make(map[string]bool, len(doc.Citations))
	for _, c := range doc.Citations {
		cited[c] = true
	}

	docs, err := e.store.Documents(ctx)
	if err != nil {
		return err
	}
	for _, other := range docs {
		if other.ID == doc.ID {
			continue
		}
		for _, c := range other.Citations {
			if cited[c] {
				e.graph.AddRelation(doc.ID, other.ID, types.RelationCites, 0.7)
				break
			}
		}
	}
	return nil
}

// Retrieve runs the full pipeline: hybrid retrieval and fusion,
// reranking, citation verification, contradiction detection, and
// confidence scoring. A degraded result still returns; partial
// evidence with lowered confidence beats no answer.
func (e *Engine) Retrieve(ctx context.Context, qc types.QueryContext) (*types.RetrievalResult, error) {
	start := time.Now()
	result, err := e.hybrid.Retrieve(ctx, qc)
	if err != nil {
		return nil, err
	}

	reranked, degraded := e.reranker.Rerank(ctx, qc.Query, result.Chunks)
	result.Chunks = reranked
	if degraded {
		result.Reasoning = append(result.Reasoning, "reranking degraded, fused order kept")
	}

	result.Citations = e.verifier.Verify(ctx, result.Chunks)
	result.Contradictions = e.detector.Detect(result.Chunks, result.Documents)
	e.scorer.Score(result)

	e.collector.RecordStageDuration("pipeline", time.Since(start))
	return result, nil
}

// Reason runs the agentic reasoning loop over a retrieval result.
func (e *Engine) Reason(ctx context.Context, query string, result *types.RetrievalResult) (*reasoning.Outcome, error) {
	return e.loop.Run(ctx, query, result)
}

// MultiHop answers a complex query with up to max_hops sequential
// retrieval rounds. Simple queries take a single hop.
func (e *Engine) MultiHop(ctx context.Context, query string, advanced bool) (*rag.MultiHopResult, error) {
	if !e.multiHop.IsComplex(query, advanced) {
		result, err := e.Retrieve(ctx, types.QueryContext{Query: query, MaxResults: e.cfg.MultiHop.ResultsPerHop})
		if err != nil {
			return nil, err
		}
		outcome, err := e.loop.Run(ctx, query, result)
		if err != nil {
			return nil, err
		}
		return &rag.MultiHopResult{
			Hops:       []*types.RetrievalResult{result},
			Answer:     outcome.Response,
			Confidence: outcome.Confidence,
			Incomplete: outcome.Incomplete,
		}, nil
	}
	return e.multiHop.Run(ctx, query)
}

// SystemStatus reports coarse component health for the application
// layer: healthy, degraded when any component is impaired, down when
// the corpus itself is unreachable.
func (e *Engine) SystemStatus(ctx context.Context) types.SystemStatus {
	status := types.SystemStatus{
		Components: make(map[string]types.ComponentHealth),
		CheckedAt:  time.Now(),
	}

	docs, chunks, err := e.store.Stats(ctx)
	if err != nil {
		status.Components["corpus"] = types.ComponentHealth{State: types.HealthDown, Message: err.Error()}
	} else {
		status.Components["corpus"] = types.ComponentHealth{
			State:   types.HealthHealthy,
			Message: fmt.Sprintf("%d documents, %d chunks", docs, chunks),
		}
	}
	status.Components["sparse_index"] = types.ComponentHealth{
		State:   types.HealthHealthy,
		Message: fmt.Sprintf("%d chunks indexed", e.sparse.Len()),
	}
	status.Components["vector_index"] = types.ComponentHealth{
		State:   types.HealthHealthy,
		Message: fmt.Sprintf("%d vectors indexed", e.vectors.Len()),
	}
	status.Components["graph"] = types.ComponentHealth{
		State:   types.HealthHealthy,
		Message: fmt.Sprintf("%d relations", e.graph.Size()),
	}
	status.Components["embedding_cache"] = types.ComponentHealth{
		State:   types.HealthHealthy,
		Message: fmt.Sprintf("%d entries", e.embCache.Len()),
	}

	status.State = types.HealthHealthy
	for _, c := range status.Components {
		switch c.State {
		case types.HealthDown:
			status.State = types.HealthDown
		case types.HealthDegraded:
			if status.State == types.HealthHealthy {
				status.State = types.HealthDegraded
			}
		}
	}
	return status
}
