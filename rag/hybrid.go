package rag

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/corpus"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/internal/metrics"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 🔀 混合检索器
// =============================================================================
// 稀疏与稠密策略对同一扩展查询并发执行，图游走以两者命中
// 文档的并集为种子随后执行，加权倒数排名融合后截断到 max_results。
// 单策略失败降级为空贡献并记入 reasoning，从不中止整个查询。
// =============================================================================

// 策略名
const (
	StrategySparse = "sparse"
	StrategyDense  = "dense"
	StrategyGraph  = "graph"
)

// HybridRetriever 混合多阶段检索器。
type HybridRetriever struct {
	cfg       config.RetrievalConfig
	maxAge    time.Duration
	store     corpus.Store
	sparse    *SparseIndex
	searcher  llm.VectorSearcher
	embedder  llm.Embedder
	graph     *DocumentGraph
	collector *metrics.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// NewHybridRetriever 创建混合检索器。
// maxAge 是时间相关性视野，检索时按它重算每块的时间相关性。
func NewHybridRetriever(
	cfg config.RetrievalConfig,
	maxAge time.Duration,
	store corpus.Store,
	sparse *SparseIndex,
	searcher llm.VectorSearcher,
	embedder llm.Embedder,
	graph *DocumentGraph,
	collector *metrics.Collector,
	logger *zap.Logger,
) *HybridRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridRetriever{
		cfg:       cfg,
		maxAge:    maxAge,
		store:     store,
		sparse:    sparse,
		searcher:  searcher,
		embedder:  embedder,
		graph:     graph,
		collector: collector,
		logger:    logger.With(zap.String("component", "hybrid_retriever")),
		now:       time.Now,
	}
}

// strategyOutput 单策略的结果，由对应 goroutine 独占写入
type strategyOutput struct {
	hits      []Hit
	relations []types.GraphRelation
	degraded  bool
	note      string
}

// Retrieve 执行稀疏 ∥ 稠密 ∥ 图检索并融合。
// 返回的结果可能带有降级标注，但除语料库故障外不返回错误。
func (r *HybridRetriever) Retrieve(ctx context.Context, qc types.QueryContext) (*types.RetrievalResult, error) {
	start := r.now()

	docs, err := r.store.Documents(ctx)
	if err != nil {
		r.collector.RecordRetrieval("error")
		return nil, types.NewError(types.ErrStoreFailure, "load corpus documents").
			WithComponent("hybrid_retriever").WithCause(err)
	}
	allowed := make(map[string]types.LegalDocument)
	for _, doc := range docs {
		if qc.Matches(doc) {
			allowed[doc.ID] = *doc
		}
	}
	allow := func(documentID string) bool {
		_, ok := allowed[documentID]
		return ok
	}

	expanded := qc.Query
	if r.cfg.EnableExpansion {
		expanded = ExpandQuery(qc.Query)
	}

	k := r.cfg.PerStrategyK
	var sparseOut, denseOut, graphOut strategyOutput

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := r.now()
		sparseOut.hits = r.sparse.Search(expanded, k, allow)
		r.collector.RecordStageDuration(StrategySparse, r.now().Sub(t))
		return nil
	})
	g.Go(func() error {
		t := r.now()
		denseOut = r.denseSearch(gctx, expanded, k, qc, allow)
		r.collector.RecordStageDuration(StrategyDense, r.now().Sub(t))
		return nil
	})
	// 策略自行降级，不向上传播错误
	_ = g.Wait()

	// 图游走以稀疏和稠密命中文档的并集为种子
	gt := r.now()
	graphOut = r.graphSearch(ctx, sparseOut.hits, denseOut.hits, allow)
	r.collector.RecordStageDuration(StrategyGraph, r.now().Sub(gt))

	rankings := []types.StrategyRanking{
		{Strategy: StrategySparse, ChunkIDs: hitIDs(sparseOut.hits), Degraded: sparseOut.degraded},
		{Strategy: StrategyDense, ChunkIDs: hitIDs(denseOut.hits), Degraded: denseOut.degraded},
		{Strategy: StrategyGraph, ChunkIDs: hitIDs(graphOut.hits), Degraded: graphOut.degraded},
	}

	fused := fuseRankings(rankings, []float64{r.cfg.SparseWeight, r.cfg.DenseWeight, r.cfg.GraphWeight})
	r.collector.RecordFusionCandidates(len(fused))

	maxResults := r.cfg.MaxResults
	if qc.MaxResults > 0 && qc.MaxResults < maxResults {
		maxResults = qc.MaxResults
	}

	result := &types.RetrievalResult{
		ID:            uuid.NewString(),
		Query:         qc.Query,
		ExpandedQuery: expanded,
		Documents:     make(map[string]types.LegalDocument),
		Relations:     graphOut.relations,
		Rankings:      rankings,
		CreatedAt:     start,
	}

	for _, o := range []strategyOutput{sparseOut, denseOut, graphOut} {
		if o.note != "" {
			result.Reasoning = append(result.Reasoning, o.note)
		}
	}
	result.Reasoning = append(result.Reasoning, fmt.Sprintf(
		"fused %d candidates from %d sparse, %d dense, %d graph hits",
		len(fused), len(sparseOut.hits), len(denseOut.hits), len(graphOut.hits)))

	r.assemble(ctx, result, fused, qc, allowed, maxResults)

	r.collector.RecordRetrieval("ok")
	r.logger.Debug("retrieval completed",
		zap.String("query", qc.Query),
		zap.Int("chunks", len(result.Chunks)),
		zap.Duration("elapsed", r.now().Sub(start)))
	return result, nil
}

// denseSearch 嵌入查询并查询向量索引，失败时降级为空贡献。
func (r *HybridRetriever) denseSearch(ctx context.Context, query string, k int, qc types.QueryContext, allow func(string) bool) strategyOutput {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.collector.RecordDegradation(StrategyDense)
		r.logger.Warn("dense retrieval degraded: embedding failed", zap.Error(err))
		return strategyOutput{degraded: true, note: "dense retrieval degraded: query embedding failed"}
	}

	hits, err := r.searcher.Search(ctx, vec, k, llm.SearchFilters{
		Jurisdiction: qc.Jurisdiction,
		DocumentType: qc.DocumentType,
	})
	if err != nil {
		r.collector.RecordDegradation(StrategyDense)
		r.logger.Warn("dense retrieval degraded: vector search failed", zap.Error(err))
		return strategyOutput{degraded: true, note: "dense retrieval degraded: vector search failed"}
	}

	var out strategyOutput
	for _, h := range hits {
		chunk, err := r.store.Chunk(ctx, h.ChunkID)
		if err != nil {
			// 索引里残留的陈旧块引用，按策略内完整性故障跳过
			r.logger.Warn("dense hit references missing chunk", zap.String("chunk_id", h.ChunkID))
			continue
		}
		if !allow(chunk.DocumentID) {
			continue
		}
		out.hits = append(out.hits, Hit{ChunkID: h.ChunkID, DocumentID: chunk.DocumentID, Score: h.Score})
	}
	return out
}

// graphSearch 以稀疏与稠密命中文档的并集为种子游走关系图，
// 为相关文档的块打分。每策略最多贡献 graph_seeds 个种子文档。
// 块得分为到达该文档的最大路径强度，同分按块 ID 排序。
func (r *HybridRetriever) graphSearch(ctx context.Context, sparseHits, denseHits []Hit, allow func(string) bool) strategyOutput {
	seedDocs := make(map[string]bool)
	for _, hits := range [][]Hit{sparseHits, denseHits} {
		taken := make(map[string]bool)
		for _, h := range hits {
			if len(taken) >= r.cfg.GraphSeeds {
				break
			}
			taken[h.DocumentID] = true
			seedDocs[h.DocumentID] = true
		}
	}
	if len(seedDocs) == 0 {
		return strategyOutput{}
	}

	// 文档 -> 最大路径强度
	reached := make(map[string]float64)
	var relations []types.GraphRelation
	for seedDoc := range seedDocs {
		for _, n := range r.graph.Neighbors(seedDoc, r.cfg.GraphMaxHops) {
			if seedDocs[n.DocumentID] || !allow(n.DocumentID) {
				continue
			}
			if n.Strength > reached[n.DocumentID] {
				reached[n.DocumentID] = n.Strength
			}
		}
		relations = append(relations, r.graph.Relations(seedDoc)...)
	}
	if len(reached) == 0 {
		return strategyOutput{relations: dedupeRelations(relations)}
	}

	var out strategyOutput
	out.relations = dedupeRelations(relations)
	for docID, strength := range reached {
		chunks, err := r.store.DocumentChunks(ctx, docID)
		if err != nil {
			r.collector.RecordDegradation(StrategyGraph)
			r.logger.Warn("graph retrieval degraded: chunk load failed",
				zap.String("document_id", docID), zap.Error(err))
			out.degraded = true
			out.note = "graph retrieval degraded: chunk load failed"
			continue
		}
		for _, c := range chunks {
			out.hits = append(out.hits, Hit{ChunkID: c.ID, DocumentID: docID, Score: strength})
		}
	}

	sort.Slice(out.hits, func(i, j int) bool {
		if out.hits[i].Score != out.hits[j].Score {
			return out.hits[i].Score > out.hits[j].Score
		}
		return out.hits[i].ChunkID < out.hits[j].ChunkID
	})
	if len(out.hits) > r.cfg.PerStrategyK {
		out.hits = out.hits[:r.cfg.PerStrategyK]
	}
	return out
}

// fusedCandidate 融合后的候选块
type fusedCandidate struct {
	chunkID   string
	score     float64
	firstSeen int
}

// fuseRankings 加权倒数排名融合：每策略按 weight/(rank+1) 计分求和。
// 平分按跨策略首次出现顺序稳定排序，保证可复现。
func fuseRankings(rankings []types.StrategyRanking, weights []float64) []fusedCandidate {
	scores := make(map[string]*fusedCandidate)
	seen := 0
	for si, ranking := range rankings {
		w := weights[si]
		for rank, chunkID := range ranking.ChunkIDs {
			c, ok := scores[chunkID]
			if !ok {
				c = &fusedCandidate{chunkID: chunkID, firstSeen: seen}
				scores[chunkID] = c
				seen++
			}
			c.score += w / float64(rank+1)
		}
	}

	out := make([]fusedCandidate, 0, len(scores))
	for _, c := range scores {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].firstSeen < out[j].firstSeen
	})
	return out
}

// assemble 载入幸存候选块并应用请求级过滤。
// 引用丢失文档的块是该块的致命故障：丢弃并记录，从不默默保留。
func (r *HybridRetriever) assemble(
	ctx context.Context,
	result *types.RetrievalResult,
	fused []fusedCandidate,
	qc types.QueryContext,
	allowed map[string]types.LegalDocument,
	maxResults int,
) {
	dropped := 0
	for _, cand := range fused {
		if len(result.Chunks) >= maxResults {
			break
		}
		chunk, err := r.store.Chunk(ctx, cand.chunkID)
		if err != nil {
			dropped++
			r.logger.Warn("dropping chunk with missing backing record",
				zap.String("chunk_id", cand.chunkID), zap.Error(err))
			continue
		}
		doc, ok := allowed[chunk.DocumentID]
		if !ok {
			dropped++
			r.logger.Warn("dropping chunk whose document left the corpus",
				zap.String("chunk_id", chunk.ID),
				zap.String("document_id", chunk.DocumentID))
			continue
		}
		if qc.RequireCitations && len(chunk.Citations) == 0 {
			continue
		}
		if qc.MinConfidence > 0 && chunk.Confidence < qc.MinConfidence {
			continue
		}

		chunk.TemporalRelevance = TemporalRelevance(doc.LastUpdated, r.maxAge, r.now())
		result.Chunks = append(result.Chunks, types.ScoredChunk{
			Chunk:      *chunk,
			FusedScore: cand.score,
			FinalScore: cand.score,
		})
		result.Documents[doc.ID] = doc
	}
	if dropped > 0 {
		result.Reasoning = append(result.Reasoning,
			fmt.Sprintf("dropped %d chunks with integrity faults", dropped))
	}
}

func hitIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	return ids
}

func dedupeRelations(rels []types.GraphRelation) []types.GraphRelation {
	type key struct {
		s, t string
		k    types.RelationKind
	}
	seen := make(map[key]bool)
	var out []types.GraphRelation
	for _, rel := range rels {
		kk := key{rel.SourceID, rel.TargetID, rel.Kind}
		if seen[kk] {
			continue
		}
		seen[kk] = true
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		if out[i].TargetID != out[j].TargetID {
			return out[i].TargetID < out[j].TargetID
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
