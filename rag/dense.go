package rag

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/llm"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// =============================================================================
// 🧭 稠密检索（向量近邻）
// =============================================================================

type vectorEntry struct {
	documentID   string
	jurisdiction string
	docType      types.DocumentType
	vector       []float64
}

// MemoryVectorIndex 进程内余弦相似度向量索引，实现 llm.VectorSearcher。
// 生产部署可替换为外部向量服务；契约一致。
type MemoryVectorIndex struct {
	mu      sync.RWMutex
	entries map[string]vectorEntry // chunkID -> entry
	byDoc   map[string][]string    // documentID -> chunkIDs
}

// NewMemoryVectorIndex 创建空向量索引。
func NewMemoryVectorIndex() *MemoryVectorIndex {
	return &MemoryVectorIndex{
		entries: make(map[string]vectorEntry),
		byDoc:   make(map[string][]string),
	}
}

// IndexDocument 替换一个文档的全部块向量。
func (v *MemoryVectorIndex) IndexDocument(doc *types.LegalDocument, chunks []types.Chunk) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.removeLocked(doc.ID)

	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		vec := make([]float64, len(c.Embedding))
		copy(vec, c.Embedding)
		v.entries[c.ID] = vectorEntry{
			documentID:   doc.ID,
			jurisdiction: doc.Jurisdiction,
			docType:      doc.Type,
			vector:       vec,
		}
		ids = append(ids, c.ID)
	}
	v.byDoc[doc.ID] = ids
}

// RemoveDocument 删除文档的全部块向量。
func (v *MemoryVectorIndex) RemoveDocument(documentID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.removeLocked(documentID)
}

func (v *MemoryVectorIndex) removeLocked(documentID string) {
	for _, id := range v.byDoc[documentID] {
		delete(v.entries, id)
	}
	delete(v.byDoc, documentID)
}

// Search 实现 llm.VectorSearcher。
// 余弦相似度降序，同分按块 ID 升序。
func (v *MemoryVectorIndex) Search(_ context.Context, vector []float64, k int, filters llm.SearchFilters) ([]llm.VectorHit, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	var hits []llm.VectorHit
	for chunkID, entry := range v.entries {
		if filters.Jurisdiction != "" && entry.jurisdiction != filters.Jurisdiction {
			continue
		}
		if filters.DocumentType != "" && entry.docType != filters.DocumentType {
			continue
		}
		score := CosineSimilarity(vector, entry.vector)
		if score <= 0 {
			continue
		}
		hits = append(hits, llm.VectorHit{ChunkID: chunkID, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len 返回索引中的向量数。
func (v *MemoryVectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// CosineSimilarity 计算两向量的余弦相似度。
// 维度不一致或零向量返回 0。
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
