package rag

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// =============================================================================
// 🔑 稀疏检索（BM25）
// =============================================================================

// Hit 单策略的一条检索命中。
type Hit struct {
	ChunkID    string
	DocumentID string
	Score      float64
}

type indexedChunk struct {
	documentID string
	terms      map[string]int
	length     int
}

// SparseIndex 块级 BM25 倒排索引。
// 按文档增删，写操作串行化，检索并发安全。
type SparseIndex struct {
	mu sync.RWMutex
	k1 float64
	b  float64

	chunks   map[string]*indexedChunk // chunkID -> postings
	byDoc    map[string][]string      // documentID -> chunkIDs
	df       map[string]int           // term -> document frequency (chunk 粒度)
	totalLen int
}

// NewSparseIndex 创建 BM25 索引。参数非正时使用 k1=1.5, b=0.75。
func NewSparseIndex(k1, b float64) *SparseIndex {
	if k1 <= 0 {
		k1 = 1.5
	}
	if b <= 0 {
		b = 0.75
	}
	return &SparseIndex{
		k1:     k1,
		b:      b,
		chunks: make(map[string]*indexedChunk),
		byDoc:  make(map[string][]string),
		df:     make(map[string]int),
	}
}

// IndexDocument 替换一个文档的全部块。重复调用先清除旧块。
func (idx *SparseIndex) IndexDocument(documentID string, chunks []SparseChunk) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(documentID)

	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		terms := termFrequencies(c.Content)
		length := 0
		for _, n := range terms {
			length += n
		}
		idx.chunks[c.ID] = &indexedChunk{
			documentID: documentID,
			terms:      terms,
			length:     length,
		}
		for term := range terms {
			idx.df[term]++
		}
		idx.totalLen += length
		ids = append(ids, c.ID)
	}
	idx.byDoc[documentID] = ids
}

// SparseChunk 建索引所需的最小块视图。
type SparseChunk struct {
	ID      string
	Content string
}

// RemoveDocument 从索引中删除文档的全部块。
func (idx *SparseIndex) RemoveDocument(documentID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(documentID)
}

func (idx *SparseIndex) removeLocked(documentID string) {
	for _, chunkID := range idx.byDoc[documentID] {
		c, ok := idx.chunks[chunkID]
		if !ok {
			continue
		}
		for term := range c.terms {
			idx.df[term]--
			if idx.df[term] <= 0 {
				delete(idx.df, term)
			}
		}
		idx.totalLen -= c.length
		delete(idx.chunks, chunkID)
	}
	delete(idx.byDoc, documentID)
}

// Search 返回 BM25 得分最高的 k 个块。
// allow 为 nil 时不过滤；否则仅保留 allow(documentID) 为真的块。
// 同分按块 ID 升序，保证确定性。
func (idx *SparseIndex) Search(query string, k int, allow func(documentID string) bool) []Hit {
	if k <= 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	queryTerms := tokenizeTerms(query)
	if len(queryTerms) == 0 || len(idx.chunks) == 0 {
		return nil
	}

	n := float64(len(idx.chunks))
	avgLen := float64(idx.totalLen) / n

	var hits []Hit
	for chunkID, c := range idx.chunks {
		if allow != nil && !allow(c.documentID) {
			continue
		}
		score := 0.0
		for _, term := range queryTerms {
			tf := float64(c.terms[term])
			if tf == 0 {
				continue
			}
			df := float64(idx.df[term])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := 1 - idx.b + idx.b*float64(c.length)/avgLen
			score += idf * tf * (idx.k1 + 1) / (tf + idx.k1*norm)
		}
		if score > 0 {
			hits = append(hits, Hit{ChunkID: chunkID, DocumentID: c.documentID, Score: score})
		}
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
	return hits
}

// Len 返回索引中的块数。
func (idx *SparseIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// tokenizeTerms 小写化并按非字母数字切词。
// 保留 "f.3d"、"§" 等引用记号中的数字段。
func tokenizeTerms(text string) []string {
	var terms []string
	var sb strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			continue
		}
		if sb.Len() > 0 {
			terms = append(terms, sb.String())
			sb.Reset()
		}
	}
	if sb.Len() > 0 {
		terms = append(terms, sb.String())
	}
	return terms
}

func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, t := range tokenizeTerms(text) {
		freq[t]++
	}
	return freq
}
