package types

import "time"

// CitationStatus is the resolved precedential status of a citation
// ("Shepardization" outcome).
type CitationStatus string

const (
	CitationGoodLaw    CitationStatus = "good_law"
	CitationQuestioned CitationStatus = "questioned"
	CitationOverruled  CitationStatus = "overruled"
	CitationUnknown    CitationStatus = "unknown"
)

// CitationInfo is the verification result for one citation occurrence.
// Produced fresh per query and never cached across queries.
type CitationInfo struct {
	ID                string            `json:"id"`
	Text              string            `json:"text"`
	ChunkID           string            `json:"chunk_id"`
	DocumentID        string            `json:"document_id"`
	Recognized        bool              `json:"recognized"`
	Verified          bool              `json:"verified"`
	Confidence        float64           `json:"confidence"`
	Status            CitationStatus    `json:"status"`
	PrecedentialValue PrecedentialValue `json:"precedential_value,omitempty"`
}

// ConflictType classifies a contradiction between two authorities.
type ConflictType string

const (
	ConflictDirect         ConflictType = "direct"
	ConflictTemporal       ConflictType = "temporal"
	ConflictJurisdictional ConflictType = "jurisdictional"
)

// ConflictSeverity grades a contradiction.
type ConflictSeverity string

const (
	SeverityHigh   ConflictSeverity = "high"
	SeverityMedium ConflictSeverity = "medium"
	SeverityLow    ConflictSeverity = "low"
)

// ContradictionInfo is a pairwise finding between two documents in the
// same result set. Always derived, never stored independently.
type ContradictionInfo struct {
	DocumentA   string           `json:"document_a"`
	DocumentB   string           `json:"document_b"`
	Type        ConflictType     `json:"type"`
	Severity    ConflictSeverity `json:"severity"`
	Explanation string           `json:"explanation"`
}

// ScoredChunk pairs a chunk with its fused and reranked scores.
type ScoredChunk struct {
	Chunk       Chunk   `json:"chunk"`
	FusedScore  float64 `json:"fused_score"`
	RerankScore float64 `json:"rerank_score,omitempty"`
	FinalScore  float64 `json:"final_score"`
}

// StrategyRanking records one retrieval strategy's ranked chunk ids
// before fusion. Kept on the result so no strategy contribution is
// silently lost in fusion.
type StrategyRanking struct {
	Strategy string   `json:"strategy"`
	ChunkIDs []string `json:"chunk_ids"`
	Degraded bool     `json:"degraded,omitempty"`
}

// RetrievalResult is the pipeline's output for one query or hop.
type RetrievalResult struct {
	ID             string                   `json:"id"`
	Query          string                   `json:"query"`
	ExpandedQuery  string                   `json:"expanded_query,omitempty"`
	Chunks         []ScoredChunk            `json:"chunks"`
	Documents      map[string]LegalDocument `json:"documents"`
	Citations      []CitationInfo           `json:"citations,omitempty"`
	Contradictions []ContradictionInfo      `json:"contradictions,omitempty"`
	Relations      []GraphRelation          `json:"relations,omitempty"`
	Rankings       []StrategyRanking        `json:"rankings,omitempty"`
	Confidence     float64                  `json:"confidence"`
	Reasoning      []string                 `json:"reasoning"`
	Incomplete     bool                     `json:"incomplete,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

// ChunkIDs returns the ordered chunk ids of the result.
func (r *RetrievalResult) ChunkIDs() []string {
	ids := make([]string, len(r.Chunks))
	for i := range r.Chunks {
		ids[i] = r.Chunks[i].Chunk.ID
	}
	return ids
}

// HasDocument reports whether the document id appears in the result.
func (r *RetrievalResult) HasDocument(id string) bool {
	_, ok := r.Documents[id]
	return ok
}

// HealthState is a coarse component health classification.
type HealthState string

const (
	HealthHealthy  HealthState = "healthy"
	HealthDegraded HealthState = "degraded"
	HealthDown     HealthState = "down"
)

// ComponentHealth is one entry of the system status map.
type ComponentHealth struct {
	State   HealthState `json:"state"`
	Message string      `json:"message,omitempty"`
}

// SystemStatus is the aggregate health snapshot exposed to the
// application layer.
type SystemStatus struct {
	State      HealthState                `json:"state"`
	Components map[string]ComponentHealth `json:"components"`
	CheckedAt  time.Time                  `json:"checked_at"`
}
