package types

import "time"

// DocumentType classifies a legal document.
type DocumentType string

const (
	DocTypeStatute    DocumentType = "statute"
	DocTypeCaseLaw    DocumentType = "case_law"
	DocTypeRegulation DocumentType = "regulation"
	DocTypeContract   DocumentType = "contract"
	DocTypeBrief      DocumentType = "brief"
	DocTypeOpinion    DocumentType = "opinion"
)

// Valid reports whether t is a recognized document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocTypeStatute, DocTypeCaseLaw, DocTypeRegulation, DocTypeContract, DocTypeBrief, DocTypeOpinion:
		return true
	}
	return false
}

// PrecedentialValue describes how much authority a document carries.
type PrecedentialValue string

const (
	PrecedentBinding    PrecedentialValue = "binding"
	PrecedentPersuasive PrecedentialValue = "persuasive"
	PrecedentNone       PrecedentialValue = "not_precedential"
)

// DocumentMeta is the closed metadata record attached to a document.
// Unknown keys supplied at ingestion are recorded in Quarantined and
// dropped; they never propagate through the pipeline.
type DocumentMeta struct {
	Court               string            `json:"court,omitempty" yaml:"court,omitempty"`
	Judge               string            `json:"judge,omitempty" yaml:"judge,omitempty"`
	Parties             []string          `json:"parties,omitempty" yaml:"parties,omitempty"`
	Topics              []string          `json:"topics,omitempty" yaml:"topics,omitempty"`
	PrecedentialValue   PrecedentialValue `json:"precedential_value,omitempty" yaml:"precedential_value,omitempty"`
	IngestionConfidence float64           `json:"ingestion_confidence,omitempty" yaml:"ingestion_confidence,omitempty"`
	Quarantined         []string          `json:"quarantined,omitempty" yaml:"quarantined,omitempty"`
}

// LegalDocument is an immutable-once-ingested corpus record. Chunks
// reference it by ID and never copy it.
type LegalDocument struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Content      string       `json:"content"`
	Jurisdiction string       `json:"jurisdiction"`
	Type         DocumentType `json:"type"`
	LastUpdated  time.Time    `json:"last_updated"`
	Citations    []string     `json:"citations,omitempty"`
	Meta         DocumentMeta `json:"meta"`
}

// Chunk is a derived, disposable retrieval unit. Chunks for a document
// are regenerated wholesale when the document is re-ingested.
type Chunk struct {
	ID                string    `json:"id"`
	DocumentID        string    `json:"document_id"`
	Content           string    `json:"content"`
	Embedding         []float64 `json:"embedding,omitempty"`
	Position          int       `json:"position"`
	TokenCount        int       `json:"token_count"`
	OverlapTokens     int       `json:"overlap_tokens"`
	LegalConcepts     []string  `json:"legal_concepts,omitempty"`
	Citations         []string  `json:"citations,omitempty"`
	Confidence        float64   `json:"confidence"`
	TemporalRelevance float64   `json:"temporal_relevance"`
}

// HasConcept reports whether the chunk was annotated with the given
// legal concept during enrichment.
func (c *Chunk) HasConcept(concept string) bool {
	for _, lc := range c.LegalConcepts {
		if lc == concept {
			return true
		}
	}
	return false
}

// RelationKind is the kind of a directed document-graph edge.
type RelationKind string

const (
	RelationCites         RelationKind = "cites"
	RelationOverturns     RelationKind = "overturns"
	RelationDistinguishes RelationKind = "distinguishes"
	RelationFollows       RelationKind = "follows"
	RelationReferences    RelationKind = "references"
)

// GraphRelation is an edge in the document relationship graph.
// Re-adding a (source, target, kind) triple updates Strength in place.
type GraphRelation struct {
	SourceID string       `json:"source_id"`
	TargetID string       `json:"target_id"`
	Kind     RelationKind `json:"kind"`
	Strength float64      `json:"strength"`
}
