package types

import "time"

// TimeRange bounds a query to documents updated inside [From, To].
// A zero bound is open-ended.
type TimeRange struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// Contains reports whether ts falls inside the range.
func (r TimeRange) Contains(ts time.Time) bool {
	if !r.From.IsZero() && ts.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && ts.After(r.To) {
		return false
	}
	return true
}

// IsZero reports whether the range is unbounded on both sides.
func (r TimeRange) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// QueryContext is the immutable per-request retrieval context.
// It is never persisted.
type QueryContext struct {
	Query            string       `json:"query"`
	Jurisdiction     string       `json:"jurisdiction,omitempty"`
	DocumentType     DocumentType `json:"document_type,omitempty"`
	TimeRange        TimeRange    `json:"time_range,omitempty"`
	PrecedentialOnly bool         `json:"precedential_only,omitempty"`
	RequireCitations bool         `json:"require_citations,omitempty"`
	AdvancedMode     bool         `json:"advanced_mode,omitempty"`
	MaxResults       int          `json:"max_results,omitempty"`
	MinConfidence    float64      `json:"min_confidence,omitempty"`
}

// Matches reports whether the document passes the context's filters.
func (q QueryContext) Matches(doc *LegalDocument) bool {
	if q.Jurisdiction != "" && doc.Jurisdiction != q.Jurisdiction {
		return false
	}
	if q.DocumentType != "" && doc.Type != q.DocumentType {
		return false
	}
	if !q.TimeRange.IsZero() && !q.TimeRange.Contains(doc.LastUpdated) {
		return false
	}
	if q.PrecedentialOnly && doc.Meta.PrecedentialValue != PrecedentBinding && doc.Meta.PrecedentialValue != PrecedentPersuasive {
		return false
	}
	return true
}
