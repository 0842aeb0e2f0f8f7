package types

import (
	"testing"
	"time"
)

func TestQueryContextMatches(t *testing.T) {
	t.Parallel()

	doc := &LegalDocument{
		ID:           "doc-1",
		Jurisdiction: "Federal",
		Type:         DocTypeCaseLaw,
		LastUpdated:  time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
		Meta:         DocumentMeta{PrecedentialValue: PrecedentBinding},
	}

	cases := []struct {
		name string
		q    QueryContext
		want bool
	}{
		{"no filters", QueryContext{}, true},
		{"jurisdiction match", QueryContext{Jurisdiction: "Federal"}, true},
		{"jurisdiction mismatch", QueryContext{Jurisdiction: "California"}, false},
		{"type match", QueryContext{DocumentType: DocTypeCaseLaw}, true},
		{"type mismatch", QueryContext{DocumentType: DocTypeStatute}, false},
		{"time inside", QueryContext{TimeRange: TimeRange{From: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)}}, true},
		{"time before range", QueryContext{TimeRange: TimeRange{From: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)}}, false},
		{"precedential only binding", QueryContext{PrecedentialOnly: true}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.q.Matches(doc); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestQueryContextPrecedentialOnlyExcludesNonPrecedential(t *testing.T) {
	t.Parallel()

	doc := &LegalDocument{ID: "doc-2", Meta: DocumentMeta{PrecedentialValue: PrecedentNone}}
	q := QueryContext{PrecedentialOnly: true}
	if q.Matches(doc) {
		t.Fatal("not_precedential document must not pass precedential-only filter")
	}
}

func TestDocumentTypeValid(t *testing.T) {
	t.Parallel()

	if !DocTypeStatute.Valid() {
		t.Fatal("statute should be valid")
	}
	if DocumentType("tweet").Valid() {
		t.Fatal("unknown type should be invalid")
	}
}
