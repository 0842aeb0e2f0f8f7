package rag

import (
	"testing"
)

func allowAll(string) bool { return true }

func TestSparseSearchRanksTermMatches(t *testing.T) {
	t.Parallel()

	idx := NewSparseIndex(0, 0) // defaults
	idx.IndexDocument("d1", []SparseChunk{
		{ID: "d1-0000", Content: "The tenant may terminate the lease with notice."},
	})
	idx.IndexDocument("d2", []SparseChunk{
		{ID: "d2-0000", Content: "Employment contracts require consideration and good faith."},
	})
	idx.IndexDocument("d3", []SparseChunk{
		{ID: "d3-0000", Content: "A lease is a contract between landlord and tenant. The lease governs rent."},
	})

	hits := idx.Search("terminate lease", 10, allowAll)
	if len(hits) == 0 {
		t.Fatal("expected hits for lease query")
	}
	if hits[0].ChunkID != "d1-0000" {
		t.Fatalf("chunk containing both query terms should rank first, got %q", hits[0].ChunkID)
	}
	for _, h := range hits {
		if h.ChunkID == "d2-0000" {
			t.Fatal("chunk with no query terms should not match")
		}
	}
}

func TestSparseSearchAppliesAllowFilter(t *testing.T) {
	t.Parallel()

	idx := NewSparseIndex(1.5, 0.75)
	idx.IndexDocument("d1", []SparseChunk{{ID: "d1-0000", Content: "negligence claim"}})
	idx.IndexDocument("d2", []SparseChunk{{ID: "d2-0000", Content: "negligence claim"}})

	hits := idx.Search("negligence", 10, func(documentID string) bool { return documentID == "d2" })
	if len(hits) != 1 || hits[0].DocumentID != "d2" {
		t.Fatalf("allow filter not applied: %+v", hits)
	}
}

func TestSparseReindexReplacesChunks(t *testing.T) {
	t.Parallel()

	idx := NewSparseIndex(1.5, 0.75)
	idx.IndexDocument("d1", []SparseChunk{{ID: "d1-0000", Content: "old arbitration clause"}})
	idx.IndexDocument("d1", []SparseChunk{{ID: "d1-0001", Content: "new indemnification clause"}})

	if hits := idx.Search("arbitration", 10, allowAll); len(hits) != 0 {
		t.Fatalf("stale chunk still searchable after re-index: %+v", hits)
	}
	hits := idx.Search("indemnification", 10, allowAll)
	if len(hits) != 1 || hits[0].ChunkID != "d1-0001" {
		t.Fatalf("re-indexed chunk missing: %+v", hits)
	}
}

func TestSparseRemoveDocument(t *testing.T) {
	t.Parallel()

	idx := NewSparseIndex(1.5, 0.75)
	idx.IndexDocument("d1", []SparseChunk{{ID: "d1-0000", Content: "habeas corpus petition"}})
	idx.RemoveDocument("d1")
	if hits := idx.Search("habeas", 10, allowAll); len(hits) != 0 {
		t.Fatalf("removed document still searchable: %+v", hits)
	}
}

func TestSparseSearchDeterministicTieBreak(t *testing.T) {
	t.Parallel()

	idx := NewSparseIndex(1.5, 0.75)
	// Identical content yields identical scores on every chunk.
	for _, id := range []string{"d3", "d1", "d2"} {
		idx.IndexDocument(id, []SparseChunk{{ID: id + "-0000", Content: "summary judgment standard"}})
	}
	hits := idx.Search("summary judgment", 10, allowAll)
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	for i, want := range []string{"d1-0000", "d2-0000", "d3-0000"} {
		if hits[i].ChunkID != want {
			t.Fatalf("tie-break order wrong at %d: %+v", i, hits)
		}
	}

	// k truncates after ordering.
	if top := idx.Search("summary judgment", 2, allowAll); len(top) != 2 || top[0].ChunkID != "d1-0000" {
		t.Fatalf("truncation broke ordering: %+v", top)
	}
}
