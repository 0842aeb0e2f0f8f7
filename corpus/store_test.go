package corpus

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	s, err := NewDBStore(db, zap.NewNop())
	require.NoError(t, err)
	return s
}

// storeBackends returns both implementations so the contract tests run
// against each.
func storeBackends(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newSQLiteStore(t),
	}
}

func sampleDocument(id string) *types.LegalDocument {
	return &types.LegalDocument{
		ID:           id,
		Title:        "Smith v. Jones",
		Content:      "The doctrine of stare decisis binds lower courts.",
		Jurisdiction: "US-9",
		Type:         types.DocTypeCaseLaw,
		LastUpdated:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Citations:    []string{"410 U.S. 113"},
		Meta: types.DocumentMeta{
			Court:             "Ninth Circuit",
			PrecedentialValue: types.PrecedentBinding,
			Quarantined:       []string{"docket_color"},
		},
	}
}

func sampleChunks(docID string, n int) []types.Chunk {
	chunks := make([]types.Chunk, n)
	for i := range chunks {
		chunks[i] = types.Chunk{
			ID:                docID + "-c" + string(rune('0'+i)),
			DocumentID:        docID,
			Content:           "chunk content",
			Embedding:         []float64{float64(i), 0.5},
			Position:          i,
			TokenCount:        42,
			LegalConcepts:     []string{"stare decisis"},
			Citations:         []string{"410 U.S. 113"},
			Confidence:        0.9,
			TemporalRelevance: 0.8,
		}
	}
	return chunks
}

func TestStorePutAndGetDocument(t *testing.T) {
	t.Parallel()
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := sampleDocument("doc-1")
			require.NoError(t, s.PutDocument(ctx, doc, sampleChunks("doc-1", 3)))

			got, err := s.Document(ctx, "doc-1")
			require.NoError(t, err)
			assert.Equal(t, doc.Title, got.Title)
			assert.Equal(t, doc.Jurisdiction, got.Jurisdiction)
			assert.Equal(t, doc.Type, got.Type)
			assert.Equal(t, doc.Citations, got.Citations)
			assert.Equal(t, types.PrecedentBinding, got.Meta.PrecedentialValue)
			assert.Equal(t, []string{"docket_color"}, got.Meta.Quarantined)

			chunks, err := s.DocumentChunks(ctx, "doc-1")
			require.NoError(t, err)
			require.Len(t, chunks, 3)
			for i, c := range chunks {
				assert.Equal(t, i, c.Position, "chunks must come back in position order")
			}
			assert.Equal(t, []string{"stare decisis"}, chunks[0].LegalConcepts)
			assert.Equal(t, []float64{0, 0.5}, chunks[0].Embedding)
		})
	}
}

func TestStoreReingestSwapsChunks(t *testing.T) {
	t.Parallel()
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := sampleDocument("doc-1")
			require.NoError(t, s.PutDocument(ctx, doc, sampleChunks("doc-1", 4)))

			// Re-ingest with a smaller chunk set under new IDs.
			fresh := []types.Chunk{{
				ID:         "doc-1-v2-c0",
				DocumentID: "doc-1",
				Content:    "rewritten",
				Position:   0,
			}}
			doc.Content = "Amended content."
			require.NoError(t, s.PutDocument(ctx, doc, fresh))

			chunks, err := s.DocumentChunks(ctx, "doc-1")
			require.NoError(t, err)
			require.Len(t, chunks, 1, "old chunk set must be fully replaced")
			assert.Equal(t, "doc-1-v2-c0", chunks[0].ID)

			// Old chunk IDs must no longer resolve.
			_, err = s.Chunk(ctx, "doc-1-c0")
			assert.ErrorIs(t, err, ErrNotFound)

			docs, chunkCount, err := s.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, docs)
			assert.Equal(t, 1, chunkCount)
		})
	}
}

func TestStoreRemoveDocument(t *testing.T) {
	t.Parallel()
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.PutDocument(ctx, sampleDocument("doc-1"), sampleChunks("doc-1", 2)))

			require.NoError(t, s.RemoveDocument(ctx, "doc-1"))

			_, err := s.Document(ctx, "doc-1")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.DocumentChunks(ctx, "doc-1")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.Chunk(ctx, "doc-1-c0")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.ErrorIs(t, s.RemoveDocument(ctx, "doc-1"), ErrNotFound)
		})
	}
}

func TestStoreRejectsEmptyID(t *testing.T) {
	t.Parallel()
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.PutDocument(context.Background(), &types.LegalDocument{}, nil)
			require.Error(t, err)
		})
	}
}

func TestStoreDocumentsOrderedByID(t *testing.T) {
	t.Parallel()
	for name, s := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, id := range []string{"doc-c", "doc-a", "doc-b"} {
				require.NoError(t, s.PutDocument(ctx, sampleDocument(id), nil))
			}
			docs, err := s.Documents(ctx)
			require.NoError(t, err)
			require.Len(t, docs, 3)
			assert.Equal(t, "doc-a", docs[0].ID)
			assert.Equal(t, "doc-b", docs[1].ID)
			assert.Equal(t, "doc-c", docs[2].ID)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.PutDocument(ctx, sampleDocument("doc-1"), sampleChunks("doc-1", 1)))

	got, err := s.Document(ctx, "doc-1")
	require.NoError(t, err)
	got.Title = "mutated"

	again, err := s.Document(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Smith v. Jones", again.Title, "callers must not mutate stored state")
}
