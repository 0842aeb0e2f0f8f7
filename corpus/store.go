package corpus

import (
	"context"
	"sort"
	"sync"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// ErrNotFound is returned when a document or chunk does not exist.
var ErrNotFound = types.NewError(types.ErrDocumentNotFound, "corpus: not found")

// Store is the persistence contract for documents and chunks.
//
// PutDocument replaces the document and its entire chunk set in one
// atomic step. Chunks are derived data: callers regenerate them from
// the document content and never mutate them in place.
type Store interface {
	// PutDocument upserts doc and swaps its chunk set atomically.
	PutDocument(ctx context.Context, doc *types.LegalDocument, chunks []types.Chunk) error

	// Document returns the document with the given ID, or ErrNotFound.
	Document(ctx context.Context, id string) (*types.LegalDocument, error)

	// RemoveDocument deletes the document and all its chunks.
	// Removing an absent document returns ErrNotFound.
	RemoveDocument(ctx context.Context, id string) error

	// Documents returns all documents, ordered by ID.
	Documents(ctx context.Context) ([]*types.LegalDocument, error)

	// DocumentChunks returns the chunks of one document in position order.
	DocumentChunks(ctx context.Context, documentID string) ([]types.Chunk, error)

	// Chunks returns every chunk in the corpus, ordered by chunk ID.
	Chunks(ctx context.Context) ([]types.Chunk, error)

	// Chunk returns a single chunk by ID, or ErrNotFound.
	Chunk(ctx context.Context, id string) (*types.Chunk, error)

	// Stats returns document and chunk counts.
	Stats(ctx context.Context) (documents, chunks int, err error)
}

// MemoryStore keeps the corpus in process memory behind an RWMutex.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]*types.LegalDocument
	chunks map[string][]types.Chunk // documentID -> chunks in position order
	byID   map[string]*types.Chunk  // chunkID -> chunk
}

// NewMemoryStore creates an empty in-memory corpus store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string]*types.LegalDocument),
		chunks: make(map[string][]types.Chunk),
		byID:   make(map[string]*types.Chunk),
	}
}

// PutDocument implements Store. The old chunk set becomes invisible in
// the same critical section that installs the new one.
func (s *MemoryStore) PutDocument(_ context.Context, doc *types.LegalDocument, chunks []types.Chunk) error {
	if doc == nil || doc.ID == "" {
		return types.NewError(types.ErrInvalidDocument, "corpus: document must have an ID")
	}

	cp := *doc
	set := make([]types.Chunk, len(chunks))
	copy(set, chunks)
	sort.SliceStable(set, func(i, j int) bool { return set[i].Position < set[j].Position })

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, old := range s.chunks[doc.ID] {
		delete(s.byID, old.ID)
	}
	s.docs[doc.ID] = &cp
	s.chunks[doc.ID] = set
	for i := range set {
		s.byID[set[i].ID] = &set[i]
	}
	return nil
}

// Document implements Store.
func (s *MemoryStore) Document(_ context.Context, id string) (*types.LegalDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

// RemoveDocument implements Store.
func (s *MemoryStore) RemoveDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	for _, c := range s.chunks[id] {
		delete(s.byID, c.ID)
	}
	delete(s.docs, id)
	delete(s.chunks, id)
	return nil
}

// Documents implements Store.
func (s *MemoryStore) Documents(_ context.Context) ([]*types.LegalDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.LegalDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		cp := *doc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DocumentChunks implements Store.
func (s *MemoryStore) DocumentChunks(_ context.Context, documentID string) ([]types.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.docs[documentID]; !ok {
		return nil, ErrNotFound
	}
	set := s.chunks[documentID]
	out := make([]types.Chunk, len(set))
	copy(out, set)
	return out, nil
}

// Chunks implements Store.
func (s *MemoryStore) Chunks(_ context.Context) ([]types.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Chunk, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Chunk implements Store.
func (s *MemoryStore) Chunk(_ context.Context, id string) (*types.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(_ context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), len(s.byID), nil
}
