package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/vellum-labs/vellum/internal/core/domain"
	"github.com/vellum-labs/vellum/internal/core/ports/driven"
)

// Ensure CollectionStore implements the interface.
var _ driven.CollectionStore = (*CollectionStore)(nil)

// CollectionStore is an in-memory implementation of driven.CollectionStore
// for testing. Search ranks by cosine similarity, and upserts keyed by
// (documentID, sequence) overwrite rather than duplicate, matching the
// real store's idempotence.
type CollectionStore struct {
	mu          sync.RWMutex
	collections map[string]map[int]domain.EmbeddedChunk

	// Error injection for failure-path tests.
	ExistsErr error
	UpsertErr error
	SearchErr error
	DeleteErr error
}

// NewCollectionStore creates a new in-memory collection store.
func NewCollectionStore() *CollectionStore {
	return &CollectionStore{
		collections: make(map[string]map[int]domain.EmbeddedChunk),
	}
}

// Exists reports whether the document's collection holds at least one chunk.
func (s *CollectionStore) Exists(_ context.Context, documentID string) (bool, error) {
	if s.ExistsErr != nil {
		return false, s.ExistsErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[documentID]) > 0, nil
}

// Upsert writes embedded chunks into the document's collection.
func (s *CollectionStore) Upsert(_ context.Context, documentID string, chunks []domain.EmbeddedChunk) error {
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[documentID]
	if coll == nil {
		coll = make(map[int]domain.EmbeddedChunk)
		s.collections[documentID] = coll
	}
	for _, c := range chunks {
		coll[c.Sequence] = c
	}
	return nil
}

// Search returns up to k chunks ranked by cosine similarity to vector.
func (s *CollectionStore) Search(_ context.Context, documentID string, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[documentID]
	if !ok || len(coll) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, domain.CollectionName(documentID))
	}

	hits := make([]domain.ScoredChunk, 0, len(coll))
	for _, c := range coll {
		hits = append(hits, domain.ScoredChunk{
			Chunk: c.Chunk,
			Score: cosine(vector, c.Vector),
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete removes the document's collection.
func (s *CollectionStore) Delete(_ context.Context, documentID string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, documentID)
	return nil
}

// Close releases resources.
func (s *CollectionStore) Close() error {
	return nil
}

// Chunks returns the stored chunks for a document in sequence order.
func (s *CollectionStore) Chunks(documentID string) []domain.EmbeddedChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll := s.collections[documentID]
	out := make([]domain.EmbeddedChunk, 0, len(coll))
	for _, c := range coll {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
