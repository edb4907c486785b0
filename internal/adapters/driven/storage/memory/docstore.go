package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vellum-labs/vellum/internal/core/domain"
	"github.com/vellum-labs/vellum/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore
// for testing.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]domain.DocumentRecord

	// Error injection for failure-path tests.
	SaveErr   error
	UpdateErr error
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string]domain.DocumentRecord),
	}
}

// Save creates or replaces a document record.
func (s *DocumentStore) Save(_ context.Context, rec domain.DocumentRecord) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	if rec.DocumentID == "" || rec.UserID == "" {
		return fmt.Errorf("%w: document record needs document and user IDs", domain.ErrInvalidJob)
	}
	if rec.Status == "" {
		rec.Status = domain.StatusPending
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[rec.DocumentID] = rec
	return nil
}

// Get retrieves a document record by ID.
func (s *DocumentStore) Get(_ context.Context, documentID string) (*domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", domain.ErrDocumentNotReady, documentID)
	}
	out := rec
	return &out, nil
}

// UpdateStatus sets the lifecycle state for the document owned by the
// given user.
func (s *DocumentStore) UpdateStatus(_ context.Context, documentID, userID string, status domain.DocumentStatus, collectionRef, reason string) error {
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.docs[documentID]
	if !ok || rec.UserID != userID {
		return fmt.Errorf("%w: document %s for user %s", domain.ErrDocumentNotReady, documentID, userID)
	}
	rec.Status = status
	rec.CollectionRef = collectionRef
	rec.Error = reason
	rec.UpdatedAt = time.Now().UTC()
	s.docs[documentID] = rec
	return nil
}

// Close releases resources.
func (s *DocumentStore) Close() error {
	return nil
}
