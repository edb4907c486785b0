package driven

import (
	"context"

	"github.com/vellum-labs/vellum/internal/core/domain"
)

// CollectionStore manages per-document vector collections.
//
// Each document owns exactly one collection, named by
// domain.CollectionName. The ingestion worker is the only writer for a
// given document; the query path only reads. Because delivery is
// at-least-once, Upsert must be idempotent: replaying the same chunk set
// must reproduce the same collection state, never duplicate it.
type CollectionStore interface {
	// Exists reports whether the document's collection exists.
	// "Not found" is a normal false return, never an error; errors wrap
	// domain.ErrStoreUnavailable and indicate genuine connectivity failure.
	Exists(ctx context.Context, documentID string) (bool, error)

	// Upsert writes embedded chunks into the document's collection,
	// creating the collection on first write. Points are keyed by
	// (documentID, sequence), so re-upserting the same chunks is a no-op.
	// A vector whose length disagrees with the collection dimension is a
	// configuration error, not a retryable failure.
	Upsert(ctx context.Context, documentID string, chunks []domain.EmbeddedChunk) error

	// Search returns up to k chunks nearest to the query vector, ordered
	// by descending relevance. A missing collection fails with
	// domain.ErrCollectionNotFound, distinct from domain.ErrStoreUnavailable,
	// so callers can tell "not processed yet" from "infrastructure down".
	Search(ctx context.Context, documentID string, vector []float32, k int) ([]domain.ScoredChunk, error)

	// Delete removes the document's collection. Used by administrative
	// cleanup; deleting an absent collection is not an error.
	Delete(ctx context.Context, documentID string) error

	// Close releases resources.
	Close() error
}
