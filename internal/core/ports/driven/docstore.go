package driven

import (
	"context"

	"github.com/vellum-labs/vellum/internal/core/domain"
)

// DocumentStore persists document ownership and lifecycle metadata.
//
// UpdateStatus is keyed by both document and user ID so a mis-routed
// update can never touch another tenant's document. It is idempotent:
// repeating the same update leaves the record unchanged, which lets the
// worker's Finalizing stage run again safely after a retried job.
type DocumentStore interface {
	// Save creates or replaces a document record.
	Save(ctx context.Context, rec domain.DocumentRecord) error

	// Get retrieves a document record by ID. A missing record is
	// reported as (nil, domain.ErrDocumentNotReady).
	Get(ctx context.Context, documentID string) (*domain.DocumentRecord, error)

	// UpdateStatus sets the lifecycle state for the given document owned
	// by the given user. collectionRef and reason may be empty when not
	// applicable to the target status.
	UpdateStatus(ctx context.Context, documentID, userID string, status domain.DocumentStatus, collectionRef, reason string) error

	// Close releases resources.
	Close() error
}
