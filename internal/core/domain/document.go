package domain

import "time"

// DocumentStatus tracks a document through its ingestion lifecycle.
type DocumentStatus string

// Document lifecycle states.
const (
	// StatusPending means the document is enqueued but not yet picked up.
	StatusPending DocumentStatus = "pending"

	// StatusProcessing means a worker is ingesting the document.
	StatusProcessing DocumentStatus = "processing"

	// StatusReady means the document's collection is searchable.
	StatusReady DocumentStatus = "ready"

	// StatusFailed means ingestion exhausted its retries or hit a
	// non-retryable error. The record carries the failure reason.
	StatusFailed DocumentStatus = "failed"
)

// DocumentRecord is the metadata row kept for each uploaded document.
// The vector store holds the content; this record holds ownership and
// lifecycle state.
type DocumentRecord struct {
	// DocumentID is the unique identifier for the document.
	DocumentID string

	// UserID is the owning user. Status updates are keyed by both IDs
	// so one tenant can never flip another tenant's document state.
	UserID string

	// Filename is the original upload filename.
	Filename string

	// Status is the current lifecycle state.
	Status DocumentStatus

	// CollectionRef names the vector collection holding the chunks.
	// Set when the document becomes ready.
	CollectionRef string

	// Error holds the failure reason when Status is StatusFailed.
	Error string

	// UpdatedAt is when the record last changed.
	UpdatedAt time.Time
}
