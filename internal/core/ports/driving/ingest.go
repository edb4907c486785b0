package driving

import "context"

// Ingestor is the ingestion entrypoint exposed to the upload path.
// The HTTP layer maps these operations onto routes and status codes;
// that mapping is not part of the core.
type Ingestor interface {
	// EnqueueIngestion records a pending document and queues its
	// ingestion job. Returns the job ID.
	EnqueueIngestion(ctx context.Context, documentID, userID, filePath, filename string) (string, error)

	// IsReady reports whether the document's collection is searchable.
	// A document with no stored chunks is not ready, indistinguishable
	// from one never processed.
	IsReady(ctx context.Context, documentID string) (bool, error)
}
