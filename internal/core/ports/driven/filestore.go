package driven

import "context"

// FileStore provides access to uploaded source files.
//
// Deletion is best-effort: the worker logs a failed delete and moves on,
// because a stranded temp file must never fail a job whose ingestion
// already succeeded.
type FileStore interface {
	// Read returns the file contents at the given path. Implementations
	// refuse paths outside their configured root.
	Read(ctx context.Context, path string) ([]byte, error)

	// Delete removes the file at the given path. Implementations refuse
	// paths outside their configured root.
	Delete(ctx context.Context, path string) error
}
