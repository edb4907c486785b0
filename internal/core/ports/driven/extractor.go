package driven

import "context"

// TextExtractor turns an uploaded document file into plain text.
//
// A file that cannot be parsed (corrupt PDF, unsupported format) fails
// with an error wrapping domain.ErrExtraction; extraction failures are
// never retried because the input will not improve.
type TextExtractor interface {
	// Extract parses in-memory document content and returns its
	// page-level text, pages separated by newlines. The worker reads the
	// content through the FileStore so its path containment applies.
	Extract(ctx context.Context, content []byte) (string, error)
}
