package domain

import "errors"

// Domain errors classify every failure the ingestion and query paths can
// produce. Callers match them with errors.Is; adapters wrap them so the
// classification survives the trip through fmt.Errorf.
var (
	// ErrInvalidJob indicates an ingestion job missing required identifiers.
	// Caller error, never retried.
	ErrInvalidJob = errors.New("invalid ingestion job")

	// ErrExtraction indicates the source PDF could not be read or parsed.
	// Bad input file, never retried.
	ErrExtraction = errors.New("text extraction failed")

	// ErrTransient indicates a temporary provider failure: network error,
	// timeout, or rate limit. Safe to retry with backoff.
	ErrTransient = errors.New("transient provider error")

	// ErrProviderFatal indicates a permanent provider failure: bad
	// credentials, exhausted quota, malformed input. Never retried.
	ErrProviderFatal = errors.New("fatal provider error")

	// ErrStoreUnavailable indicates the vector store could not be reached.
	// Infrastructure problem, safe to retry.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrCollectionNotFound indicates the document's collection does not
	// exist. An expected state for not-yet-processed documents, distinct
	// from ErrStoreUnavailable so callers can tell "not ready" from "down".
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDocumentNotReady indicates a query against a document whose
	// ingestion has not completed. A normal condition, not a server error.
	ErrDocumentNotReady = errors.New("document not processed yet")

	// ErrChatModel indicates the chat model call failed. Surfaced to the
	// caller unretried; chat calls sit on the interactive path.
	ErrChatModel = errors.New("chat model request failed")

	// ErrInvalidConfig indicates a configuration value that can never work,
	// such as a chunk overlap not smaller than the chunk size.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsRetryable reports whether an ingestion failure should be requeued.
// Only transient provider errors and store outages qualify; everything
// else fails the job on first sight.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrStoreUnavailable)
}
