package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from CollectionStore which stores and searches
// vectors. EmbeddingService generates vectors; CollectionStore keeps them.
//
// Implementations classify failures into domain.ErrTransient (network,
// timeout, rate limit) and domain.ErrProviderFatal (bad credentials,
// exhausted quota, malformed input) so the ingestion worker can decide
// whether a job is worth retrying.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Local models via inference servers
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently,
	// preserving input order. A provider response that drops or reorders
	// inputs is treated as a failure of the whole batch: the returned
	// slice always has exactly one vector per input text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536).
	// This is determined by the model and must match the collection
	// configuration in the CollectionStore.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Used at worker startup before consuming jobs.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
