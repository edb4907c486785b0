package cli

import (
	"fmt"
	"os"

	ollamaembed "github.com/vellum-labs/vellum/internal/adapters/driven/embedding/ollama"
	"github.com/vellum-labs/vellum/internal/adapters/driven/extractor/pdf"
	openaiembed "github.com/vellum-labs/vellum/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/vellum-labs/vellum/internal/adapters/driven/llm/ollama"
	openaillm "github.com/vellum-labs/vellum/internal/adapters/driven/llm/openai"
	sqlitemeta "github.com/vellum-labs/vellum/internal/adapters/driven/metadata/sqlite"
	redisqueue "github.com/vellum-labs/vellum/internal/adapters/driven/queue/redis"
	"github.com/vellum-labs/vellum/internal/adapters/driven/storage/filesystem"
	"github.com/vellum-labs/vellum/internal/adapters/driven/vector/qdrant"
	"github.com/vellum-labs/vellum/internal/config"
	"github.com/vellum-labs/vellum/internal/core/domain"
	"github.com/vellum-labs/vellum/internal/core/ports/driven"
)

// apiKey resolves a provider API key from the environment variable the
// config names. An empty variable name means no key is needed.
func apiKey(envName string) string {
	if envName == "" {
		return ""
	}
	return os.Getenv(envName)
}

// buildEmbedder constructs the configured embedding provider.
func buildEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	p := cfg.Embedding
	switch p.Provider {
	case "openai", "":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  apiKey(p.APIKeyEnv),
			BaseURL: p.BaseURL,
			Model:   p.Model,
		})
	case "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: p.BaseURL,
			Model:   p.Model,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidConfig, p.Provider)
	}
}

// buildLLM constructs the configured chat provider.
func buildLLM(cfg *config.Config) (driven.LLMService, error) {
	p := cfg.LLM
	switch p.Provider {
	case "openai", "":
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  apiKey(p.APIKeyEnv),
			BaseURL: p.BaseURL,
			Model:   p.Model,
		})
	case "ollama":
		return ollamallm.NewLLMService(ollamallm.Config{
			BaseURL: p.BaseURL,
			Model:   p.Model,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown chat provider %q", domain.ErrInvalidConfig, p.Provider)
	}
}

// buildCollectionStore constructs the Qdrant store sized to the
// embedder, so a model/collection dimension mismatch surfaces at
// startup instead of mid-job.
func buildCollectionStore(cfg *config.Config, embedder driven.EmbeddingService) (driven.CollectionStore, error) {
	return qdrant.NewStore(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     apiKey(cfg.Qdrant.APIKeyEnv),
		Dimensions: embedder.Dimensions(),
	})
}

// buildQueue constructs the Redis job queue.
func buildQueue(cfg *config.Config) *redisqueue.Queue {
	return redisqueue.NewQueue(redisqueue.Config{
		Addr:              cfg.Queue.Addr,
		Name:              cfg.Queue.Name,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout(),
	})
}

// buildDocumentStore constructs the SQLite metadata store.
func buildDocumentStore(cfg *config.Config) (driven.DocumentStore, error) {
	return sqlitemeta.NewStore(cfg.Storage.DataDir)
}

// newExtractor constructs the PDF text extractor.
func newExtractor() driven.TextExtractor {
	return pdf.New()
}

// buildFileStore constructs the uploads-rooted file store.
func buildFileStore(cfg *config.Config) (driven.FileStore, error) {
	return filesystem.New(cfg.Storage.UploadsDir)
}
