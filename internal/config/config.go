// Package config loads the Vellum configuration from a TOML file with
// environment variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/vellum-labs/vellum/internal/core/domain"
)

// Default configuration values.
const (
	DefaultQueueName         = "pdf-queue"
	DefaultConcurrency       = 2
	DefaultMaxAttempts       = 5
	DefaultVisibilityTimeout = 5 * time.Minute
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 200
	DefaultEmbedBatchSize    = 32
	DefaultSearchK           = 4
)

// Config is the full application configuration.
type Config struct {
	Queue     QueueConfig     `toml:"queue"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Embedding ProviderConfig  `toml:"embedding"`
	LLM       ProviderConfig  `toml:"llm"`
	Qdrant    QdrantConfig    `toml:"qdrant"`
	Storage   StorageConfig   `toml:"storage"`
	Retrieval RetrievalConfig `toml:"retrieval"`
}

// QueueConfig configures the Redis-backed job queue and the worker pool.
type QueueConfig struct {
	// Addr is the Redis address (host:port).
	Addr string `toml:"addr"`

	// Name is the logical queue name.
	Name string `toml:"name"`

	// Concurrency is the number of parallel job handlers.
	Concurrency int `toml:"concurrency"`

	// MaxAttempts bounds deliveries per job before dead-lettering.
	MaxAttempts int `toml:"max_attempts"`

	// VisibilityTimeoutSeconds is how long a dequeued job may stay
	// unsettled before it is considered abandoned and redelivered.
	VisibilityTimeoutSeconds int `toml:"visibility_timeout_seconds"`
}

// VisibilityTimeout returns the visibility timeout as a duration.
func (q QueueConfig) VisibilityTimeout() time.Duration {
	return time.Duration(q.VisibilityTimeoutSeconds) * time.Second
}

// ChunkingConfig configures the text splitter.
type ChunkingConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// ProviderConfig configures an external model provider (embedding or chat).
type ProviderConfig struct {
	// Provider selects the adapter: "openai" or "ollama".
	Provider string `toml:"provider"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never lives in the config file.
	APIKeyEnv string `toml:"api_key_env"`

	// Model is the model identifier.
	Model string `toml:"model"`

	// BatchSize bounds texts per embedding request (embedding only).
	BatchSize int `toml:"batch_size"`
}

// QdrantConfig configures the vector collection store.
type QdrantConfig struct {
	// URL is the Qdrant base URL.
	URL string `toml:"url"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `toml:"api_key_env"`
}

// StorageConfig configures local persistence.
type StorageConfig struct {
	// DataDir holds the metadata database. Empty means ~/.vellum/data.
	DataDir string `toml:"data_dir"`

	// UploadsDir is the root under which source files live. File deletes
	// outside this root are refused.
	UploadsDir string `toml:"uploads_dir"`
}

// RetrievalConfig configures the query path.
type RetrievalConfig struct {
	// TopK is the number of chunks retrieved per query.
	TopK int `toml:"top_k"`
}

// Load reads the configuration file at path, applies defaults and
// environment overrides, and validates the result. A missing file is
// not an error; defaults and environment alone can form a valid config.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to defaults + env.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".vellum", "config.toml")
}

func defaults() *Config {
	return &Config{
		Queue: QueueConfig{
			Addr:                     "localhost:6379",
			Name:                     DefaultQueueName,
			Concurrency:              DefaultConcurrency,
			MaxAttempts:              DefaultMaxAttempts,
			VisibilityTimeoutSeconds: int(DefaultVisibilityTimeout / time.Second),
		},
		Chunking: ChunkingConfig{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Embedding: ProviderConfig{
			Provider:  "openai",
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: DefaultEmbedBatchSize,
		},
		LLM: ProviderConfig{
			Provider:  "openai",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Qdrant: QdrantConfig{
			URL:       "http://localhost:6333",
			APIKeyEnv: "QDRANT_API_KEY",
		},
		Retrieval: RetrievalConfig{
			TopK: DefaultSearchK,
		},
	}
}

// applyEnv overrides deployment-specific values from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("VELLUM_REDIS_ADDR"); v != "" {
		cfg.Queue.Addr = v
	}
	if v := os.Getenv("VELLUM_QDRANT_URL"); v != "" {
		cfg.Qdrant.URL = v
	}
	if v := os.Getenv("VELLUM_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("VELLUM_UPLOADS_DIR"); v != "" {
		cfg.Storage.UploadsDir = v
	}
}

// Validate rejects configurations that can never work.
func (c *Config) Validate() error {
	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("%w: queue concurrency must be positive", domain.ErrInvalidConfig)
	}
	if c.Queue.MaxAttempts <= 0 {
		return fmt.Errorf("%w: queue max_attempts must be positive", domain.ErrInvalidConfig)
	}
	if c.Queue.VisibilityTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: queue visibility_timeout_seconds must be positive", domain.ErrInvalidConfig)
	}
	if c.Chunking.Size <= 0 || c.Chunking.Overlap <= 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking requires 0 < overlap < size", domain.ErrInvalidConfig)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch_size must be positive", domain.ErrInvalidConfig)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval top_k must be positive", domain.ErrInvalidConfig)
	}
	return nil
}
