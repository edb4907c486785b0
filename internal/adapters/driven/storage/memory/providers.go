package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/vellum-labs/vellum/internal/core/ports/driven"
)

// Ensure the stubs implement their interfaces.
var (
	_ driven.EmbeddingService = (*EmbeddingService)(nil)
	_ driven.LLMService       = (*LLMService)(nil)
	_ driven.TextExtractor    = (*TextExtractor)(nil)
	_ driven.FileStore        = (*FileStore)(nil)
)

// EmbeddingService is a deterministic stub embedder for testing. The
// same text always produces the same vector, so idempotence properties
// hold across replayed jobs.
type EmbeddingService struct {
	mu    sync.Mutex
	dims  int
	calls [][]string

	// Error injection for failure-path tests.
	EmbedErr error
	PingErr  error
}

// NewEmbeddingService creates a stub embedder producing vectors of the
// given dimension.
func NewEmbeddingService(dims int) *EmbeddingService {
	return &EmbeddingService{dims: dims}
}

// Embed generates a deterministic vector for the text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates deterministic vectors, one per input text.
func (s *EmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.EmbedErr != nil {
		return nil, s.EmbedErr
	}

	s.mu.Lock()
	s.calls = append(s.calls, append([]string(nil), texts...))
	s.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, s.dims)
		h := fnv.New32a()
		h.Write([]byte(text))
		seed := h.Sum32()
		for d := range vec {
			seed = seed*1664525 + 1013904223
			vec[d] = float32(seed%1000)/1000.0 - 0.5
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the configured vector size.
func (s *EmbeddingService) Dimensions() int { return s.dims }

// ModelName returns a fixed stub model name.
func (s *EmbeddingService) ModelName() string { return "stub-embed" }

// Ping validates the stub is "reachable".
func (s *EmbeddingService) Ping(context.Context) error { return s.PingErr }

// Close releases resources.
func (s *EmbeddingService) Close() error { return nil }

// Batches returns the recorded EmbedBatch inputs in call order.
func (s *EmbeddingService) Batches() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// LLMService is a stub chat model for testing. It returns Answer and
// records the messages it was asked with.
type LLMService struct {
	mu       sync.Mutex
	messages [][]driven.ChatMessage

	// Answer is the canned reply (default "stub answer").
	Answer string

	// Error injection for failure-path tests.
	ChatErr error
	PingErr error
}

// NewLLMService creates a stub chat model.
func NewLLMService() *LLMService {
	return &LLMService{Answer: "stub answer"}
}

// Chat records the conversation and returns the canned answer.
func (s *LLMService) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	if s.ChatErr != nil {
		return "", s.ChatErr
	}
	s.mu.Lock()
	s.messages = append(s.messages, append([]driven.ChatMessage(nil), messages...))
	s.mu.Unlock()
	return s.Answer, nil
}

// ModelName returns a fixed stub model name.
func (s *LLMService) ModelName() string { return "stub-chat" }

// Ping validates the stub is "reachable".
func (s *LLMService) Ping(context.Context) error { return s.PingErr }

// Close releases resources.
func (s *LLMService) Close() error { return nil }

// Conversations returns the recorded Chat inputs in call order.
func (s *LLMService) Conversations() [][]driven.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]driven.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// TextExtractor is a stub extractor mapping document content to fixed
// text.
type TextExtractor struct {
	// Texts maps raw content to its extracted text.
	Texts map[string]string

	// Err, when set, fails every extraction.
	Err error
}

// NewTextExtractor creates a stub extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{Texts: make(map[string]string)}
}

// Extract returns the canned text for the given content.
func (e *TextExtractor) Extract(_ context.Context, content []byte) (string, error) {
	if e.Err != nil {
		return "", e.Err
	}
	text, ok := e.Texts[string(content)]
	if !ok {
		return "", fmt.Errorf("no stub text for content %q", string(content))
	}
	return text, nil
}

// FileStore is a stub file store holding contents in a map and
// recording deletions.
type FileStore struct {
	mu      sync.Mutex
	Files   map[string][]byte
	deleted []string

	// DeleteErr, when set, fails every deletion.
	DeleteErr error
}

// NewFileStore creates a stub file store.
func NewFileStore() *FileStore {
	return &FileStore{Files: make(map[string][]byte)}
}

// Read returns the stored contents for path.
func (f *FileStore) Read(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Files[path]
	if !ok {
		return nil, fmt.Errorf("no stub file at %s", path)
	}
	return data, nil
}

// Delete removes the stored file and records the deletion.
func (f *FileStore) Delete(_ context.Context, path string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Files, path)
	f.deleted = append(f.deleted, path)
	return nil
}

// Deleted returns the deleted paths in order.
func (f *FileStore) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}
