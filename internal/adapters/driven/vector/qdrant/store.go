// Package qdrant implements the collection store against the Qdrant
// REST API. Each document owns one collection; points carry the chunk
// text and offsets as payload so search results need no second lookup.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vellum-labs/vellum/internal/core/domain"
	"github.com/vellum-labs/vellum/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.CollectionStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultURL     = "http://localhost:6333"
	DefaultTimeout = 15 * time.Second
)

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the Qdrant base URL (default: http://localhost:6333).
	URL string

	// APIKey authenticates requests when set.
	APIKey string

	// Dimensions is the vector size declared for new collections
	// (required; must match the embedding model).
	Dimensions int

	// Timeout is the request timeout (default: 15s).
	Timeout time.Duration
}

// Store is a Qdrant-backed collection store.
//
// Point IDs are UUIDv5 values derived from (documentID, sequence), so
// re-upserting a chunk overwrites the existing point instead of adding
// a duplicate. That property is what makes at-least-once job delivery
// safe for the ingestion worker.
type Store struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	dimensions int
}

// NewStore creates a new Qdrant store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: qdrant store requires a positive vector dimension", domain.ErrInvalidConfig)
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Store{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		dimensions: cfg.Dimensions,
	}, nil
}

// collectionInfoResponse is the GET /collections/{name} response subset
// the store cares about.
type collectionInfoResponse struct {
	Result struct {
		PointsCount uint64 `json:"points_count"`
	} `json:"result"`
}

// searchResponse is the POST /collections/{name}/points/search response.
type searchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Exists reports whether the document's collection exists and holds at
// least one point. A created-but-empty collection is indistinguishable
// from an absent one: both mean "not processed yet".
func (s *Store) Exists(ctx context.Context, documentID string) (bool, error) {
	name := domain.CollectionName(documentID)

	resp, err := s.do(ctx, http.MethodGet, "/collections/"+name, nil)
	if err != nil {
		return false, fmt.Errorf("%w: get collection %s: %w", domain.ErrStoreUnavailable, name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("%w: get collection %s: status %d", domain.ErrStoreUnavailable, name, resp.StatusCode)
	}

	var info collectionInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false, fmt.Errorf("%w: decode collection info: %w", domain.ErrStoreUnavailable, err)
	}
	return info.Result.PointsCount > 0, nil
}

// Upsert writes embedded chunks into the document's collection, creating
// it on first write.
func (s *Store) Upsert(ctx context.Context, documentID string, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if len(c.Vector) != s.dimensions {
			return fmt.Errorf("%w: chunk %d has vector length %d, collection expects %d",
				domain.ErrInvalidConfig, c.Sequence, len(c.Vector), s.dimensions)
		}
	}

	name := domain.CollectionName(documentID)
	if err := s.ensureCollection(ctx, name); err != nil {
		return err
	}

	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		points[i] = map[string]any{
			"id":     PointID(documentID, c.Sequence),
			"vector": c.Vector,
			"payload": map[string]any{
				"document_id":  c.DocumentID,
				"sequence":     c.Sequence,
				"text":         c.Text,
				"start_offset": c.StartOffset,
				"end_offset":   c.EndOffset,
				"model":        c.Model,
			},
		}
	}

	body := map[string]any{"points": points}
	resp, err := s.do(ctx, http.MethodPut, "/collections/"+name+"/points?wait=true", body)
	if err != nil {
		return fmt.Errorf("%w: upsert into %s: %w", domain.ErrStoreUnavailable, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: upsert into %s: status %d", domain.ErrStoreUnavailable, name, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("upsert into %s rejected: status %d: %s", name, resp.StatusCode, readBody(resp))
	}
	return nil
}

// ensureCollection creates the collection if absent. Qdrant answers a
// create for an existing collection with a conflict; a concurrent first
// writer losing that race just proceeds to upsert.
func (s *Store) ensureCollection(ctx context.Context, name string) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimensions,
			"distance": "Cosine",
		},
	}
	resp, err := s.do(ctx, http.MethodPut, "/collections/"+name, body)
	if err != nil {
		return fmt.Errorf("%w: create collection %s: %w", domain.ErrStoreUnavailable, name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// Already exists: first writer won, we proceed.
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: create collection %s: status %d", domain.ErrStoreUnavailable, name, resp.StatusCode)
	default:
		return fmt.Errorf("create collection %s rejected: status %d: %s", name, resp.StatusCode, readBody(resp))
	}
}

// Search returns up to k chunks nearest to the query vector.
func (s *Store) Search(ctx context.Context, documentID string, vector []float32, k int) ([]domain.ScoredChunk, error) {
	name := domain.CollectionName(documentID)

	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	resp, err := s.do(ctx, http.MethodPost, "/collections/"+name+"/points/search", body)
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %w", domain.ErrStoreUnavailable, name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: search %s: status %d", domain.ErrStoreUnavailable, name, resp.StatusCode)
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %w", domain.ErrStoreUnavailable, err)
	}

	hits := make([]domain.ScoredChunk, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		hit := domain.ScoredChunk{Score: r.Score}
		if v, ok := r.Payload["document_id"].(string); ok {
			hit.DocumentID = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			hit.Text = v
		}
		if v, ok := r.Payload["sequence"].(float64); ok {
			hit.Sequence = int(v)
		}
		if v, ok := r.Payload["start_offset"].(float64); ok {
			hit.StartOffset = int(v)
		}
		if v, ok := r.Payload["end_offset"].(float64); ok {
			hit.EndOffset = int(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Delete removes the document's collection. Deleting an absent
// collection is not an error.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	name := domain.CollectionName(documentID)

	resp, err := s.do(ctx, http.MethodDelete, "/collections/"+name, nil)
	if err != nil {
		return fmt.Errorf("%w: delete collection %s: %w", domain.ErrStoreUnavailable, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: delete collection %s: status %d", domain.ErrStoreUnavailable, name, resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (s *Store) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// PointID derives the deterministic Qdrant point ID for a chunk.
// The same (documentID, sequence) always maps to the same UUID, which
// is what makes Upsert idempotent under job redelivery.
func PointID(documentID string, sequence int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("vellum/"+documentID+"/"+strconv.Itoa(sequence))).String()
}

// do issues one JSON request against the Qdrant API.
func (s *Store) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	return s.client.Do(req)
}

func readBody(resp *http.Response) string {
	const max = 256
	data, err := io.ReadAll(io.LimitReader(resp.Body, max))
	if err != nil {
		return "unreadable body"
	}
	return string(data)
}
