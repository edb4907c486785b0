package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vellum-labs/vellum/internal/core/domain"
	"github.com/vellum-labs/vellum/internal/core/ports/driven"
	"github.com/vellum-labs/vellum/internal/core/ports/driving"
	"github.com/vellum-labs/vellum/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// IngestService is the upload-path entrypoint: it records a pending
// document and hands the heavy lifting to the queue. Nothing here
// touches the PDF; upload latency stays independent of document size.
type IngestService struct {
	queue       driven.JobQueue
	docs        driven.DocumentStore
	collections driven.CollectionStore
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	queue driven.JobQueue,
	docs driven.DocumentStore,
	collections driven.CollectionStore,
) *IngestService {
	return &IngestService{
		queue:       queue,
		docs:        docs,
		collections: collections,
	}
}

// EnqueueIngestion records a pending document and queues its ingestion
// job. Returns the job ID.
func (s *IngestService) EnqueueIngestion(ctx context.Context, documentID, userID, filePath, filename string) (string, error) {
	job := domain.IngestionJob{
		JobID:          uuid.NewString(),
		DocumentID:     strings.TrimSpace(documentID),
		UserID:         strings.TrimSpace(userID),
		SourceFilePath: filePath,
		Filename:       filename,
		EnqueuedAt:     time.Now().UTC(),
		Attempt:        1,
	}
	if err := job.Validate(); err != nil {
		return "", err
	}

	// The record is written before the job so a worker picking it up
	// immediately still finds something to flip to processing.
	rec := domain.DocumentRecord{
		DocumentID: job.DocumentID,
		UserID:     job.UserID,
		Filename:   job.Filename,
		Status:     domain.StatusPending,
	}
	if err := s.docs.Save(ctx, rec); err != nil {
		return "", fmt.Errorf("recording pending document: %w", err)
	}

	if err := s.queue.Enqueue(ctx, job); err != nil {
		return "", fmt.Errorf("queueing ingestion: %w", err)
	}

	logger.Info("ingestion queued",
		zap.String("job_id", job.JobID),
		zap.String("document_id", job.DocumentID),
		zap.String("filename", job.Filename),
	)
	return job.JobID, nil
}

// IsReady reports whether the document's collection is searchable.
func (s *IngestService) IsReady(ctx context.Context, documentID string) (bool, error) {
	return s.collections.Exists(ctx, documentID)
}
