package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/vellum-labs/vellum/internal/chunker"
	"github.com/vellum-labs/vellum/internal/core/domain"
	"github.com/vellum-labs/vellum/internal/core/ports/driven"
	"github.com/vellum-labs/vellum/internal/logger"
)

// Default worker settings.
const (
	DefaultConcurrency    = 2
	DefaultMaxAttempts    = 5
	DefaultEmbedBatchSize = 32
)

// WorkerConfig configures the ingestion worker pool.
type WorkerConfig struct {
	// Concurrency is the number of parallel job handlers (default: 2).
	Concurrency int

	// MaxAttempts bounds deliveries per job before dead-lettering
	// (default: 5).
	MaxAttempts int

	// EmbedBatchSize bounds texts per embedding request (default: 32).
	EmbedBatchSize int
}

// Worker consumes ingestion jobs and runs each through the pipeline:
// validate, extract, chunk, embed, upsert, finalize. Every stage failure
// is classified so the settlement decision (ack, retry, dead-letter)
// follows from the error, not from where it happened.
type Worker struct {
	cfg         WorkerConfig
	queue       driven.JobQueue
	extractor   driven.TextExtractor
	splitter    *chunker.Splitter
	embedder    driven.EmbeddingService
	collections driven.CollectionStore
	docs        driven.DocumentStore
	files       driven.FileStore
}

// NewWorker creates a new ingestion worker pool.
func NewWorker(
	cfg WorkerConfig,
	queue driven.JobQueue,
	extractor driven.TextExtractor,
	splitter *chunker.Splitter,
	embedder driven.EmbeddingService,
	collections driven.CollectionStore,
	docs driven.DocumentStore,
	files driven.FileStore,
) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}

	return &Worker{
		cfg:         cfg,
		queue:       queue,
		extractor:   extractor,
		splitter:    splitter,
		embedder:    embedder,
		collections: collections,
		docs:        docs,
		files:       files,
	}
}

// Run starts the worker pool and blocks until ctx is cancelled. The
// embedding provider is pinged first so misconfiguration surfaces
// before any job is consumed.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.embedder.Ping(ctx); err != nil {
		return fmt.Errorf("embedding provider unreachable: %w", err)
	}

	logger.Info("worker started",
		zap.Int("concurrency", w.cfg.Concurrency),
		zap.Int("max_attempts", w.cfg.MaxAttempts),
		zap.String("embedding_model", w.embedder.ModelName()),
		zap.Int("dimensions", w.embedder.Dimensions()),
	)

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.consume(ctx, id)
		}(i)
	}
	wg.Wait()

	logger.Info("worker stopped")
	return nil
}

// consume is one handler loop. It exits when ctx is cancelled.
func (w *Worker) consume(ctx context.Context, id int) {
	for {
		delivery, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("dequeue failed", zap.Int("handler", id), zap.Error(err))
			// Queue trouble is not worth a hot loop.
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		w.handle(ctx, delivery)
	}
}

// handle runs one delivered job through the pipeline and settles it.
func (w *Worker) handle(ctx context.Context, delivery *driven.JobDelivery) {
	job := delivery.Job
	log := logger.With(
		zap.String("job_id", job.JobID),
		zap.String("document_id", job.DocumentID),
		zap.Int("attempt", job.Attempt),
	)

	log.Info("job dequeued", zap.String("filename", job.Filename))

	err := w.process(ctx, job)
	if err == nil {
		log.Info("job completed")
		if ackErr := delivery.Ack(ctx); ackErr != nil {
			log.Error("ack failed", zap.Error(ackErr))
		}
		return
	}

	if domain.IsRetryable(err) && job.Attempt < w.cfg.MaxAttempts {
		delay := retryDelay(job.Attempt)
		log.Warn("job failed, scheduling retry",
			zap.Error(err),
			zap.Duration("delay", delay),
		)
		if retryErr := delivery.Retry(ctx, delay); retryErr != nil {
			log.Error("retry scheduling failed", zap.Error(retryErr))
		}
		return
	}

	// Permanent failure: exhausted retries or a non-retryable error.
	reason := err.Error()
	log.Error("job failed permanently", zap.Error(err))

	if updErr := w.docs.UpdateStatus(ctx, job.DocumentID, job.UserID, domain.StatusFailed, "", reason); updErr != nil {
		log.Error("recording failure state failed", zap.Error(updErr))
	}
	if failErr := delivery.Fail(ctx, reason); failErr != nil {
		log.Error("dead-lettering failed", zap.Error(failErr))
	}
}

// process runs the pipeline stages for one job. A retried job runs the
// whole pipeline again from the top; the idempotent upsert makes the
// replay safe.
func (w *Worker) process(ctx context.Context, job domain.IngestionJob) error {
	// Validating
	if err := job.Validate(); err != nil {
		return err
	}
	if err := w.docs.UpdateStatus(ctx, job.DocumentID, job.UserID, domain.StatusProcessing, "", ""); err != nil {
		// A missing record means the job references a document the
		// upload path never recorded; nothing downstream can fix that.
		if errors.Is(err, domain.ErrDocumentNotReady) {
			return fmt.Errorf("%w: no document record for %s", domain.ErrInvalidJob, job.DocumentID)
		}
		return err
	}

	// Extracting. The read goes through the file store so its path
	// containment applies to queue payloads too.
	content, err := w.files.Read(ctx, job.SourceFilePath)
	if err != nil {
		return fmt.Errorf("%w: read source %s: %w", domain.ErrExtraction, job.SourceFilePath, err)
	}
	text, err := w.extractor.Extract(ctx, content)
	if err != nil {
		return err
	}
	if len(text) == 0 {
		return fmt.Errorf("%w: no extractable text in %s", domain.ErrExtraction, job.Filename)
	}

	// Chunking
	chunks := w.splitter.Split(job.DocumentID, text)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: chunking produced nothing for %s", domain.ErrExtraction, job.Filename)
	}

	// Embedding
	embedded, err := w.embed(ctx, chunks)
	if err != nil {
		return err
	}

	// Upserting
	if err := w.collections.Upsert(ctx, job.DocumentID, embedded); err != nil {
		return err
	}

	// Finalizing
	collectionRef := domain.CollectionName(job.DocumentID)
	if err := w.docs.UpdateStatus(ctx, job.DocumentID, job.UserID, domain.StatusReady, collectionRef, ""); err != nil {
		return err
	}

	// Source file cleanup is best-effort: the document is already
	// searchable, and a stranded temp file must not undo that.
	if err := w.files.Delete(ctx, job.SourceFilePath); err != nil {
		logger.Warn("source file cleanup failed",
			zap.String("document_id", job.DocumentID),
			zap.String("path", job.SourceFilePath),
			zap.Error(err),
		)
	}

	return nil
}

// embed turns chunks into embedded chunks, batching requests to the
// provider. Output order matches input order.
func (w *Worker) embed(ctx context.Context, chunks []domain.Chunk) ([]domain.EmbeddedChunk, error) {
	model := w.embedder.ModelName()
	embedded := make([]domain.EmbeddedChunk, 0, len(chunks))

	for start := 0; start < len(chunks); start += w.cfg.EmbedBatchSize {
		end := start + w.cfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := w.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}

		for i, c := range batch {
			embedded = append(embedded, domain.EmbeddedChunk{
				Chunk:  c,
				Vector: vectors[i],
				Model:  model,
			})
		}
	}

	return embedded, nil
}

// retryDelay computes the backoff before redelivering attempt n. The
// schedule is exponential with jitter, capped by the backoff policy's
// maximum interval.
func retryDelay(attempt int) time.Duration {
	policy := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(2*time.Second),
		backoff.WithMaxInterval(2*time.Minute),
		backoff.WithMaxElapsedTime(0),
	)

	delay := policy.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = policy.NextBackOff()
	}
	return delay
}
