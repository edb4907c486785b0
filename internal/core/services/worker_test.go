package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellum-labs/vellum/internal/adapters/driven/storage/memory"
	"github.com/vellum-labs/vellum/internal/chunker"
	"github.com/vellum-labs/vellum/internal/core/domain"
	"github.com/vellum-labs/vellum/internal/core/ports/driven"
)

// workerFixture bundles the doubles behind one worker under test.
type workerFixture struct {
	worker      *Worker
	queue       *memory.JobQueue
	extractor   *memory.TextExtractor
	embedder    *memory.EmbeddingService
	collections *memory.CollectionStore
	docs        *memory.DocumentStore
	files       *memory.FileStore
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	splitter, err := chunker.New(200, 40)
	require.NoError(t, err)

	f := &workerFixture{
		queue:       memory.NewJobQueue(),
		extractor:   memory.NewTextExtractor(),
		embedder:    memory.NewEmbeddingService(8),
		collections: memory.NewCollectionStore(),
		docs:        memory.NewDocumentStore(),
		files:       memory.NewFileStore(),
	}
	f.worker = NewWorker(
		WorkerConfig{Concurrency: 1, MaxAttempts: 3, EmbedBatchSize: 2},
		f.queue, f.extractor, splitter, f.embedder, f.collections, f.docs, f.files,
	)
	return f
}

// seedDocument registers the record, source file, and extractable text a
// job needs, and returns that job.
func (f *workerFixture) seedDocument(t *testing.T, docID, text string) domain.IngestionJob {
	t.Helper()

	path := "/uploads/" + docID + ".pdf"
	require.NoError(t, f.docs.Save(context.Background(), domain.DocumentRecord{
		DocumentID: docID,
		UserID:     "user-1",
		Filename:   docID + ".pdf",
		Status:     domain.StatusPending,
	}))
	content := []byte("%PDF-1.4 " + docID)
	f.files.Files[path] = content
	f.extractor.Texts[string(content)] = text

	return domain.IngestionJob{
		JobID:          "job-" + docID,
		DocumentID:     docID,
		UserID:         "user-1",
		SourceFilePath: path,
		Filename:       docID + ".pdf",
		Attempt:        1,
	}
}

// settlement records which delivery callback the worker chose.
type settlement struct {
	mu      sync.Mutex
	acked   bool
	retried bool
	delay   time.Duration
	failed  bool
	reason  string
}

func (s *settlement) delivery(job domain.IngestionJob) *driven.JobDelivery {
	return &driven.JobDelivery{
		Job: job,
		Ack: func(context.Context) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.acked = true
			return nil
		},
		Retry: func(_ context.Context, delay time.Duration) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.retried = true
			s.delay = delay
			return nil
		},
		Fail: func(_ context.Context, reason string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.failed = true
			s.reason = reason
			return nil
		},
	}
}

func TestWorker_RunProcessesJobEndToEnd(t *testing.T) {
	f := newWorkerFixture(t)
	text := strings.Repeat("The quarterly report shows steady growth across regions. ", 20)
	job := f.seedDocument(t, "doc-1", text)

	require.NoError(t, f.queue.Enqueue(context.Background(), job))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(f.queue.AckedJobs()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// Chunks landed in the collection with vectors and the model name.
	chunks := f.collections.Chunks("doc-1")
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Sequence)
		assert.Len(t, c.Vector, 8)
		assert.Equal(t, "stub-embed", c.Model)
	}

	// The record reached ready with its collection reference.
	rec, err := f.docs.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReady, rec.Status)
	assert.Equal(t, domain.CollectionName("doc-1"), rec.CollectionRef)

	// The source file was cleaned up.
	assert.Equal(t, []string{job.SourceFilePath}, f.files.Deleted())
}

func TestWorker_RunFailsFastWhenEmbedderUnreachable(t *testing.T) {
	f := newWorkerFixture(t)
	f.embedder.PingErr = fmt.Errorf("%w: connection refused", domain.ErrTransient)

	err := f.worker.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding provider unreachable")
}

func TestHandle_TransientErrorSchedulesRetry(t *testing.T) {
	f := newWorkerFixture(t)
	job := f.seedDocument(t, "doc-1", "some text")
	f.embedder.EmbedErr = fmt.Errorf("%w: rate limited", domain.ErrTransient)

	s := &settlement{}
	f.worker.handle(context.Background(), s.delivery(job))

	assert.True(t, s.retried)
	assert.Greater(t, s.delay, time.Duration(0))
	assert.False(t, s.acked)
	assert.False(t, s.failed)

	// The record stays in processing; the retry owns the next move.
	rec, err := f.docs.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, rec.Status)
}

func TestHandle_TransientErrorAtLastAttemptDeadLetters(t *testing.T) {
	f := newWorkerFixture(t)
	job := f.seedDocument(t, "doc-1", "some text")
	job.Attempt = 3 // MaxAttempts in the fixture
	f.embedder.EmbedErr = fmt.Errorf("%w: rate limited", domain.ErrTransient)

	s := &settlement{}
	f.worker.handle(context.Background(), s.delivery(job))

	assert.True(t, s.failed)
	assert.False(t, s.retried)
	assert.Contains(t, s.reason, "rate limited")

	rec, err := f.docs.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "rate limited")
}

func TestHandle_ExtractionErrorNeverRetries(t *testing.T) {
	f := newWorkerFixture(t)
	job := f.seedDocument(t, "doc-1", "ignored")
	f.extractor.Err = fmt.Errorf("%w: corrupt xref table", domain.ErrExtraction)

	s := &settlement{}
	f.worker.handle(context.Background(), s.delivery(job))

	assert.True(t, s.failed)
	assert.False(t, s.retried)

	rec, err := f.docs.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
}

func TestHandle_ProviderFatalErrorNeverRetries(t *testing.T) {
	f := newWorkerFixture(t)
	job := f.seedDocument(t, "doc-1", "some text")
	f.embedder.EmbedErr = fmt.Errorf("%w: invalid API key", domain.ErrProviderFatal)

	s := &settlement{}
	f.worker.handle(context.Background(), s.delivery(job))

	assert.True(t, s.failed)
	assert.False(t, s.retried)
	assert.Contains(t, s.reason, "invalid API key")
}

func TestProcess_EmptyExtractionFails(t *testing.T) {
	f := newWorkerFixture(t)
	job := f.seedDocument(t, "doc-1", "")

	err := f.worker.process(context.Background(), job)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.False(t, domain.IsRetryable(err))
}

func TestProcess_MissingRecordIsInvalidJob(t *testing.T) {
	f := newWorkerFixture(t)
	job := domain.IngestionJob{
		JobID:          "job-x",
		DocumentID:     "never-recorded",
		UserID:         "user-1",
		SourceFilePath: "/uploads/never.pdf",
		Attempt:        1,
	}

	err := f.worker.process(context.Background(), job)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidJob)
}

// A job that fails validation must settle without a single provider or
// store call; there is no document to bill the work against.
func TestProcess_InvalidJobTouchesNoProviders(t *testing.T) {
	f := newWorkerFixture(t)
	job := domain.IngestionJob{
		JobID:          "job-x",
		DocumentID:     "doc-1",
		SourceFilePath: "/uploads/doc-1.pdf",
		Attempt:        1,
		// UserID missing.
	}

	err := f.worker.process(context.Background(), job)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidJob)

	assert.Empty(t, f.embedder.Batches(), "embedding provider must not be contacted")
	assert.Empty(t, f.collections.Chunks("doc-1"), "collection store must not be written")
}

// The worker reads source files through the file store, so a payload
// pointing at a vanished upload fails the job instead of reaching the
// extractor.
func TestProcess_MissingSourceFileFails(t *testing.T) {
	f := newWorkerFixture(t)
	job := f.seedDocument(t, "doc-1", "some text")
	delete(f.files.Files, job.SourceFilePath)

	err := f.worker.process(context.Background(), job)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.False(t, domain.IsRetryable(err))
	assert.Empty(t, f.embedder.Batches())
}

func TestProcess_ReplayIsIdempotent(t *testing.T) {
	f := newWorkerFixture(t)
	text := strings.Repeat("Replayed ingestion must not duplicate chunks. ", 15)
	job := f.seedDocument(t, "doc-1", text)

	require.NoError(t, f.worker.process(context.Background(), job))
	first := f.collections.Chunks("doc-1")
	require.NotEmpty(t, first)

	// A redelivery of the same job reruns the whole pipeline. The file
	// was deleted after the first pass, so restore it the way a retried
	// job would still find it mid-failure.
	f.files.Files[job.SourceFilePath] = []byte("%PDF-1.4 doc-1")
	job.Attempt = 2
	require.NoError(t, f.worker.process(context.Background(), job))

	second := f.collections.Chunks("doc-1")
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].Vector, second[i].Vector)
	}
}

func TestEmbed_BatchesRespectConfiguredSize(t *testing.T) {
	f := newWorkerFixture(t)

	chunks := make([]domain.Chunk, 5)
	for i := range chunks {
		chunks[i] = domain.Chunk{DocumentID: "doc-1", Text: fmt.Sprintf("chunk %d", i), Sequence: i}
	}

	embedded, err := f.worker.embed(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, embedded, 5)

	// Order survives batching.
	for i, e := range embedded {
		assert.Equal(t, i, e.Sequence)
		assert.Equal(t, fmt.Sprintf("chunk %d", i), e.Text)
	}

	// Batch size 2 over 5 chunks means 3 provider calls.
	batches := f.embedder.Batches()
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 2)
	assert.Len(t, batches[2], 1)
}

func TestRetryDelay_GrowsWithAttempts(t *testing.T) {
	first := retryDelay(1)
	assert.Greater(t, first, time.Duration(0))
	assert.LessOrEqual(t, first, 2*time.Minute+time.Minute)

	later := retryDelay(4)
	assert.Greater(t, later, time.Duration(0))
	assert.LessOrEqual(t, later, 2*time.Minute+time.Minute)
}
