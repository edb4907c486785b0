package redis

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vellum-labs/vellum/internal/core/domain"
)

// testQueue connects to the Redis instance named by VELLUM_TEST_REDIS_ADDR
// and returns a queue on a unique name. Tests needing Redis skip when the
// variable is unset.
func testQueue(t *testing.T) *Queue {
	t.Helper()

	addr := os.Getenv("VELLUM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("VELLUM_TEST_REDIS_ADDR not set, skipping Redis integration test")
	}

	q := NewQueue(Config{
		Addr:              addr,
		Name:              "vellum-test-" + t.Name() + "-" + time.Now().Format("150405.000000000"),
		VisibilityTimeout: 2 * time.Second,
		ReapInterval:      time.Millisecond,
	})
	t.Cleanup(func() {
		ctx := context.Background()
		q.client.Del(ctx, q.pendingKey(), q.processingKey(), q.leasesKey(), q.delayedKey(), q.deadKey())
		q.Close()
	})
	return q
}

func testJob(docID string) domain.IngestionJob {
	return domain.IngestionJob{
		DocumentID:     docID,
		UserID:         "user-1",
		SourceFilePath: "/uploads/" + docID + ".pdf",
		Filename:       docID + ".pdf",
	}
}

func TestEnqueue_RejectsInvalidJob(t *testing.T) {
	q := NewQueue(Config{Addr: "127.0.0.1:1"})

	err := q.Enqueue(context.Background(), domain.IngestionJob{UserID: "user-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidJob)
}

func TestEnqueueDequeueAck(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testJob("doc-1")))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	delivery, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", delivery.Job.DocumentID)
	assert.Equal(t, 1, delivery.Job.Attempt)
	assert.NotEmpty(t, delivery.Job.JobID)
	assert.False(t, delivery.Job.EnqueuedAt.IsZero())

	require.NoError(t, delivery.Ack(ctx))

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)

	// Nothing left in flight either.
	n, err := q.client.LLen(ctx, q.processingKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRetry_RedeliversWithBumpedAttempt(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testJob("doc-1")))

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Retry(ctx, 0))

	// The retry is due immediately; the reaper inside Dequeue promotes it.
	dequeueCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	second, err := q.Dequeue(dequeueCtx)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", second.Job.DocumentID)
	assert.Equal(t, 2, second.Job.Attempt)
	assert.Equal(t, first.Job.JobID, second.Job.JobID)

	require.NoError(t, second.Ack(ctx))
}

func TestFail_MovesToDeadLetters(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testJob("doc-1")))

	delivery, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, delivery.Fail(ctx, "pdf extraction failed"))

	entries, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var dl deadLetter
	require.NoError(t, json.Unmarshal([]byte(entries[0]), &dl))
	assert.Equal(t, "doc-1", dl.Job.DocumentID)
	assert.Equal(t, "pdf extraction failed", dl.Reason)
	assert.False(t, dl.FailedAt.IsZero())

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestExpiredLease_IsRedelivered(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testJob("doc-1")))

	// Dequeue and walk away without settling; the 2s visibility timeout
	// expires and the reaper returns the job to pending.
	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	_ = first

	time.Sleep(2500 * time.Millisecond)

	dequeueCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	second, err := q.Dequeue(dequeueCtx)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", second.Job.DocumentID)
	assert.Equal(t, 2, second.Job.Attempt)

	require.NoError(t, second.Ack(ctx))
}

func TestDequeue_HonorsContextCancellation(t *testing.T) {
	q := testQueue(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := q.Dequeue(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

// Concurrent consumers share one queue, so only one of them may claim a
// sweep per interval; a doubled sweep would redeliver the same delayed
// payload twice.
func TestShouldReap_SingleFlightAcrossConsumers(t *testing.T) {
	q := NewQueue(Config{Name: "reap-claim-test"})
	defer q.Close()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if q.shouldReap() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.False(t, q.shouldReap(), "claim must hold for the rest of the interval")

	// Once the interval elapses the sweep becomes claimable again.
	q.reapMu.Lock()
	q.lastReap = time.Now().Add(-2 * q.reapEvery)
	q.reapMu.Unlock()
	assert.True(t, q.shouldReap())
}
