package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vellum-labs/vellum/internal/core/domain"
	"github.com/vellum-labs/vellum/internal/core/ports/driven"
)

// Ensure JobQueue implements the interface.
var _ driven.JobQueue = (*JobQueue)(nil)

// DeadJob is a dead-lettered job with its failure reason.
type DeadJob struct {
	Job    domain.IngestionJob
	Reason string
}

// JobQueue is an in-memory implementation of driven.JobQueue for testing.
// Retried jobs are redelivered after their delay with a bumped attempt
// counter, matching the durable queue's behaviour.
type JobQueue struct {
	mu      sync.Mutex
	pending chan domain.IngestionJob
	dead    []DeadJob
	acked   []domain.IngestionJob
	closed  bool

	// EnqueueErr, when set, fails every enqueue.
	EnqueueErr error
}

// NewJobQueue creates a new in-memory job queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{
		pending: make(chan domain.IngestionJob, 256),
	}
}

// Enqueue makes a job available for consumption.
func (q *JobQueue) Enqueue(ctx context.Context, job domain.IngestionJob) error {
	if q.EnqueueErr != nil {
		return q.EnqueueErr
	}
	if err := job.Validate(); err != nil {
		return err
	}
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.Attempt == 0 {
		job.Attempt = 1
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	select {
	case q.pending <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a job is available or ctx is cancelled.
func (q *JobQueue) Dequeue(ctx context.Context) (*driven.JobDelivery, error) {
	select {
	case job := <-q.pending:
		return &driven.JobDelivery{
			Job: job,
			Ack: func(context.Context) error {
				q.mu.Lock()
				q.acked = append(q.acked, job)
				q.mu.Unlock()
				return nil
			},
			Retry: func(ctx context.Context, delay time.Duration) error {
				retried := job
				retried.Attempt++
				if delay <= 0 {
					return q.requeue(retried)
				}
				time.AfterFunc(delay, func() {
					_ = q.requeue(retried)
				})
				return nil
			},
			Fail: func(_ context.Context, reason string) error {
				q.mu.Lock()
				q.dead = append(q.dead, DeadJob{Job: job, Reason: reason})
				q.mu.Unlock()
				return nil
			},
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *JobQueue) requeue(job domain.IngestionJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.pending <- job
	return nil
}

// DeadJobs returns the dead-lettered jobs in failure order.
func (q *JobQueue) DeadJobs() []DeadJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DeadJob, len(q.dead))
	copy(out, q.dead)
	return out
}

// AckedJobs returns the acknowledged jobs in settlement order.
func (q *JobQueue) AckedJobs() []domain.IngestionJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.IngestionJob, len(q.acked))
	copy(out, q.acked)
	return out
}

// Depth reports the number of jobs waiting.
func (q *JobQueue) Depth() int {
	return len(q.pending)
}

// Close marks the queue closed. Pending jobs are discarded.
func (q *JobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}
