package driven

import (
	"context"
	"time"

	"github.com/vellum-labs/vellum/internal/core/domain"
)

// JobQueue is the durable channel between the upload path and the
// ingestion worker. Delivery is at-least-once: a job acknowledged by a
// crashed worker is redelivered after its visibility timeout, so
// consumers must tolerate replay.
type JobQueue interface {
	// Enqueue makes a job available for consumption.
	Enqueue(ctx context.Context, job domain.IngestionJob) error

	// Dequeue blocks until a job is available or ctx is cancelled.
	// The returned delivery must be settled with exactly one of Ack,
	// Retry, or Fail; an unsettled delivery is redelivered after the
	// queue's visibility timeout.
	Dequeue(ctx context.Context) (*JobDelivery, error)

	// Close releases the queue connection.
	Close() error
}

// JobDelivery is one handed-out job plus its settlement operations.
type JobDelivery struct {
	// Job is the delivered payload. Attempt reflects this delivery.
	Job domain.IngestionJob

	// Ack acknowledges terminal processing: the job is done, whether it
	// completed or failed for good, and will not be redelivered.
	Ack func(ctx context.Context) error

	// Retry requeues the job for another attempt after the given delay.
	// The redelivered payload carries an incremented Attempt.
	Retry func(ctx context.Context, delay time.Duration) error

	// Fail moves the job to the dead-letter list with a reason, where
	// operators can inspect it. The job is not redelivered.
	Fail func(ctx context.Context, reason string) error
}
