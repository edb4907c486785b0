// Package redis implements the job queue on Redis lists and sorted
// sets. The layout gives at-least-once delivery without any broker:
//
//	{name}:pending     list  jobs awaiting a worker (LPUSH / BLMOVE)
//	{name}:processing  list  jobs handed out and not yet settled
//	{name}:leases      zset  processing payload -> visibility deadline
//	{name}:delayed     zset  retried payload -> ready-at time
//	{name}:dead        list  dead-lettered payloads with a reason
//
// A worker that crashes mid-job leaves its payload in processing with
// an expired lease; the reaper moves it back to pending with a bumped
// attempt counter, which is where the at-least-once guarantee comes
// from.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vellum-labs/vellum/internal/core/domain"
	"github.com/vellum-labs/vellum/internal/core/ports/driven"
)

// Ensure Queue implements the interface.
var _ driven.JobQueue = (*Queue)(nil)

// Default configuration values.
const (
	DefaultAddr              = "localhost:6379"
	DefaultName              = "pdf-queue"
	DefaultVisibilityTimeout = 5 * time.Minute
	DefaultReapInterval      = 30 * time.Second

	// dequeuePollTimeout bounds each BLMOVE so Dequeue can notice
	// context cancellation and run the reaper between polls.
	dequeuePollTimeout = 2 * time.Second
)

// Config holds configuration for the Redis job queue.
type Config struct {
	// Addr is the Redis address (default: localhost:6379).
	Addr string

	// Password authenticates against Redis when set.
	Password string

	// DB selects the Redis logical database.
	DB int

	// Name is the logical queue name (default: pdf-queue).
	Name string

	// VisibilityTimeout is how long a dequeued job may stay unsettled
	// before the reaper returns it to pending (default: 5m).
	VisibilityTimeout time.Duration

	// ReapInterval is how often expired leases and due retries are
	// swept (default: 30s).
	ReapInterval time.Duration
}

// Queue is a Redis-backed job queue. It is safe for concurrent use by
// multiple consumer goroutines.
type Queue struct {
	client     *redis.Client
	name       string
	visibility time.Duration
	reapEvery  time.Duration

	// reapMu serialises the due-check so concurrent consumers never run
	// the reaper at the same time; a doubled sweep would LPush the same
	// delayed payload twice.
	reapMu   sync.Mutex
	lastReap time.Time
}

// deadLetter wraps a payload that exhausted its attempts or hit a
// permanent failure.
type deadLetter struct {
	Job      domain.IngestionJob `json:"job"`
	Reason   string              `json:"reason"`
	FailedAt time.Time           `json:"failed_at"`
}

// NewQueue creates a new Redis job queue.
func NewQueue(cfg Config) *Queue {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.VisibilityTimeout == 0 {
		cfg.VisibilityTimeout = DefaultVisibilityTimeout
	}
	if cfg.ReapInterval == 0 {
		cfg.ReapInterval = DefaultReapInterval
	}

	return &Queue{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		name:       cfg.Name,
		visibility: cfg.VisibilityTimeout,
		reapEvery:  cfg.ReapInterval,
	}
}

func (q *Queue) pendingKey() string    { return q.name + ":pending" }
func (q *Queue) processingKey() string { return q.name + ":processing" }
func (q *Queue) leasesKey() string     { return q.name + ":leases" }
func (q *Queue) delayedKey() string    { return q.name + ":delayed" }
func (q *Queue) deadKey() string       { return q.name + ":dead" }

// Enqueue makes a job available for consumption. A job without an ID
// or attempt counter gets them here, so callers only fill in the
// document fields.
func (q *Queue) Enqueue(ctx context.Context, job domain.IngestionJob) error {
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

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	if err := q.client.LPush(ctx, q.pendingKey(), payload).Err(); err != nil {
		return fmt.Errorf("%w: enqueue: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Dequeue blocks until a job is available or ctx is cancelled. Between
// polls it sweeps due retries and expired leases back into pending.
func (q *Queue) Dequeue(ctx context.Context) (*driven.JobDelivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if q.shouldReap() {
			if err := q.reap(ctx); err != nil {
				return nil, err
			}
		}

		payload, err := q.client.BLMove(ctx, q.pendingKey(), q.processingKey(),
			"RIGHT", "LEFT", dequeuePollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: dequeue: %w", domain.ErrStoreUnavailable, err)
		}

		deadline := float64(time.Now().Add(q.visibility).Unix())
		if err := q.client.ZAdd(ctx, q.leasesKey(), redis.Z{Score: deadline, Member: payload}).Err(); err != nil {
			return nil, fmt.Errorf("%w: record lease: %w", domain.ErrStoreUnavailable, err)
		}

		var job domain.IngestionJob
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			// Unparseable payloads go straight to the dead letter list;
			// redelivering them can never succeed.
			reason := fmt.Sprintf("unparseable payload: %v", err)
			if dlErr := q.deadLetterRaw(ctx, payload, reason); dlErr != nil {
				return nil, dlErr
			}
			continue
		}

		return q.delivery(job, payload), nil
	}
}

// delivery builds the settlement closures for one handed-out payload.
func (q *Queue) delivery(job domain.IngestionJob, payload string) *driven.JobDelivery {
	return &driven.JobDelivery{
		Job: job,
		Ack: func(ctx context.Context) error {
			return q.settle(ctx, payload)
		},
		Retry: func(ctx context.Context, delay time.Duration) error {
			retried := job
			retried.Attempt++
			next, err := json.Marshal(retried)
			if err != nil {
				return fmt.Errorf("marshal retry payload: %w", err)
			}
			readyAt := float64(time.Now().Add(delay).Unix())
			if err := q.client.ZAdd(ctx, q.delayedKey(), redis.Z{Score: readyAt, Member: next}).Err(); err != nil {
				return fmt.Errorf("%w: schedule retry: %w", domain.ErrStoreUnavailable, err)
			}
			return q.settle(ctx, payload)
		},
		Fail: func(ctx context.Context, reason string) error {
			entry, err := json.Marshal(deadLetter{
				Job:      job,
				Reason:   reason,
				FailedAt: time.Now().UTC(),
			})
			if err != nil {
				return fmt.Errorf("marshal dead letter: %w", err)
			}
			if err := q.client.LPush(ctx, q.deadKey(), entry).Err(); err != nil {
				return fmt.Errorf("%w: dead letter: %w", domain.ErrStoreUnavailable, err)
			}
			return q.settle(ctx, payload)
		},
	}
}

// settle removes a payload from the processing list and drops its lease.
func (q *Queue) settle(ctx context.Context, payload string) error {
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingKey(), 1, payload)
	pipe.ZRem(ctx, q.leasesKey(), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: settle: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// deadLetterRaw settles a payload that cannot be parsed into a job.
func (q *Queue) deadLetterRaw(ctx context.Context, payload, reason string) error {
	entry, err := json.Marshal(map[string]any{
		"payload":   payload,
		"reason":    reason,
		"failed_at": time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	if err := q.client.LPush(ctx, q.deadKey(), entry).Err(); err != nil {
		return fmt.Errorf("%w: dead letter: %w", domain.ErrStoreUnavailable, err)
	}
	return q.settle(ctx, payload)
}

// shouldReap reports whether a sweep is due and, if so, claims it.
// Exactly one caller wins per interval; lastReap advances on the claim
// so a slow sweep never gets doubled by a concurrent consumer.
func (q *Queue) shouldReap() bool {
	q.reapMu.Lock()
	defer q.reapMu.Unlock()
	if time.Since(q.lastReap) < q.reapEvery {
		return false
	}
	q.lastReap = time.Now()
	return true
}

// reap promotes due retries into pending and returns payloads with
// expired leases. Redelivered payloads carry a bumped attempt counter
// so consumers can bound total attempts.
func (q *Queue) reap(ctx context.Context) error {
	now := fmt.Sprintf("%d", time.Now().Unix())

	due, err := q.client.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min: "-inf", Max: now,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: scan delayed: %w", domain.ErrStoreUnavailable, err)
	}
	for _, payload := range due {
		pipe := q.client.TxPipeline()
		pipe.ZRem(ctx, q.delayedKey(), payload)
		pipe.LPush(ctx, q.pendingKey(), payload)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("%w: promote retry: %w", domain.ErrStoreUnavailable, err)
		}
	}

	expired, err := q.client.ZRangeByScore(ctx, q.leasesKey(), &redis.ZRangeBy{
		Min: "-inf", Max: now,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: scan leases: %w", domain.ErrStoreUnavailable, err)
	}
	for _, payload := range expired {
		next := payload
		var job domain.IngestionJob
		if jsonErr := json.Unmarshal([]byte(payload), &job); jsonErr == nil {
			job.Attempt++
			if data, mErr := json.Marshal(job); mErr == nil {
				next = string(data)
			}
		}
		pipe := q.client.TxPipeline()
		pipe.LRem(ctx, q.processingKey(), 1, payload)
		pipe.ZRem(ctx, q.leasesKey(), payload)
		pipe.LPush(ctx, q.pendingKey(), next)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("%w: reclaim lease: %w", domain.ErrStoreUnavailable, err)
		}
	}

	return nil
}

// DeadLetters returns up to limit entries from the dead letter list,
// newest first. Operators use this to inspect permanently failed jobs.
func (q *Queue) DeadLetters(ctx context.Context, limit int64) ([]string, error) {
	entries, err := q.client.LRange(ctx, q.deadKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read dead letters: %w", domain.ErrStoreUnavailable, err)
	}
	return entries, nil
}

// Depth reports the number of jobs waiting in pending.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.pendingKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: queue depth: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// Ping validates the Redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the Redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}
