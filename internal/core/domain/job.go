package domain

import (
	"fmt"
	"time"
)

// IngestionJob is the unit of work delivered through the job queue.
// It is created by the upload path and consumed by the ingestion worker.
// The queue provides at-least-once delivery, so a job may be handed to a
// worker more than once; everything downstream of it must tolerate replay.
type IngestionJob struct {
	// JobID uniquely identifies this job.
	JobID string `json:"job_id"`

	// DocumentID is the document this job ingests. Required.
	DocumentID string `json:"document_id"`

	// UserID is the owner of the document. Required.
	UserID string `json:"user_id"`

	// SourceFilePath is where the uploaded PDF was written. Required.
	SourceFilePath string `json:"source_file_path"`

	// Filename is the original upload filename, kept for logging.
	Filename string `json:"filename"`

	// EnqueuedAt is when the upload path created the job.
	EnqueuedAt time.Time `json:"enqueued_at"`

	// Attempt counts deliveries of this job, starting at 1.
	// It travels with the payload so the consumer stays stateless.
	Attempt int `json:"attempt"`
}

// Validate checks the identifiers an ingestion job cannot run without.
// A job failing validation has done no work and needs no cleanup.
func (j IngestionJob) Validate() error {
	if j.DocumentID == "" {
		return fmt.Errorf("%w: missing document ID", ErrInvalidJob)
	}
	if j.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidJob)
	}
	if j.SourceFilePath == "" {
		return fmt.Errorf("%w: missing source file path", ErrInvalidJob)
	}
	return nil
}

// JobStage identifies the worker state machine stage a job is in.
// Stages advance strictly forward; a retried job restarts from Validating.
type JobStage string

// Worker state machine stages.
const (
	StageDequeued   JobStage = "dequeued"
	StageValidating JobStage = "validating"
	StageExtracting JobStage = "extracting"
	StageChunking   JobStage = "chunking"
	StageEmbedding  JobStage = "embedding"
	StageUpserting  JobStage = "upserting"
	StageFinalizing JobStage = "finalizing"
	StageCompleted  JobStage = "completed"
	StageFailed     JobStage = "failed"
)
