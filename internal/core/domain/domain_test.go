package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIngestionJob_Validate(t *testing.T) {
	valid := IngestionJob{
		DocumentID:     "doc-1",
		UserID:         "user-1",
		SourceFilePath: "/uploads/doc-1.pdf",
	}

	tests := []struct {
		name    string
		mutate  func(*IngestionJob)
		wantErr bool
	}{
		{name: "valid", mutate: func(*IngestionJob) {}},
		{name: "missing document ID", mutate: func(j *IngestionJob) { j.DocumentID = "" }, wantErr: true},
		{name: "missing user ID", mutate: func(j *IngestionJob) { j.UserID = "" }, wantErr: true},
		{name: "missing file path", mutate: func(j *IngestionJob) { j.SourceFilePath = "" }, wantErr: true},
		{name: "missing filename is fine", mutate: func(j *IngestionJob) { j.Filename = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := valid
			tt.mutate(&job)

			err := job.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidJob)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "pdf_documents_abc-123", CollectionName("abc-123"))

	// Distinct documents never collide.
	assert.NotEqual(t, CollectionName("doc-1"), CollectionName("doc-2"))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "transient", err: ErrTransient, want: true},
		{name: "store unavailable", err: ErrStoreUnavailable, want: true},
		{name: "wrapped transient", err: fmt.Errorf("embedding batch: %w", ErrTransient), want: true},
		{name: "deeply wrapped store outage", err: fmt.Errorf("upsert: %w", fmt.Errorf("qdrant: %w", ErrStoreUnavailable)), want: true},
		{name: "invalid job", err: ErrInvalidJob, want: false},
		{name: "extraction", err: ErrExtraction, want: false},
		{name: "provider fatal", err: ErrProviderFatal, want: false},
		{name: "collection not found", err: ErrCollectionNotFound, want: false},
		{name: "invalid config", err: ErrInvalidConfig, want: false},
		{name: "chat model", err: ErrChatModel, want: false},
		{name: "plain error", err: errors.New("whatever"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
