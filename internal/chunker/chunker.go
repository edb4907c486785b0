// Package chunker splits extracted document text into overlapping,
// bounded-size chunks for embedding and retrieval.
package chunker

import (
	"fmt"
	"strings"

	"github.com/vellum-labs/vellum/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Splitter produces deterministic, boundary-aware chunks.
// Splitting prefers paragraph breaks, then sentence ends, then word
// boundaries, and only hard-cuts at the size limit when no boundary is
// available. The same input and configuration always yield the same
// chunk sequence.
type Splitter struct {
	size    int
	overlap int
}

// New creates a splitter. size and overlap must be positive with
// overlap strictly smaller than size.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, size)
	}
	if overlap <= 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must satisfy 0 < overlap < size, got %d", domain.ErrInvalidConfig, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Size returns the configured chunk size.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured chunk overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split cuts text into chunks for the given document. Empty or
// whitespace-only text produces no chunks. Each chunk records its byte
// offsets into the original text; consecutive chunks overlap by roughly
// the configured amount, adjusted to land on semantic boundaries.
func (s *Splitter) Split(documentID, text string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	length := len(text)
	estimated := length/(s.size-s.overlap) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	for seq := 0; start < length; seq++ {
		end := start + s.size
		if end >= length {
			end = length
		} else {
			end = s.snap(text, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			DocumentID:  documentID,
			Text:        text[start:end],
			Sequence:    seq,
			StartOffset: start,
			EndOffset:   end,
		})

		// Done only once the remaining text fits inside the overlap;
		// otherwise a capped tail still gets its own chunk, so every
		// neighbouring pair shares exactly overlap characters.
		if start+s.overlap >= length {
			break
		}

		next := end - s.overlap
		// Guarantee forward progress even for degenerate boundary layouts.
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// snap moves a prospective cut at end back to the best boundary in
// (start+size/2, end]. Paragraph breaks win over sentence ends, which
// win over word boundaries. A cut is never moved into the first half of
// the chunk; a run of text with no boundaries at all is hard-cut.
func (s *Splitter) snap(text string, start, end int) int {
	floor := start + s.size/2
	window := text[floor:end]

	if i := strings.LastIndex(window, "\n\n"); i >= 0 {
		return floor + i + 2
	}
	if i := lastSentenceEnd(window); i >= 0 {
		return floor + i
	}
	if i := strings.LastIndexAny(window, " \t\n"); i >= 0 {
		return floor + i + 1
	}
	return end
}

// lastSentenceEnd returns the index just past the last sentence
// terminator followed by whitespace, or -1.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		switch s[i] {
		case ' ', '\n', '\t':
			switch s[i-1] {
			case '.', '!', '?':
				return i + 1
			}
		}
	}
	return -1
}
