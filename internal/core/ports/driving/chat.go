package driving

import (
	"context"

	"github.com/vellum-labs/vellum/internal/core/domain"
)

// Answerer serves retrieval-augmented queries against ingested documents.
type Answerer interface {
	// Answer retrieves the most relevant chunks for the query from the
	// document's collection, grounds a chat model prompt on them, and
	// returns the model's answer plus the supporting chunks in relevance
	// order.
	//
	// Fails with domain.ErrDocumentNotReady when the document has no
	// searchable collection; this is a normal state, not a server error.
	Answer(ctx context.Context, query, documentID string) (*domain.ChatExchange, error)
}
