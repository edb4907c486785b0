package domain

// ChatExchange is the result of one retrieval-augmented query.
// It is produced per request and never persisted.
type ChatExchange struct {
	// Query is the verbatim user question.
	Query string `json:"query"`

	// DocumentID is the document the question was asked against.
	DocumentID string `json:"document_id"`

	// Retrieved holds the supporting chunks in relevance order,
	// highest score first. Returned for citation and debugging.
	Retrieved []ScoredChunk `json:"retrieved"`

	// Answer is the chat model's response text, unmodified.
	Answer string `json:"answer"`
}
