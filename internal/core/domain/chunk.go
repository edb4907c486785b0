package domain

// collectionPrefix namespaces per-document collections in the vector store.
const collectionPrefix = "pdf_documents_"

// CollectionName derives the vector collection name for a document.
// It is a pure function: the same document always maps to the same
// collection, which is what makes readiness checks and idempotent
// re-ingestion possible without any lookup table.
func CollectionName(documentID string) string {
	return collectionPrefix + documentID
}

// Chunk is a bounded, possibly overlapping slice of a document's extracted
// text. It is the unit of embedding and retrieval. Chunks are immutable
// once produced.
type Chunk struct {
	// DocumentID links the chunk to its source document.
	DocumentID string `json:"document_id"`

	// Text is the chunk content.
	Text string `json:"text"`

	// Sequence is the ordinal position within the document, starting at 0.
	Sequence int `json:"sequence"`

	// StartOffset is the byte offset of the chunk start in the source text.
	StartOffset int `json:"start_offset"`

	// EndOffset is the byte offset just past the chunk end.
	EndOffset int `json:"end_offset"`
}

// EmbeddedChunk pairs a chunk with its vector representation.
// The vector length is fixed by the embedding model and must match the
// dimension declared for the target collection.
type EmbeddedChunk struct {
	Chunk

	// Vector is the embedding produced for Text.
	Vector []float32 `json:"vector"`

	// Model names the embedding model that produced the vector.
	Model string `json:"model"`
}

// ScoredChunk is a retrieval hit: a stored chunk plus its relevance score.
type ScoredChunk struct {
	Chunk

	// Score is the similarity score, higher is more relevant.
	Score float64 `json:"score"`
}
