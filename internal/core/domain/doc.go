// Package domain defines the core business entities for Vellum.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - IngestionJob: A queued request to ingest an uploaded PDF
//   - Chunk / EmbeddedChunk: The units of embedding and retrieval
//   - DocumentRecord: Ownership and lifecycle metadata for a document
//   - ChatExchange: The result of one retrieval-augmented query
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
