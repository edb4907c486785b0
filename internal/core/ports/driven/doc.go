// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - JobQueue: Durable at-least-once delivery between upload path and worker
//   - CollectionStore: Per-document vector collections (existence, upsert, search)
//   - EmbeddingService: Turns text into fixed-dimension vectors
//   - LLMService: Chat model invocation for answer generation
//   - DocumentStore: Document ownership and lifecycle metadata
//   - FileStore: Source file access and cleanup
//   - TextExtractor: PDF to plain text
//
// # Optional Interfaces
//
//   - PromptStore: Overrides the built-in grounding prompt template
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
