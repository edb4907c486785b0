// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Three services cover the system: IngestService queues work from the
// upload path, Worker consumes and runs the ingestion pipeline, and
// ChatService answers grounded queries.
package services
