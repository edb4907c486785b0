// Package memory provides in-memory implementations of the driven
// ports for testing. The doubles hold state behind a mutex and expose
// error-injection fields so service tests can exercise failure paths
// without real infrastructure.
package memory
