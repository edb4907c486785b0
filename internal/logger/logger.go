// Package logger provides structured logging for Vellum.
// It wraps a shared zap logger behind a small package-level facade so
// core services do not carry a logger dependency through every
// constructor. Verbose mode switches the level to debug.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	log  = zap.NewNop()
	atom = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init builds the process logger. Call once at startup; before Init the
// facade is a no-op, which keeps tests quiet by default.
func Init(verbose bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Level = atom
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		atom.SetLevel(zapcore.DebugLevel)
	}

	built, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	mu.Lock()
	log = built
	mu.Unlock()
	return nil
}

// SetVerbose enables or disables debug-level logging.
func SetVerbose(v bool) {
	if v {
		atom.SetLevel(zapcore.DebugLevel)
	} else {
		atom.SetLevel(zapcore.InfoLevel)
	}
}

// Replace swaps the underlying zap logger. Useful for tests that want
// to observe log output.
func Replace(l *zap.Logger) {
	mu.Lock()
	log = l
	mu.Unlock()
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = log.Sync()
}

// With returns a child logger carrying the given fields on every entry.
func With(fields ...zap.Field) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log.With(fields...)
}

// Debug logs a debug message with structured fields.
func Debug(msg string, fields ...zap.Field) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug(msg, fields...)
}

// Info logs an informational message with structured fields.
func Info(msg string, fields ...zap.Field) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info(msg, fields...)
}

// Warn logs a warning with structured fields.
func Warn(msg string, fields ...zap.Field) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn(msg, fields...)
}

// Error logs an error with structured fields.
func Error(msg string, fields ...zap.Field) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error(msg, fields...)
}
