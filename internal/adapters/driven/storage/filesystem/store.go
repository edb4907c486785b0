// Package filesystem provides source file access rooted in the uploads
// directory.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vellum-labs/vellum/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.FileStore = (*Store)(nil)

// Store reads and deletes uploaded files. Every path is resolved and
// checked against the configured root before any operation, so a
// mis-constructed or hostile path can never reach outside the uploads
// directory.
type Store struct {
	root string
}

// New creates a file store rooted at dir. If dir is empty, defaults to
// ./uploads.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "uploads"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("create uploads root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the resolved uploads root.
func (s *Store) Root() string { return s.root }

// Read returns the file contents at path.
func (s *Store) Read(_ context.Context, path string) ([]byte, error) {
	resolved, err := s.contain(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Delete removes the file at path.
func (s *Store) Delete(_ context.Context, path string) error {
	resolved, err := s.contain(path)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// contain resolves path and verifies it sits under the uploads root.
func (s *Store) contain(path string) (string, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if resolved != s.root && !strings.HasPrefix(resolved, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path %s is outside the uploads directory", path)
	}
	return resolved, nil
}
