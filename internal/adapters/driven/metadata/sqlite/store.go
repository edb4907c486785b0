// Package sqlite implements the document metadata store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/vellum-labs/vellum/internal/adapters/driven/metadata/sqlite/migrations"
	"github.com/vellum-labs/vellum/internal/core/domain"
	"github.com/vellum-labs/vellum/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is a SQLite-backed document metadata store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.vellum/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".vellum", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Save creates or replaces a document record.
func (s *Store) Save(ctx context.Context, rec domain.DocumentRecord) error {
	if rec.DocumentID == "" || rec.UserID == "" {
		return fmt.Errorf("%w: document record needs document and user IDs", domain.ErrInvalidJob)
	}
	if rec.Status == "" {
		rec.Status = domain.StatusPending
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (document_id, user_id, filename, status, collection_ref, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			user_id = excluded.user_id,
			filename = excluded.filename,
			status = excluded.status,
			collection_ref = excluded.collection_ref,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, rec.DocumentID, rec.UserID, rec.Filename, string(rec.Status), rec.CollectionRef, rec.Error, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: saving document %s: %w", domain.ErrStoreUnavailable, rec.DocumentID, err)
	}
	return nil
}

// Get retrieves a document record by ID.
func (s *Store) Get(ctx context.Context, documentID string) (*domain.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT document_id, user_id, filename, status, collection_ref, error, updated_at
		FROM documents
		WHERE document_id = ?
	`, documentID)

	var rec domain.DocumentRecord
	var status string
	err := row.Scan(&rec.DocumentID, &rec.UserID, &rec.Filename, &status, &rec.CollectionRef, &rec.Error, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", domain.ErrDocumentNotReady, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getting document %s: %w", domain.ErrStoreUnavailable, documentID, err)
	}
	rec.Status = domain.DocumentStatus(status)
	return &rec, nil
}

// UpdateStatus sets the lifecycle state for the document owned by the
// given user. The user ID is part of the key: an update naming the
// wrong owner matches no row and reports it, rather than silently
// touching another tenant's document.
func (s *Store) UpdateStatus(ctx context.Context, documentID, userID string, status domain.DocumentStatus, collectionRef, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, collection_ref = ?, error = ?, updated_at = ?
		WHERE document_id = ? AND user_id = ?
	`, string(status), collectionRef, reason, time.Now().UTC(), documentID, userID)
	if err != nil {
		return fmt.Errorf("%w: updating document %s: %w", domain.ErrStoreUnavailable, documentID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: updating document %s: %w", domain.ErrStoreUnavailable, documentID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: document %s for user %s", domain.ErrDocumentNotReady, documentID, userID)
	}
	return nil
}

// ListByUser returns all documents owned by a user, most recently
// updated first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]domain.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, user_id, filename, status, collection_ref, error, updated_at
		FROM documents
		WHERE user_id = ?
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing documents for %s: %w", domain.ErrStoreUnavailable, userID, err)
	}
	defer rows.Close()

	var recs []domain.DocumentRecord
	for rows.Next() {
		var rec domain.DocumentRecord
		var status string
		if err := rows.Scan(&rec.DocumentID, &rec.UserID, &rec.Filename, &status, &rec.CollectionRef, &rec.Error, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning document row: %w", domain.ErrStoreUnavailable, err)
		}
		rec.Status = domain.DocumentStatus(status)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing documents for %s: %w", domain.ErrStoreUnavailable, userID, err)
	}
	return recs, nil
}

// Delete removes a document record. Deleting an absent record is not
// an error.
func (s *Store) Delete(ctx context.Context, documentID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE document_id = ? AND user_id = ?
	`, documentID, userID)
	if err != nil {
		return fmt.Errorf("%w: deleting document %s: %w", domain.ErrStoreUnavailable, documentID, err)
	}
	return nil
}

// migrate applies pending schema migrations from the embedded filesystem.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}
