// Package store persists analysis history and field memory in SQLite.
//
// Persistence is optional: the service works purely in memory when no store
// is configured. When one is, every history entry and every observed field
// value is written through, and both are reloaded at start.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/history"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.dataentry/dataentry.db"

// StoreStats holds counts for status output.
type StoreStats struct {
	DBPath          string `json:"db_path"`
	EntryCount      int64  `json:"entry_count"`
	FieldCount      int64  `json:"field_count"`
	FieldValueCount int64  `json:"field_value_count"`
	DBSizeBytes     int64  `json:"db_size_bytes"`
}

// StoreConfig holds configuration for NewStore.
type StoreConfig struct {
	DBPath string
}

// Store defines the persistence interface used by the entry service.
type Store interface {
	// History
	SaveEntry(ctx context.Context, e history.Entry, input string) error
	UpdateEntryResult(ctx context.Context, id uuid.UUID, r fields.Result) error
	DeleteEntries(ctx context.Context, ids []uuid.UUID) error
	ListEntries(ctx context.Context, limit int) ([]history.Entry, error)
	GetEntryInput(ctx context.Context, id uuid.UUID) (string, error)
	TrimEntries(ctx context.Context, keep int) (int64, error)

	// Field memory
	AddFieldValues(ctx context.Context, r fields.Result) (int64, error)
	FieldValues(ctx context.Context) (map[string][]string, error)

	// Observability
	Stats(ctx context.Context) (*StoreStats, error)
	Path() string

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	cfg.DBPath = expandPath(cfg.DBPath)

	// Create parent directory for non-memory databases
	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Every pooled connection to ":memory:" would see its own empty database.
	if cfg.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Stats returns row counts and the database file size.
func (s *SQLiteStore) Stats(ctx context.Context) (*StoreStats, error) {
	st := StoreStats{DBPath: s.Path()}
	queries := []struct {
		q   string
		dst *int64
	}{
		{"SELECT COUNT(*) FROM entries", &st.EntryCount},
		{"SELECT COUNT(DISTINCT field) FROM field_values", &st.FieldCount},
		{"SELECT COUNT(*) FROM field_values", &st.FieldValueCount},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.q).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("counting: %w", err)
		}
	}
	if s.dbPath != ":memory:" {
		if fi, err := os.Stat(s.dbPath); err == nil {
			st.DBSizeBytes = fi.Size()
		}
	}
	return &st, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
