package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestMigrateAddsSourceColumnToLegacyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// A database written before entries carried a source column.
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	legacy := []string{
		`CREATE TABLE entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			created_at TEXT NOT NULL,
			excerpt TEXT NOT NULL DEFAULT '',
			input TEXT NOT NULL DEFAULT '',
			result_json TEXT NOT NULL
		)`,
		`CREATE TABLE field_values (field TEXT NOT NULL, value TEXT NOT NULL, first_seen TEXT NOT NULL, PRIMARY KEY (field, value))`,
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
		`INSERT INTO meta (key, value) VALUES ('schema_bootstrap_complete', 'true')`,
		`INSERT INTO entries (id, created_at, result_json) VALUES ('8d7c1f3e-2c0b-4b8a-9a55-1f2e3d4c5b6a', '2026-01-02T03:04:05Z', '{"Email":["a@x.com"]}')`,
	}
	for _, stmt := range legacy {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("legacy setup: %v\nSQL: %s", err, stmt)
		}
	}
	db.Close()

	s, err := NewStore(StoreConfig{DBPath: path})
	if err != nil {
		t.Fatalf("NewStore on legacy db: %v", err)
	}
	defer s.Close()

	entries, err := s.(*SQLiteStore).ListEntries(t.Context(), 0)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected legacy entry to survive, got %d", len(entries))
	}
	if entries[0].Source != "" {
		t.Errorf("legacy source = %q, want empty default", entries[0].Source)
	}
	if got := entries[0].Result.Get("email"); len(got) != 1 || got[0] != "a@x.com" {
		t.Errorf("legacy result = %v", entries[0].Result.Map())
	}
}

func TestSeedMetaKeepsExistingValues(t *testing.T) {
	s := newTestStore(t).(*SQLiteStore)

	var before string
	if err := s.db.QueryRow("SELECT value FROM meta WHERE key='created_at'").Scan(&before); err != nil {
		t.Fatalf("reading created_at: %v", err)
	}
	if err := s.seedMeta(); err != nil {
		t.Fatalf("seedMeta: %v", err)
	}
	var after string
	if err := s.db.QueryRow("SELECT value FROM meta WHERE key='created_at'").Scan(&after); err != nil {
		t.Fatalf("reading created_at: %v", err)
	}
	if before != after {
		t.Errorf("created_at changed from %q to %q", before, after)
	}
}

func TestIsDuplicateColumnError(t *testing.T) {
	if isDuplicateColumnError(nil) {
		t.Error("nil is not a duplicate column error")
	}
	if isDuplicateColumnError(sql.ErrNoRows) {
		t.Error("ErrNoRows misclassified")
	}
	if !isDuplicateColumnError(errors.New("SQL logic error: duplicate column name: source (1)")) {
		t.Error("expected duplicate column error to be recognized")
	}
}
