package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// migrate creates all tables if they don't exist and seeds metadata.
func (s *SQLiteStore) migrate() error {
	bootstrapDone, err := s.isMetaFlagEnabled("schema_bootstrap_complete")
	if err != nil {
		return fmt.Errorf("checking bootstrap state: %w", err)
	}

	if !bootstrapDone {
		if err := s.runBootstrapDDL(); err != nil {
			return err
		}
	}

	// Seed metadata outside the bootstrap transaction, once the meta table exists.
	if err := s.seedMeta(); err != nil {
		return fmt.Errorf("seeding metadata: %w", err)
	}

	if !bootstrapDone {
		if err := s.setMetaFlag("schema_bootstrap_complete"); err != nil {
			return fmt.Errorf("marking bootstrap complete: %w", err)
		}
	}

	// Schema evolution: source column on entries for upload provenance.
	if err := s.migrateEntrySourceColumn(); err != nil {
		return fmt.Errorf("migrating source column: %w", err)
	}
	return nil
}

func (s *SQLiteStore) runBootstrapDDL() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			id           TEXT UNIQUE NOT NULL,
			created_at   TEXT NOT NULL,
			excerpt      TEXT NOT NULL DEFAULT '',
			input        TEXT NOT NULL DEFAULT '',
			result_json  TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS field_values (
			field       TEXT NOT NULL,
			value       TEXT NOT NULL,
			first_seen  TEXT NOT NULL,
			PRIMARY KEY (field, value)
		)`,

		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at)`,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning bootstrap: %w", err)
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration: %w\nSQL: %s", err, stmt)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) isMetaFlagEnabled(key string) (bool, error) {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='meta'`).Scan(&exists); err != nil {
		return false, err
	}
	if exists == 0 {
		return false, nil
	}

	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return value == "true", nil
}

func (s *SQLiteStore) setMetaFlag(key string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, 'true')", key)
	return err
}

func isDuplicateColumnError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}

// migrateEntrySourceColumn adds entries.source (text, pdf, docx, html, image).
func (s *SQLiteStore) migrateEntrySourceColumn() error {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('entries') WHERE name='source'",
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking for source column: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := s.db.Exec("ALTER TABLE entries ADD COLUMN source TEXT NOT NULL DEFAULT ''"); err != nil && !isDuplicateColumnError(err) {
		return fmt.Errorf("adding source column: %w", err)
	}
	return nil
}

func (s *SQLiteStore) seedMeta() error {
	defaults := map[string]string{
		"schema_version": "1",
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	}

	for k, v := range defaults {
		_, err := s.db.Exec(
			"INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)", k, v,
		)
		if err != nil {
			return fmt.Errorf("seeding meta key %q: %w", k, err)
		}
	}
	return nil
}
