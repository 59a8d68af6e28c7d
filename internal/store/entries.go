package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/history"
)

// ErrNotFound is returned when an entry ID is unknown.
var ErrNotFound = errors.New("not found")

// SaveEntry inserts a history entry together with the full input text.
func (s *SQLiteStore) SaveEntry(ctx context.Context, e history.Entry, input string) error {
	data, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entries (id, created_at, source, excerpt, input, result_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.CreatedAt.UTC().Format(time.RFC3339Nano), e.Source, e.Excerpt, input, string(data),
	)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

// UpdateEntryResult replaces the stored result of an entry.
func (s *SQLiteStore) UpdateEntryResult(ctx context.Context, id uuid.UUID, r fields.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE entries SET result_json = ? WHERE id = ?", string(data), id.String())
	if err != nil {
		return fmt.Errorf("updating entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteEntries removes entries by ID. Unknown IDs are ignored.
func (s *SQLiteStore) DeleteEntries(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}
	query := "DELETE FROM entries WHERE id IN (" + strings.Join(placeholders, ",") + ")"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting entries: %w", err)
	}
	return nil
}

// ListEntries returns the newest limit entries, oldest first.
// limit <= 0 returns every entry.
func (s *SQLiteStore) ListEntries(ctx context.Context, limit int) ([]history.Entry, error) {
	query := `SELECT id, created_at, source, excerpt, result_json FROM entries ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var newestFirst []history.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		newestFirst = append(newestFirst, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	out := make([]history.Entry, len(newestFirst))
	for i, e := range newestFirst {
		out[len(newestFirst)-1-i] = e
	}
	return out, nil
}

// GetEntryInput returns the full input text stored for an entry.
func (s *SQLiteStore) GetEntryInput(ctx context.Context, id uuid.UUID) (string, error) {
	var input string
	err := s.db.QueryRowContext(ctx, "SELECT input FROM entries WHERE id = ?", id.String()).Scan(&input)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting entry input: %w", err)
	}
	return input, nil
}

// TrimEntries deletes all but the newest keep entries and returns how many
// rows were removed.
func (s *SQLiteStore) TrimEntries(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE seq NOT IN (SELECT seq FROM entries ORDER BY seq DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("trimming entries: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (history.Entry, error) {
	var (
		id, created, source, excerpt, data string
	)
	if err := row.Scan(&id, &created, &source, &excerpt, &data); err != nil {
		return history.Entry{}, fmt.Errorf("scanning entry: %w", err)
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return history.Entry{}, fmt.Errorf("parsing entry id %q: %w", id, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return history.Entry{}, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	var r fields.Result
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return history.Entry{}, fmt.Errorf("decoding result of %s: %w", id, err)
	}
	return history.Entry{ID: uid, CreatedAt: ts, Source: source, Excerpt: excerpt, Result: r}, nil
}
