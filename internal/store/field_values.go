package store

import (
	"context"
	"fmt"
	"time"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
)

// AddFieldValues records every value of r, ignoring ones already stored.
// It returns the number of new rows.
func (s *SQLiteStore) AddFieldValues(ctx context.Context, r fields.Result) (int64, error) {
	if r.IsEmpty() {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO field_values (field, value, first_seen) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	var added int64
	for _, name := range r.Names() {
		for _, v := range r.Values(name) {
			res, err := stmt.ExecContext(ctx, name.String(), v, now)
			if err != nil {
				return 0, fmt.Errorf("inserting %s value: %w", name, err)
			}
			n, _ := res.RowsAffected()
			added += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing field values: %w", err)
	}
	return added, nil
}

// FieldValues returns every stored value grouped by field name.
func (s *SQLiteStore) FieldValues(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT field, value FROM field_values ORDER BY field, value")
	if err != nil {
		return nil, fmt.Errorf("listing field values: %w", err)
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("scanning field value: %w", err)
		}
		out[field] = append(out[field], value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating field values: %w", err)
	}
	return out, nil
}
