package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/history"
)

func sampleEntries() []history.Entry {
	first := fields.NewResult()
	first.Add(fields.MustName("Name"), "Arun Kumar")
	first.Add(fields.MustName("Phone"), "9876543210")

	second := fields.NewResult()
	second.Add(fields.MustName("Email"), "b@x.com", "a@x.com")
	second.Add(fields.MustName("Name"), "Priya")

	e1 := history.NewEntry("text", "Arun Kumar 9876543210", first)
	e1.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e2 := history.NewEntry("pdf", "Priya a@x.com b@x.com", second)
	e2.CreatedAt = time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	return []history.Entry{e1, e2}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)

	assert.Equal(t, "ai_data_entry_export.xlsx", FormatXLSX.Filename())
	assert.Contains(t, FormatCSV.ContentType(), "text/csv")
}

func TestTable(t *testing.T) {
	entries := sampleEntries()
	headers, rows := Table(entries)

	assert.Equal(t, []string{"ID", "Created At", "Source", "Excerpt", "Name", "Phone", "Email"}, headers)
	require.Len(t, rows, 2)

	assert.Equal(t, entries[0].ID.String(), rows[0][0])
	assert.Equal(t, "2026-01-02T03:04:05Z", rows[0][1])
	assert.Equal(t, "text", rows[0][2])
	assert.Equal(t, "Arun Kumar", rows[0][4])
	assert.Equal(t, "9876543210", rows[0][5])
	assert.Equal(t, "", rows[0][6])

	assert.Equal(t, "pdf", rows[1][2])
	assert.Equal(t, "", rows[1][5])
	assert.Equal(t, "a@x.com; b@x.com", rows[1][6])
}

func TestTableEmpty(t *testing.T) {
	headers, rows := Table(nil)
	assert.Len(t, headers, 4)
	assert.Empty(t, rows)
}

func TestWriteCSV(t *testing.T) {
	s := NewService(nil)
	data, err := s.Bytes(context.Background(), FormatCSV, Snapshot{Entries: sampleEntries()})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Email", records[0][6])
	assert.Equal(t, "Arun Kumar", records[1][4])
}

func TestWriteXLSX(t *testing.T) {
	mem := map[fields.Name][]string{
		fields.MustName("Phone"): {"9876543210"},
		fields.MustName("Email"): {"b@x.com", "a@x.com"},
	}
	s := NewService(nil)
	data, err := s.Bytes(context.Background(), FormatXLSX, Snapshot{Entries: sampleEntries(), Fields: mem})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetEntries, SheetFields}, f.GetSheetList())

	rows, err := f.GetRows(SheetEntries)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Name", rows[0][4])
	assert.Equal(t, "Arun Kumar", rows[1][4])

	fieldRows, err := f.GetRows(SheetFields)
	require.NoError(t, err)
	require.Len(t, fieldRows, 3)
	assert.Equal(t, []string{"Field", "Count", "Values"}, fieldRows[0])
	assert.Equal(t, []string{"Email", "2", "a@x.com; b@x.com"}, fieldRows[1])
	assert.Equal(t, []string{"Phone", "1", "9876543210"}, fieldRows[2])
}

func TestWriteXLSXEmptyHistory(t *testing.T) {
	data, err := NewService(nil).Bytes(context.Background(), FormatXLSX, Snapshot{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetEntries)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ID", rows[0][0])
}

func TestWriteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewService(nil).Bytes(ctx, FormatCSV, Snapshot{})
	assert.ErrorIs(t, err, context.Canceled)
}
