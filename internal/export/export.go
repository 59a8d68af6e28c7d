// Package export renders history and field memory as spreadsheets.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/history"
)

// Format is an export file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// Sheet names of the XLSX workbook.
const (
	SheetEntries = "Entries"
	SheetFields  = "Fields"
)

// ValueSeparator joins multiple values of one field inside a cell.
const ValueSeparator = "; "

// ParseFormat accepts "xlsx" or "csv" (case-insensitive). Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown export format %q (supported: xlsx, csv)", s)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename returns the download name for the format.
func (f Format) Filename() string {
	return "ai_data_entry_export." + string(f)
}

// Snapshot is the data one export covers.
type Snapshot struct {
	// Entries in chronological order, oldest first.
	Entries []history.Entry
	// Fields is the field memory; only the XLSX workbook includes it.
	Fields map[fields.Name][]string
}

// Service writes exports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Write renders snap in the given format to w.
func (s *Service) Write(ctx context.Context, w io.Writer, format Format, snap Snapshot) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	switch format {
	case FormatXLSX:
		err = writeXLSX(w, snap)
	case FormatCSV:
		err = writeCSV(w, snap.Entries)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return err
	}

	s.logger.Info("export."+string(format)+".ok",
		"entries", len(snap.Entries),
		"fields", len(snap.Fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Bytes is Write into a buffer.
func (s *Service) Bytes(ctx context.Context, format Format, snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Write(ctx, &buf, format, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Table flattens entries into a header row and one row per entry. Fixed
// columns come first, then every field name in order of first appearance.
func Table(entries []history.Entry) ([]string, [][]string) {
	headers := []string{"ID", "Created At", "Source", "Excerpt"}

	col := map[fields.Name]int{}
	for _, e := range entries {
		for _, name := range e.Result.Names() {
			if _, ok := col[name]; !ok {
				col[name] = len(headers)
				headers = append(headers, name.String())
			}
		}
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := make([]string, len(headers))
		row[0] = e.ID.String()
		row[1] = e.CreatedAt.UTC().Format(time.RFC3339)
		row[2] = e.Source
		row[3] = e.Excerpt
		for _, name := range e.Result.Names() {
			row[col[name]] = joinValues(e.Result.Values(name))
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func joinValues(values []string) string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ValueSeparator)
}

func writeCSV(w io.Writer, entries []history.Entry) error {
	headers, rows := Table(entries)
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("csv rows: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, snap Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet instead of leaving an empty "Sheet1".
	if err := f.SetSheetName(f.GetSheetName(0), SheetEntries); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	headers, rows := Table(snap.Entries)
	if err := writeSheet(f, SheetEntries, headers, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetEntries, "A", "A", 38) // id
	_ = f.SetColWidth(SheetEntries, "B", "B", 22) // time
	_ = f.SetColWidth(SheetEntries, "D", "D", 48) // excerpt

	if _, err := f.NewSheet(SheetFields); err != nil {
		return fmt.Errorf("creating %s sheet: %w", SheetFields, err)
	}
	if err := writeSheet(f, SheetFields, []string{"Field", "Count", "Values"}, fieldRows(snap.Fields)); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetFields, "A", "A", 24)
	_ = f.SetColWidth(SheetFields, "C", "C", 80)

	idx, _ := f.GetSheetIndex(SheetEntries)
	f.SetActiveSheet(idx)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func fieldRows(mem map[fields.Name][]string) [][]string {
	names := make([]fields.Name, 0, len(mem))
	for n := range mem {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	rows := make([][]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, []string{n.String(), fmt.Sprint(len(mem[n])), joinValues(mem[n])})
	}
	return rows
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]string) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+2, err)
		}
	}
	if len(headers) > 0 {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("%s panes: %w", sheet, err)
		}
	}
	return nil
}
