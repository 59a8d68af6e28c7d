// Package entry is the data entry service: it validates analyze requests,
// decodes uploads, runs extraction and keeps field memory, history and the
// optional store in step.
//
// A single mutex serializes every mutation, so field memory and history are
// never observed half-updated.
package entry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/export"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/extract"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/history"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/memory"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/registrar"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/store"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/textsource"
)

// ErrNoContent is returned when an analyze request carries neither text nor
// file content.
var ErrNoContent = errors.New("no text or file content to analyze")

// ErrNoStore is returned by Input when persistence is off.
var ErrNoStore = errors.New("persistence is disabled")

// ValidationError reports a request the caller must fix.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// File is an uploaded file.
type File struct {
	Name string
	Data []byte
}

// Input is one analyze request. Text and file contents are concatenated.
type Input struct {
	Text  string
	Files []File
}

// Analysis is the outcome of Analyze.
type Analysis struct {
	Entry     history.Entry
	Documents []DocumentInfo
	// NewValues counts values field memory had not seen before.
	NewValues int
	Failures  []extract.RuleFailure
	LLMUsed   bool
}

// DocumentInfo describes a decoded upload.
type DocumentInfo struct {
	Name   string          `json:"name"`
	Kind   textsource.Kind `json:"kind"`
	MIME   string          `json:"mime"`
	Chars  int             `json:"chars"`
	Cached bool            `json:"cached,omitempty"`
}

// Stats summarizes service state.
type Stats struct {
	HistoryLen  int               `json:"history_len"`
	HistoryMax  int               `json:"history_max"`
	FieldCount  int               `json:"field_count"`
	ValueCount  int               `json:"value_count"`
	Policy      registrar.Policy  `json:"register_policy"`
	Persistence *store.StoreStats `json:"persistence,omitempty"`
}

// Service orchestrates one data entry session.
type Service struct {
	mu sync.Mutex

	engine    *extract.Engine
	sources   *textsource.Source
	memory    *memory.Store
	history   *history.Log
	registrar *registrar.Registrar
	store     store.Store
	logger    *slog.Logger

	historyMax int
	policy     registrar.Policy
}

// Option configures a Service.
type Option func(*Service)

// WithEngine sets the extraction engine.
func WithEngine(e *extract.Engine) Option { return func(s *Service) { s.engine = e } }

// WithTextSource sets the upload decoder.
func WithTextSource(src *textsource.Source) Option { return func(s *Service) { s.sources = src } }

// WithStore enables persistence. A nil store keeps everything in memory.
func WithStore(st store.Store) Option { return func(s *Service) { s.store = st } }

// WithHistoryLimit bounds the history log.
func WithHistoryLimit(n int) Option { return func(s *Service) { s.historyMax = n } }

// WithPolicy sets the custom field registration policy.
func WithPolicy(p registrar.Policy) Option { return func(s *Service) { s.policy = p } }

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option { return func(s *Service) { s.logger = logger } }

// New builds a Service. Call Load afterwards when a store is attached.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.engine == nil {
		s.engine = extract.New(extract.WithLogger(s.logger))
	}
	if s.sources == nil {
		s.sources = textsource.New(textsource.WithLogger(s.logger))
	}
	s.memory = memory.New()
	s.history = history.New(s.historyMax)
	s.registrar = registrar.New(s.memory, s.policy)
	return s
}

// Load restores history and field memory from the store and trims stored
// history to the configured bound. It is a no-op without a store.
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.TrimEntries(ctx, s.history.Max()); err != nil {
		return fmt.Errorf("trimming stored history: %w", err)
	}
	entries, err := s.store.ListEntries(ctx, s.history.Max())
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	values, err := s.store.FieldValues(ctx)
	if err != nil {
		return fmt.Errorf("loading field memory: %w", err)
	}

	s.history.Load(entries)
	s.memory.Load(values)
	s.logger.Info("entry.loaded", "entries", len(entries), "fields", s.memory.Len(), "values", s.memory.Count())
	return nil
}

// Analyze extracts fields from the request, records them in field memory and
// history, and persists the entry when a store is attached.
func (s *Service) Analyze(ctx context.Context, in Input) (Analysis, error) {
	start := time.Now()

	if strings.TrimSpace(in.Text) == "" && !hasFileData(in.Files) {
		return Analysis{}, &ValidationError{Field: "text", Message: ErrNoContent.Error(), Err: ErrNoContent}
	}

	docs, err := s.decode(ctx, in.Files)
	if err != nil {
		return Analysis{}, err
	}

	parts := make([]string, 0, len(docs)+1)
	if t := strings.TrimSpace(in.Text); t != "" {
		parts = append(parts, t)
	}
	info := make([]DocumentInfo, 0, len(docs))
	for _, d := range docs {
		if d.Text != "" {
			parts = append(parts, d.Text)
		}
		info = append(info, DocumentInfo{Name: d.Name, Kind: d.Kind, MIME: d.MIME, Chars: len(d.Text), Cached: d.Cached})
	}
	text := strings.Join(parts, "\n\n")
	source := sourceLabel(in.Text, docs)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.engine.ExtractDetailed(ctx, text)
	newValues := s.memory.Observe(out.Result)
	e := history.NewEntry(source, text, out.Result)
	evicted := s.history.Append(e)

	s.persistAnalysis(ctx, e, text, evicted)

	s.logger.Info("analyze.ok",
		"entry_id", e.ID.String(),
		"source", source,
		"fields", e.Result.Len(),
		"values", e.Result.Count(),
		"new_values", newValues,
		"failures", len(out.Failures),
		"llm", out.LLMUsed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Analysis{
		Entry:     e,
		Documents: info,
		NewValues: newValues,
		Failures:  out.Failures,
		LLMUsed:   out.LLMUsed,
	}, nil
}

// RegisterCustom merges field=value into the most recent history entry and
// field memory. With an empty history it fails with
// registrar.ErrNoActiveResult and changes nothing.
func (s *Service) RegisterCustom(ctx context.Context, field, value string) (history.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *fields.Result
	latest, ok := s.history.Latest()
	if ok {
		target = &latest.Result
	}
	merged, err := s.registrar.Register(field, value, target)
	if err != nil {
		return history.Entry{}, err
	}
	updated, err := s.history.ReplaceLatest(merged)
	if err != nil {
		return history.Entry{}, fmt.Errorf("updating latest entry: %w", err)
	}

	if s.store != nil {
		if err := s.store.UpdateEntryResult(ctx, updated.ID, updated.Result); err != nil {
			s.logger.Error("entry.persist.failed", "op", "update", "entry_id", updated.ID.String(), "error", err)
		}
		name, _ := fields.ParseName(field)
		reg := fields.NewResult()
		reg.Add(name, value)
		if _, err := s.store.AddFieldValues(ctx, reg); err != nil {
			s.logger.Error("entry.persist.failed", "op", "field_values", "error", err)
		}
	}

	s.logger.Info("register.ok", "entry_id", updated.ID.String(), "field", field, "policy", string(s.registrar.Policy()))
	return updated, nil
}

// Recent returns up to n entries, most recent first.
func (s *Service) Recent(n int) []history.Entry {
	return s.history.Recent(n)
}

// Fields returns a snapshot of field memory.
func (s *Service) Fields() map[fields.Name][]string {
	return s.memory.Fields()
}

// Snapshot returns the data an export covers.
func (s *Service) Snapshot() export.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return export.Snapshot{Entries: s.history.All(), Fields: s.memory.Fields()}
}

// Stats summarizes the session and, when attached, the store.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	st := Stats{
		HistoryLen: s.history.Len(),
		HistoryMax: s.history.Max(),
		FieldCount: s.memory.Len(),
		ValueCount: s.memory.Count(),
		Policy:     s.registrar.Policy(),
	}
	s.mu.Unlock()

	if s.store != nil {
		ps, err := s.store.Stats(ctx)
		if err != nil {
			return st, fmt.Errorf("store stats: %w", err)
		}
		st.Persistence = ps
	}
	return st, nil
}

// Input returns the full text analyzed for a history entry. Only the store
// keeps it; in-memory history holds an excerpt.
func (s *Service) Input(ctx context.Context, id uuid.UUID) (string, error) {
	if s.store == nil {
		return "", ErrNoStore
	}
	return s.store.GetEntryInput(ctx, id)
}

// Close closes the store, if any.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// decode runs the upload decoders concurrently, keeping input order.
func (s *Service) decode(ctx context.Context, files []File) ([]textsource.Document, error) {
	docs := make([]textsource.Document, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, f := range files {
		if len(f.Data) == 0 {
			continue
		}
		g.Go(func() error {
			d, err := s.sources.Decode(gctx, f.Name, f.Data)
			if err != nil {
				return err
			}
			docs[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := docs[:0]
	for _, d := range docs {
		if d.Kind != "" {
			out = append(out, d)
		}
	}
	return out, nil
}

// persistAnalysis writes through to the store. Failures are logged: the
// in-memory session stays authoritative.
func (s *Service) persistAnalysis(ctx context.Context, e history.Entry, input string, evicted []history.Entry) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveEntry(ctx, e, input); err != nil {
		s.logger.Error("entry.persist.failed", "op", "save", "entry_id", e.ID.String(), "error", err)
	}
	if _, err := s.store.AddFieldValues(ctx, e.Result); err != nil {
		s.logger.Error("entry.persist.failed", "op", "field_values", "error", err)
	}
	if len(evicted) > 0 {
		ids := make([]uuid.UUID, len(evicted))
		for i, ev := range evicted {
			ids[i] = ev.ID
		}
		if err := s.store.DeleteEntries(ctx, ids); err != nil {
			s.logger.Error("entry.persist.failed", "op", "evict", "count", len(ids), "error", err)
		}
	}
}

func hasFileData(files []File) bool {
	for _, f := range files {
		if len(f.Data) > 0 {
			return true
		}
	}
	return false
}

// sourceLabel names where the input came from: "text", a file kind, or
// kinds joined with "+" for mixed requests.
func sourceLabel(text string, docs []textsource.Document) string {
	var kinds []string
	seen := map[string]bool{}
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	if strings.TrimSpace(text) != "" {
		add(string(textsource.KindText))
	}
	for _, d := range docs {
		add(string(d.Kind))
	}
	if len(kinds) == 0 {
		return string(textsource.KindText)
	}
	return strings.Join(kinds, "+")
}
