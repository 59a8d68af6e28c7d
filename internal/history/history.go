// Package history keeps a bounded, ordered log of analysis results.
package history

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
)

// DefaultMax is the number of entries kept when no bound is configured.
const DefaultMax = 50

// DefaultExcerptLength is the byte budget of Entry.Excerpt.
const DefaultExcerptLength = 160

// ErrEmpty is returned by ReplaceLatest when the log has no entries.
var ErrEmpty = errors.New("history is empty")

// Entry is one analysis: what went in (abridged) and what came out.
type Entry struct {
	ID        uuid.UUID     `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Source    string        `json:"source,omitempty"`
	Excerpt   string        `json:"excerpt,omitempty"`
	Result    fields.Result `json:"result"`
}

// NewEntry stamps a result with a fresh ID and the current time.
func NewEntry(source, input string, r fields.Result) Entry {
	return Entry{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Source:    source,
		Excerpt:   Excerpt(input, DefaultExcerptLength),
		Result:    r.Clone(),
	}
}

func (e Entry) clone() Entry {
	e.Result = e.Result.Clone()
	return e
}

// Log is a FIFO of at most Max entries. Appending past the bound evicts the
// oldest entry.
type Log struct {
	mu      sync.Mutex
	max     int
	entries []Entry
}

// New returns a log bounded to max entries. max < 1 falls back to DefaultMax.
func New(max int) *Log {
	if max < 1 {
		max = DefaultMax
	}
	return &Log{max: max}
}

// Append adds e as the most recent entry and returns the entries evicted to
// stay within the bound, oldest first.
func (l *Log) Append(e Entry) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	l.entries = append(l.entries, e.clone())

	var evicted []Entry
	if over := len(l.entries) - l.max; over > 0 {
		evicted = append(evicted, l.entries[:over]...)
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
	return evicted
}

// Recent returns up to n entries, most recent first. n <= 0 returns none.
func (l *Log) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || len(l.entries) == 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(l.entries) - 1; i >= len(l.entries)-n; i-- {
		out = append(out, l.entries[i].clone())
	}
	return out
}

// Latest returns the most recent entry.
func (l *Log) Latest() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1].clone(), true
}

// ReplaceLatest swaps the result of the most recent entry and returns the
// updated entry.
func (l *Log) ReplaceLatest(r fields.Result) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == 0 {
		return Entry{}, ErrEmpty
	}
	last := &l.entries[len(l.entries)-1]
	last.Result = r.Clone()
	return last.clone(), nil
}

// All returns every entry, oldest first.
func (l *Log) All() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.clone()
	}
	return out
}

// Load replaces the contents with entries (oldest first), keeping only the
// newest Max of them.
func (l *Log) Load(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if over := len(entries) - l.max; over > 0 {
		entries = entries[over:]
	}
	l.entries = make([]Entry, len(entries))
	for i, e := range entries {
		l.entries[i] = e.clone()
	}
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Max returns the bound.
func (l *Log) Max() int { return l.max }

// Excerpt shortens text to at most max bytes, cutting at a word boundary when
// one is close, and appends "…" when anything was cut. Whitespace runs collapse.
func Excerpt(text string, max int) string {
	s := strings.Join(strings.Fields(text), " ")
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if sp := strings.LastIndexByte(s[:cut], ' '); sp > cut/2 {
		cut = sp
	}
	return strings.TrimSpace(s[:cut]) + "…"
}
