// Package memory accumulates every value ever seen per field across
// extractions. It only grows: there is no eviction and no removal.
package memory

import (
	"sort"
	"sync"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
)

// Store is the field memory. The zero value is not usable; call New.
type Store struct {
	mu     sync.Mutex
	values map[fields.Name]map[string]struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{values: map[fields.Name]map[string]struct{}{}}
}

// Observe unions every value of r into its field's set. Observing the same
// result twice is a no-op the second time. It returns the number of values
// that were new.
func (s *Store) Observe(r fields.Result) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, name := range r.Names() {
		set, ok := s.values[name]
		if !ok {
			set = map[string]struct{}{}
			s.values[name] = set
		}
		for _, v := range r.Values(name) {
			if _, seen := set[v]; seen {
				continue
			}
			set[v] = struct{}{}
			added++
		}
	}
	return added
}

// Load seeds the store from persisted values. Blank values and invalid names
// are ignored.
func (s *Store) Load(seed map[string][]string) {
	r := fields.NewResult()
	for raw, vals := range seed {
		name, err := fields.ParseName(raw)
		if err != nil {
			continue
		}
		r.Add(name, vals...)
	}
	s.Observe(r)
}

// Fields returns a snapshot of every field and its values, values sorted.
func (s *Store) Fields() map[fields.Name][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[fields.Name][]string, len(s.values))
	for name, set := range s.values {
		out[name] = sortedKeys(set)
	}
	return out
}

// Names returns every known field name, sorted.
func (s *Store) Names() []fields.Name {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]fields.Name, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Values returns the sorted values seen for one field.
func (s *Store) Values(name fields.Name) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.values[name])
}

// Len returns the number of fields.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Count returns the total number of values across fields.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, set := range s.values {
		n += len(set)
	}
	return n
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
