package memory

import (
	"strings"
	"sync"
	"testing"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
)

func result(pairs ...string) fields.Result {
	r := fields.NewResult()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Add(fields.MustName(pairs[i]), pairs[i+1])
	}
	return r
}

func TestObserveUnionsValues(t *testing.T) {
	s := New()
	s.Observe(result("Email", "a@x.com", "City", "Pune"))
	s.Observe(result("Email", "b@x.com"))

	got := s.Values(fields.MustName("Email"))
	if strings.Join(got, ",") != "a@x.com,b@x.com" {
		t.Errorf("Email = %v", got)
	}
	if s.Len() != 2 || s.Count() != 3 {
		t.Errorf("expected 2 fields / 3 values, got %d / %d", s.Len(), s.Count())
	}
}

func TestObserveIsIdempotent(t *testing.T) {
	s := New()
	r := result("Phone", "9876543210", "Name", "Arun Kumar")

	if n := s.Observe(r); n != 2 {
		t.Fatalf("first observe added %d, want 2", n)
	}
	before := s.Fields()
	if n := s.Observe(r); n != 0 {
		t.Fatalf("second observe added %d, want 0", n)
	}
	after := s.Fields()
	if len(before) != len(after) {
		t.Fatalf("field count changed: %d -> %d", len(before), len(after))
	}
	for name, vals := range before {
		if strings.Join(vals, "|") != strings.Join(after[name], "|") {
			t.Errorf("%s changed: %v -> %v", name, vals, after[name])
		}
	}
}

func TestObserveIsMonotonic(t *testing.T) {
	s := New()
	s.Observe(result("Email", "a@x.com"))
	s.Observe(fields.NewResult())
	s.Observe(result("City", "Pune"))

	if got := s.Values(fields.MustName("Email")); len(got) != 1 {
		t.Errorf("memory shrank: Email = %v", got)
	}
}

func TestFieldsSnapshotIsIndependent(t *testing.T) {
	s := New()
	s.Observe(result("Email", "a@x.com"))

	snap := s.Fields()
	snap[fields.MustName("Email")][0] = "mutated"
	delete(snap, fields.MustName("Email"))

	if got := s.Values(fields.MustName("Email")); len(got) != 1 || got[0] != "a@x.com" {
		t.Errorf("store mutated through snapshot: %v", got)
	}
}

func TestNamesSorted(t *testing.T) {
	s := New()
	s.Observe(result("Zeta", "1", "Alpha", "2", "Mid", "3"))
	names := s.Names()
	if len(names) != 3 || names[0] != "Alpha" || names[2] != "Zeta" {
		t.Errorf("Names() = %v", names)
	}
}

func TestLoad(t *testing.T) {
	s := New()
	s.Load(map[string][]string{
		"email":    {"a@x.com", ""},
		"pin code": {"600001"},
		"123":      {"ignored"},
	})
	if s.Len() != 2 {
		t.Fatalf("expected 2 fields, got %v", s.Names())
	}
	if got := s.Values(fields.MustName("Pin Code")); len(got) != 1 || got[0] != "600001" {
		t.Errorf("Pin Code = %v", got)
	}
}

func TestConcurrentObserve(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Observe(result("Tag", strings.Repeat("x", i%5+1)))
		}(i)
	}
	wg.Wait()
	if got := len(s.Values(fields.MustName("Tag"))); got != 5 {
		t.Errorf("expected 5 distinct tags, got %d", got)
	}
}
