package registrar

import (
	"errors"
	"testing"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/memory"
)

func TestRegisterWithoutTarget(t *testing.T) {
	mem := memory.New()
	reg := New(mem, PolicyAppend)

	_, err := reg.Register("Blood Group", "O+", nil)
	if !errors.Is(err, ErrNoActiveResult) {
		t.Fatalf("expected ErrNoActiveResult, got %v", err)
	}
	if mem.Len() != 0 {
		t.Errorf("memory changed on failure: %v", mem.Fields())
	}
}

func TestRegisterInvalid(t *testing.T) {
	tests := []struct {
		field, value string
	}{
		{"", "x"},
		{"   ", "x"},
		{"42", "x"},
		{"Blood Group", ""},
		{"Blood Group", "   "},
	}
	for _, tt := range tests {
		mem := memory.New()
		target := fields.NewResult()
		_, err := New(mem, "").Register(tt.field, tt.value, &target)
		if !errors.Is(err, ErrInvalidRegistration) {
			t.Errorf("Register(%q, %q): expected ErrInvalidRegistration, got %v", tt.field, tt.value, err)
		}
		if mem.Len() != 0 {
			t.Errorf("Register(%q, %q) touched memory", tt.field, tt.value)
		}
	}
}

func TestRegisterAppend(t *testing.T) {
	mem := memory.New()
	reg := New(mem, PolicyAppend)

	target := fields.NewResult()
	target.Add(fields.MustName("Email"), "a@x.com")

	out, err := reg.Register("email", "b@x.com", &target)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := out.Values(fields.MustName("Email")); len(got) != 2 {
		t.Errorf("append should keep both values, got %v", got)
	}
	if target.Count() != 1 {
		t.Error("target must not be modified")
	}
	if got := mem.Values(fields.MustName("Email")); len(got) != 1 || got[0] != "b@x.com" {
		t.Errorf("memory should hold only the registered value, got %v", got)
	}
}

func TestRegisterOverwrite(t *testing.T) {
	mem := memory.New()
	reg := New(mem, PolicyOverwrite)

	target := fields.NewResult()
	target.Add(fields.MustName("City"), "Pune", "Mumbai")

	out, err := reg.Register("city", " Chennai ", &target)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := out.Values(fields.MustName("City")); len(got) != 1 || got[0] != "Chennai" {
		t.Errorf("overwrite should replace values, got %v", got)
	}
}

func TestRegisterNewField(t *testing.T) {
	mem := memory.New()
	target := fields.NewResult()

	out, err := New(mem, "").Register("blood_group", "O+", &target)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := out.Get("Blood Group"); len(got) != 1 || got[0] != "O+" {
		t.Errorf("Blood Group = %v", got)
	}
	if got := mem.Values(fields.MustName("Blood Group")); len(got) != 1 || got[0] != "O+" {
		t.Errorf("memory Blood Group = %v", got)
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyAppend, false},
		{"append", PolicyAppend, false},
		{" Overwrite ", PolicyOverwrite, false},
		{"merge", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePolicy(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNewDefaultsToAppend(t *testing.T) {
	if got := New(memory.New(), "").Policy(); got != PolicyAppend {
		t.Errorf("Policy() = %q, want append", got)
	}
}
