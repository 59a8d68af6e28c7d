// Package registrar attaches user-supplied fields to an existing result and
// records them in field memory.
package registrar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/memory"
)

var (
	// ErrNoActiveResult means there is no result to attach the field to.
	ErrNoActiveResult = errors.New("no active result to register against")
	// ErrInvalidRegistration means the field name or value was rejected.
	ErrInvalidRegistration = errors.New("invalid custom field")
)

// Policy decides what happens when the target already has the field.
type Policy string

const (
	// PolicyAppend adds the value next to existing ones.
	PolicyAppend Policy = "append"
	// PolicyOverwrite replaces existing values.
	PolicyOverwrite Policy = "overwrite"
)

// ParsePolicy accepts "append" or "overwrite" (case-insensitive). Empty means append.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAppend:
		return PolicyAppend, nil
	case PolicyOverwrite:
		return PolicyOverwrite, nil
	default:
		return "", fmt.Errorf("unknown register policy %q (supported: append, overwrite)", s)
	}
}

// Registrar validates registrations and applies them.
type Registrar struct {
	memory *memory.Store
	policy Policy
}

// New returns a Registrar writing to mem. An empty policy means PolicyAppend.
func New(mem *memory.Store, policy Policy) *Registrar {
	if policy == "" {
		policy = PolicyAppend
	}
	return &Registrar{memory: mem, policy: policy}
}

// Policy returns the configured policy.
func (r *Registrar) Policy() Policy { return r.policy }

// Register adds field=value to a copy of target and observes it in memory.
// target is never modified. On error memory is left untouched.
func (r *Registrar) Register(field, value string, target *fields.Result) (fields.Result, error) {
	if target == nil {
		return fields.Result{}, ErrNoActiveResult
	}
	name, err := fields.ParseName(field)
	if err != nil {
		return fields.Result{}, fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fields.Result{}, fmt.Errorf("%w: value for %q is empty", ErrInvalidRegistration, name)
	}

	out := target.Clone()
	switch r.policy {
	case PolicyOverwrite:
		out.Set(name, value)
	default:
		out.Add(name, value)
	}

	reg := fields.NewResult()
	reg.Add(name, value)
	r.memory.Observe(reg)
	return out, nil
}
