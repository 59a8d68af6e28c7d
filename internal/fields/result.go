package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Result maps field names to the values extracted for them. Field order is
// first-insertion order; values within a field are unique and unordered.
//
// The zero value is an empty, usable Result.
type Result struct {
	order  []Name
	values map[Name][]string
}

// NewResult returns an empty Result.
func NewResult() Result {
	return Result{values: map[Name][]string{}}
}

// Add appends values to a field, skipping blanks and values already present.
// It returns the number of values actually added. A field with no surviving
// values is not created.
func (r *Result) Add(name Name, values ...string) int {
	if name == "" {
		return 0
	}
	if r.values == nil {
		r.values = map[Name][]string{}
	}
	existing, ok := r.values[name]
	added := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || containsString(existing, v) {
			continue
		}
		existing = append(existing, v)
		added++
	}
	if added == 0 {
		return 0
	}
	if !ok {
		r.order = append(r.order, name)
	}
	r.values[name] = existing
	return added
}

// Set replaces a field's values. Setting no non-blank values removes the field.
func (r *Result) Set(name Name, values ...string) {
	r.Delete(name)
	r.Add(name, values...)
}

// Delete removes a field.
func (r *Result) Delete(name Name) {
	if _, ok := r.values[name]; !ok {
		return
	}
	delete(r.values, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns a copy of the values for a raw, case-insensitive field label.
func (r Result) Get(raw string) []string {
	name, err := ParseName(raw)
	if err != nil {
		return nil
	}
	return r.Values(name)
}

// Values returns a copy of the values for name.
func (r Result) Values(name Name) []string {
	vals := r.values[name]
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// Has reports whether the field holds at least one value.
func (r Result) Has(name Name) bool {
	return len(r.values[name]) > 0
}

// Names returns field names in insertion order.
func (r Result) Names() []Name {
	out := make([]Name, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of fields.
func (r Result) Len() int { return len(r.order) }

// IsEmpty reports whether no field holds a value.
func (r Result) IsEmpty() bool { return len(r.order) == 0 }

// Count returns the total number of values across all fields.
func (r Result) Count() int {
	n := 0
	for _, vals := range r.values {
		n += len(vals)
	}
	return n
}

// Clone returns a deep copy.
func (r Result) Clone() Result {
	out := NewResult()
	for _, name := range r.order {
		out.Add(name, r.values[name]...)
	}
	return out
}

// Merge adds every field and value of other into r.
func (r *Result) Merge(other Result) {
	for _, name := range other.order {
		r.Add(name, other.values[name]...)
	}
}

// Map returns a plain map copy, for callers that do not care about order.
func (r Result) Map() map[string][]string {
	out := make(map[string][]string, len(r.order))
	for _, name := range r.order {
		out[string(name)] = r.Values(name)
	}
	return out
}

// Joined returns the values of a field joined by sep, for single-cell displays.
func (r Result) Joined(name Name, sep string) string {
	return strings.Join(r.values[name], sep)
}

// MarshalJSON encodes the result as an object whose keys keep insertion order.
func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(string(name))
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of field -> value or field -> []value,
// normalizing field names and keeping the document's key order.
func (r *Result) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected object, got %v", tok)
	}

	out := NewResult()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("fields: decoding %q: %w", key, err)
		}
		name, err := ParseName(key)
		if err != nil {
			return fmt.Errorf("fields: %w", err)
		}

		var many []string
		if err := json.Unmarshal(raw, &many); err == nil {
			out.Add(name, many...)
			continue
		}
		var one string
		if err := json.Unmarshal(raw, &one); err != nil {
			return fmt.Errorf("fields: %q must be a string or list of strings", key)
		}
		out.Add(name, one)
	}
	*r = out
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
