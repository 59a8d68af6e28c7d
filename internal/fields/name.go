// Package fields defines the schema-less field model shared by every part of
// the data entry pipeline: canonical field names and ordered extraction results.
package fields

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength caps field names. Labels longer than this are prose, not fields.
const MaxNameLength = 64

// ErrInvalidName is returned by ParseName for names that cannot be normalized.
var ErrInvalidName = errors.New("invalid field name")

// Name is a canonical field name in display form ("Email", "Pin Code").
// Build it with ParseName; two Names are equal iff they denote the same field.
type Name string

// ParseName normalizes a raw field label. Input is case-insensitive; runs of
// underscores, hyphens and whitespace collapse to a single space and each word
// is title-cased.
func ParseName(raw string) (Name, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidName)
	}

	hasLetter := false
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: control character in %q", ErrInvalidName, s)
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	if !hasLetter {
		return "", fmt.Errorf("%w: %q has no letters", ErrInvalidName, s)
	}

	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	for i, w := range words {
		words[i] = titleWord(w)
	}
	out := strings.Join(words, " ")
	if utf8.RuneCountInString(out) > MaxNameLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidName, MaxNameLength)
	}
	return Name(out), nil
}

// MustName is ParseName for compile-time constants. It panics on invalid input.
func MustName(raw string) Name {
	n, err := ParseName(raw)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the display form.
func (n Name) String() string { return string(n) }

// Key returns the lower-cased form, used for storage keys and map lookups
// from external callers.
func (n Name) Key() string { return strings.ToLower(string(n)) }

func titleWord(w string) string {
	lower := strings.ToLower(w)
	r, size := utf8.DecodeRuneInString(lower)
	if r == utf8.RuneError {
		return lower
	}
	return string(unicode.ToUpper(r)) + lower[size:]
}
