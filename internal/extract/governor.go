package extract

import (
	"strings"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
)

// GovernorConfig controls value quality filtering and caps.
type GovernorConfig struct {
	// MaxValuesPerField caps values kept per field. Earlier matches win.
	// 0 means unlimited.
	MaxValuesPerField int

	// MaxValueLength drops values longer than this many bytes (paragraphs
	// captured by a loose key-value line). 0 means unlimited.
	MaxValueLength int

	// DropMarkdownJunk removes values that are pure formatting artifacts
	// (e.g., "**", "---", "```").
	DropMarkdownJunk bool
}

// DefaultGovernorConfig returns the recommended default governor settings.
func DefaultGovernorConfig() GovernorConfig {
	return GovernorConfig{
		MaxValuesPerField: 50,
		MaxValueLength:    500,
		DropMarkdownJunk:  true,
	}
}

// Governor filters and caps extracted values.
type Governor struct {
	config GovernorConfig
}

// NewGovernor creates a Governor with the given config.
func NewGovernor(cfg GovernorConfig) *Governor {
	return &Governor{config: cfg}
}

// Apply returns a copy of r with noise dropped and each field capped.
// Fields left without values disappear.
func (g *Governor) Apply(r fields.Result) fields.Result {
	out := fields.NewResult()
	for _, name := range r.Names() {
		kept := make([]string, 0, len(r.Values(name)))
		for _, v := range r.Values(name) {
			if g.isNoise(v) {
				continue
			}
			kept = append(kept, v)
			if g.config.MaxValuesPerField > 0 && len(kept) == g.config.MaxValuesPerField {
				break
			}
		}
		out.Add(name, kept...)
	}
	return out
}

func (g *Governor) isNoise(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	if g.config.MaxValueLength > 0 && len(v) > g.config.MaxValueLength {
		return true
	}
	return g.config.DropMarkdownJunk && isMarkdownJunk(v)
}

// isMarkdownJunk detects values that are pure markdown artifacts.
func isMarkdownJunk(s string) bool {
	stripped := strings.TrimSpace(s)
	if stripped == "" {
		return true
	}

	junk := []string{
		"**", "***", "---", "___", "```", "~~~",
		"|", "|-", "-|", "--|--", "|---|",
		"#", "##", "###", "####",
	}
	for _, j := range junk {
		if stripped == j {
			return true
		}
	}

	// All stars/dashes/pipes (table separators, horizontal rules)
	for _, r := range stripped {
		if r != '*' && r != '-' && r != '_' && r != '|' && r != ' ' && r != ':' && r != '#' {
			return false
		}
	}
	return true
}
