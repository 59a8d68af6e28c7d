// Package llm adapts hosted language models to the optional extraction tier.
// Providers are plain request/response clients; the extract package owns the
// prompt and the parsing of replies.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultTimeout bounds a single completion request.
const DefaultTimeout = 60 * time.Second

// Provider is the interface for LLM completions.
type Provider interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error)
	// Name returns a human-readable provider name (e.g., "google/gemini-2.5-flash").
	Name() string
}

// CompletionOpts configures a single completion request.
type CompletionOpts struct {
	MaxTokens   int     // Max tokens to generate (0 = provider default)
	Temperature float64 // 0.0-2.0 (0 = deterministic)
	Model       string  // Override model for this request (empty = use provider default)
	Format      string  // "json" for structured output, empty for plain text
	System      string  // System prompt (optional)
}

// Config holds provider configuration.
type Config struct {
	Provider string        // "google", "openai"
	Model    string        // e.g., "gemini-2.5-flash", "gpt-4o-mini"
	APIKey   string        // API key (empty = read from env)
	BaseURL  string        // Optional URL override
	Timeout  time.Duration // Per-request timeout (0 = DefaultTimeout)
}

// NewProvider creates an LLM provider from the given config.
func NewProvider(cfg Config) (Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch strings.ToLower(cfg.Provider) {
	case "google":
		key := firstEnv(cfg.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("google provider requires GEMINI_API_KEY or GOOGLE_API_KEY env var")
		}
		model := cfg.Model
		if model == "" {
			model = "gemini-2.5-flash"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://generativelanguage.googleapis.com/v1beta"
		}
		return newGoogleProvider(key, model, baseURL, timeout), nil

	case "openai":
		key := firstEnv(cfg.APIKey, "OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY env var")
		}
		return newOpenAIProvider(key, cfg.Model, cfg.BaseURL, timeout), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: google, openai)", cfg.Provider)
	}
}

// ParseLLMFlag parses a --llm flag value into a Config.
// Format: "provider/model" e.g., "google/gemini-2.5-flash", "openai/gpt-4o-mini".
// A bare provider name selects its default model.
func ParseLLMFlag(flag string) (Config, error) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return Config{Provider: "google", Model: "gemini-2.5-flash"}, nil
	}

	provider, model, _ := strings.Cut(flag, "/")
	provider = strings.ToLower(provider)

	switch provider {
	case "google", "openai":
		return Config{Provider: provider, Model: model}, nil
	default:
		return Config{}, fmt.Errorf("unknown provider %q in --llm flag (supported: google, openai)", provider)
	}
}

func firstEnv(explicit string, keys ...string) string {
	if explicit != "" {
		return explicit
	}
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
