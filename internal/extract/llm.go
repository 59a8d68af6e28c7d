package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/llm"
)

const systemPromptFields = `You are a data entry assistant. Extract every labeled or clearly identifiable
field from the user's text: names, emails, phone numbers, addresses, cities,
pincodes, dates, amounts, designations, companies, IDs and anything else a
clerk would type into a form.

RULES:
1. Extract ONLY values that appear in the text - never infer or invent.
2. Use short, human field names ("Email", "Company", "Invoice Number").
3. A field with several values maps to a JSON array of strings.
4. Return ONLY one JSON object, no prose and no markdown fences.

EXAMPLE:
Input: "Priya Sharma, Data Analyst at Acme Corp, priya@acme.com, +91 9876543210"
Output:
{"Name": "Priya Sharma", "Designation": "Data Analyst", "Company": "Acme Corp",
 "Email": "priya@acme.com", "Phone": "9876543210"}`

// LLMOptions tunes the optional model-assisted tier.
type LLMOptions struct {
	// Model overrides the provider's default model.
	Model string
	// MaxChunkChars splits long inputs into chunks of at most this many bytes.
	MaxChunkChars int
	// MaxChunks bounds the calls made for one input.
	MaxChunks int
}

// DefaultLLMOptions returns the settings used when WithLLM is given none.
func DefaultLLMOptions() LLMOptions {
	return LLMOptions{MaxChunkChars: 12000, MaxChunks: 4}
}

// extractWithLLM asks the provider for a field object per chunk and merges
// what it returns. The first failing chunk aborts the tier.
func (e *Engine) extractWithLLM(ctx context.Context, text string) (fields.Result, error) {
	out := fields.NewResult()
	chunks := chunkText(text, e.llmOpts.MaxChunkChars)
	if e.llmOpts.MaxChunks > 0 && len(chunks) > e.llmOpts.MaxChunks {
		chunks = chunks[:e.llmOpts.MaxChunks]
	}

	for _, chunk := range chunks {
		prompt := fmt.Sprintf("Extract fields from this text:\n\n---\n%s\n---\n\nReturn the JSON object.", chunk)
		resp, err := e.llm.Complete(ctx, prompt, llm.CompletionOpts{
			Temperature: 0.1,
			Model:       e.llmOpts.Model,
			Format:      "json",
			System:      systemPromptFields,
		})
		if err != nil {
			return fields.Result{}, fmt.Errorf("%s: %w", e.llm.Name(), err)
		}
		r, err := parseFieldObject(resp)
		if err != nil {
			return fields.Result{}, fmt.Errorf("parsing %s response: %w", e.llm.Name(), err)
		}
		out.Merge(r)
	}
	return out, nil
}

// parseFieldObject reads a JSON object out of a model reply, tolerating code
// fences and surrounding prose. Scalars become strings, nested objects are
// skipped and invalid field names are dropped.
func parseFieldObject(reply string) (fields.Result, error) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start < 0 || end <= start {
		return fields.Result{}, fmt.Errorf("no JSON object in reply")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return fields.Result{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// Keep the model's key order stable across runs.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := fields.NewResult()
	for _, k := range keys {
		name, err := fields.ParseName(k)
		if err != nil {
			continue
		}
		switch v := raw[k].(type) {
		case []any:
			for _, item := range v {
				if s, ok := scalarString(item); ok {
					out.Add(name, s)
				}
			}
		default:
			if s, ok := scalarString(v); ok {
				out.Add(name, s)
			}
		}
	}
	return out, nil
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// chunkText splits text into pieces of at most maxChars bytes, preferring
// paragraph then line breaks, never splitting a UTF-8 sequence.
func chunkText(text string, maxChars int) []string {
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	for len(text) > maxChars {
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		window := text[:cut]
		searchStart := len(window) / 2
		if idx := strings.LastIndex(window[searchStart:], "\n\n"); idx != -1 {
			cut = searchStart + idx
		} else if idx := strings.LastIndexByte(window[searchStart:], '\n'); idx != -1 {
			cut = searchStart + idx
		}
		if cut == 0 {
			cut = maxChars
			for cut < len(text) && !utf8.RuneStart(text[cut]) {
				cut++
			}
		}
		if chunk := strings.TrimSpace(text[:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = text[cut:]
	}
	if chunk := strings.TrimSpace(text); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}
