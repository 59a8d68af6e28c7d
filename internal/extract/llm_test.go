package extract

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/llm"
)

type fakeProvider struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	opts    []llm.CompletionOpts
}

func (f *fakeProvider) Complete(_ context.Context, prompt string, opts llm.CompletionOpts) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	return f.reply, f.err
}

func (f *fakeProvider) Name() string { return "fake/model" }

func TestEngine_WithLLMMergesFields(t *testing.T) {
	p := &fakeProvider{reply: "```json\n{\"Company\": \"Acme Corp\", \"Email\": [\"a@b.com\"], \"Employees\": 42, \"meta\": {\"x\": 1}}\n```"}
	e := New(WithLLM(p, DefaultLLMOptions()))

	out := e.ExtractDetailed(context.Background(), "Reach a@b.com at Acme Corp")
	if !out.LLMUsed {
		t.Fatal("expected LLM tier to be used")
	}
	assertValues(t, out.Result, FieldEmail, "a@b.com")
	assertValues(t, out.Result, fields.MustName("Company"), "Acme Corp")
	assertValues(t, out.Result, fields.MustName("Employees"), "42")
	if out.Result.Has(fields.MustName("Meta")) {
		t.Error("nested objects should be skipped")
	}

	if len(p.opts) != 1 || p.opts[0].Format != "json" || p.opts[0].System == "" {
		t.Errorf("unexpected completion opts: %+v", p.opts)
	}
	if !strings.Contains(p.prompts[0], "Reach a@b.com at Acme Corp") {
		t.Errorf("prompt should carry the input text, got %q", p.prompts[0])
	}
}

func TestEngine_LLMFailureKeepsRuleResult(t *testing.T) {
	p := &fakeProvider{err: errors.New("503 upstream unavailable")}
	e := New(WithLLM(p, DefaultLLMOptions()))

	out := e.ExtractDetailed(context.Background(), "**Email:** alice@example.com")
	if out.LLMUsed {
		t.Error("LLMUsed should be false when the provider fails")
	}
	if len(out.Failures) != 0 {
		t.Errorf("LLM errors are not rule failures, got %+v", out.Failures)
	}
	assertValues(t, out.Result, FieldEmail, "alice@example.com")
}

func TestEngine_LLMGarbageKeepsRuleResult(t *testing.T) {
	p := &fakeProvider{reply: "Sorry, I can't help with that."}
	e := New(WithLLM(p, DefaultLLMOptions()))

	out := e.ExtractDetailed(context.Background(), "mail alice@example.com")
	if out.LLMUsed {
		t.Error("LLMUsed should be false for an unparseable reply")
	}
	assertValues(t, out.Result, FieldEmail, "alice@example.com")
}

func TestEngine_ResultCacheRetriesLLM(t *testing.T) {
	p := &fakeProvider{err: errors.New("503 transient")}
	e := New(WithLLM(p, DefaultLLMOptions()), WithResultCache(time.Minute))
	text := "Reach a@b.com at Acme Corp"

	first := e.ExtractDetailed(context.Background(), text)
	if first.Cached || first.LLMUsed {
		t.Fatalf("first call: cached=%v llm=%v", first.Cached, first.LLMUsed)
	}

	p.mu.Lock()
	p.err = nil
	p.reply = `{"Company": "Acme Corp"}`
	p.mu.Unlock()

	second := e.ExtractDetailed(context.Background(), text)
	if !second.Cached {
		t.Error("rule-based result should come from the cache")
	}
	if !second.LLMUsed {
		t.Error("LLM tier should run again on a cache hit")
	}
	if len(p.prompts) != 2 {
		t.Errorf("provider called %d times, want 2", len(p.prompts))
	}
	assertValues(t, second.Result, FieldEmail, "a@b.com")
	assertValues(t, second.Result, fields.MustName("Company"), "Acme Corp")

	p.mu.Lock()
	p.err = errors.New("503 again")
	p.mu.Unlock()

	third := e.ExtractDetailed(context.Background(), text)
	if third.LLMUsed {
		t.Error("LLMUsed should be false when the provider fails")
	}
	if third.Result.Has(fields.MustName("Company")) {
		t.Error("LLM fields from an earlier call must not be served from the cache")
	}
	assertValues(t, third.Result, FieldEmail, "a@b.com")
}

func TestEngine_NoLLM(t *testing.T) {
	out := New().ExtractDetailed(context.Background(), "mail alice@example.com")
	if out.LLMUsed {
		t.Error("LLMUsed should be false without a provider")
	}
}

func TestEngine_LLMChunking(t *testing.T) {
	p := &fakeProvider{reply: `{}`}
	opts := LLMOptions{MaxChunkChars: 100, MaxChunks: 2}
	e := New(WithLLM(p, opts))

	text := strings.Repeat("line of filler text\n", 30)
	e.Extract(context.Background(), text)
	if len(p.prompts) != 2 {
		t.Errorf("expected calls capped at 2 chunks, got %d", len(p.prompts))
	}
}

func TestParseFieldObject(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    map[string][]string
		wantErr bool
	}{
		{
			name:  "plain object",
			reply: `{"Name": "Priya", "phone_number": "9876543210"}`,
			want:  map[string][]string{"Name": {"Priya"}, "Phone Number": {"9876543210"}},
		},
		{
			name:  "prose around object",
			reply: "Here you go:\n{\"City\": [\"Pune\", \"Pune\", \"\"]}\nHope it helps",
			want:  map[string][]string{"City": {"Pune"}},
		},
		{
			name:  "invalid names dropped",
			reply: `{"123": "x", "Ok": true}`,
			want:  map[string][]string{"Ok": {"true"}},
		},
		{name: "no object", reply: "nothing", wantErr: true},
		{name: "broken json", reply: `{"a": }`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFieldObject(tt.reply)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got.Map())
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFieldObject: %v", err)
			}
			m := got.Map()
			if len(m) != len(tt.want) {
				t.Fatalf("got %v, want %v", m, tt.want)
			}
			for k, vals := range tt.want {
				if strings.Join(m[k], "|") != strings.Join(vals, "|") {
					t.Errorf("%s = %v, want %v", k, m[k], vals)
				}
			}
		})
	}
}

func TestChunkText(t *testing.T) {
	if got := chunkText("short", 100); len(got) != 1 || got[0] != "short" {
		t.Errorf("short text: %v", got)
	}
	if got := chunkText("", 100); len(got) != 1 {
		t.Errorf("empty text should still yield one chunk, got %d", len(got))
	}

	para := strings.Repeat("a", 60) + "\n\n" + strings.Repeat("b", 60) + "\n\n" + strings.Repeat("c", 60)
	chunks := chunkText(para, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk exceeds limit: %d bytes", len(c))
		}
	}
	if chunks[0] != strings.Repeat("a", 60) {
		t.Errorf("expected split at paragraph boundary, got %q", chunks[0])
	}

	multi := strings.Repeat("é", 80) // 160 bytes
	for _, c := range chunkText(multi, 33) {
		if !strings.HasPrefix(c, "é") {
			t.Errorf("chunk split a rune: %q", c)
		}
	}
}
