// Package extract turns unstructured text into a field -> values map.
//
// Extraction is rule-based and offline: a fixed table of regex, vocabulary and
// heuristic rules is evaluated over the whole text, then a key-value fallback
// picks up "Label: value" lines no dedicated rule owns. Each rule runs in
// isolation so one faulty rule cannot discard what the others found.
//
// An LLM tier can be layered on top with WithLLM. Its fields are merged into
// the rule-based result; when it fails the rule-based result stands.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/llm"
)

// RuleFailure records a rule that panicked or errored during one extraction.
type RuleFailure struct {
	RuleID string      `json:"rule"`
	Field  fields.Name `json:"field,omitempty"`
	Err    string      `json:"error"`
}

// Outcome is the detailed result of one extraction.
type Outcome struct {
	Result   fields.Result
	Failures []RuleFailure
	// LLMUsed reports whether model-assisted fields were merged in.
	LLMUsed bool
	// Cached reports whether the result came from the result cache.
	Cached bool
}

// Engine evaluates the rule table. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	rules      []Rule
	th         Thresholds
	owners     map[fields.Name][]Rule
	vocabWords map[string]bool
	governor   *Governor
	logger     *slog.Logger

	llm     llm.Provider
	llmOpts LLMOptions

	cache *gocache.Cache

	customRules bool
	govConfig   *GovernorConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithThresholds replaces the numeric cutoffs of the stock rules.
func WithThresholds(th Thresholds) Option {
	return func(e *Engine) { e.th = th.withDefaults() }
}

// WithRules replaces the rule table. Rules run in the given order.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) {
		e.rules = append([]Rule(nil), rules...)
		e.customRules = true
	}
}

// WithGovernor sets a custom governor config.
func WithGovernor(cfg GovernorConfig) Option {
	return func(e *Engine) { e.govConfig = &cfg }
}

// WithLogger sets the logger used for rule and LLM warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithLLM enables the model-assisted tier. A nil provider leaves it off.
func WithLLM(p llm.Provider, opts LLMOptions) Option {
	return func(e *Engine) {
		e.llm = p
		e.llmOpts = opts
		if e.llmOpts.MaxChunkChars <= 0 {
			e.llmOpts.MaxChunkChars = DefaultLLMOptions().MaxChunkChars
		}
	}
}

// WithResultCache memoizes results per distinct input for ttl.
func WithResultCache(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.cache = gocache.New(ttl, 2*ttl)
		}
	}
}

// New builds an Engine. Without options it runs DefaultRules(DefaultThresholds()).
func New(opts ...Option) *Engine {
	e := &Engine{th: DefaultThresholds()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if !e.customRules {
		e.rules = DefaultRules(e.th)
	}

	gov := DefaultGovernorConfig()
	gov.MaxValuesPerField = e.th.MaxValuesPerField
	if e.govConfig != nil {
		gov = *e.govConfig
	}
	e.governor = NewGovernor(gov)

	e.owners = map[fields.Name][]Rule{}
	e.vocabWords = map[string]bool{}
	for i := range e.rules {
		r := &e.rules[i]
		if r.Kind == KindVocabulary && r.vocabRE == nil {
			r.compileVocabulary()
		}
		if r.Field != "" && r.Kind != KindKeyValue {
			e.owners[r.Field] = append(e.owners[r.Field], *r)
		}
		if r.Kind == KindVocabulary {
			for _, term := range r.Vocabulary {
				for _, w := range strings.Fields(term) {
					e.vocabWords[strings.ToLower(w)] = true
				}
			}
		}
	}
	return e
}

// Rules returns a copy of the rule table.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Extract returns the fields found in text. Empty or whitespace-only text
// yields an empty result. Rule failures are logged and skipped.
func (e *Engine) Extract(ctx context.Context, text string) fields.Result {
	return e.ExtractDetailed(ctx, text).Result
}

// ExtractDetailed is Extract plus the list of rules that failed.
//
// The result cache holds only the rule-based result. The LLM tier runs on
// every call, cached or not, so a provider failure is retried next time.
func (e *Engine) ExtractDetailed(ctx context.Context, text string) Outcome {
	if strings.TrimSpace(text) == "" {
		return Outcome{Result: fields.NewResult()}
	}

	out := e.extractRules(ctx, text)

	if e.llm != nil && ctx.Err() == nil {
		llmResult, err := e.extractWithLLM(ctx, text)
		if err != nil {
			e.logger.Warn("extract.llm.failed", "provider", e.llm.Name(), "error", err)
		} else {
			out.Result.Merge(llmResult)
			out.LLMUsed = true
		}
	}

	out.Result = e.governor.Apply(out.Result)
	return out
}

// extractRules runs the rule table, consulting and filling the result cache.
func (e *Engine) extractRules(ctx context.Context, text string) Outcome {
	key := cacheKey(text)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			return Outcome{Result: v.(fields.Result).Clone(), Cached: true}
		}
	}

	out := Outcome{Result: fields.NewResult()}
	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			out.Failures = append(out.Failures, RuleFailure{RuleID: rule.ID, Field: rule.Field, Err: err.Error()})
			e.logger.Warn("extract.canceled", "rule", rule.ID, "error", err)
			break
		}
		partial, err := e.runRule(rule, text)
		if err != nil {
			out.Failures = append(out.Failures, RuleFailure{RuleID: rule.ID, Field: rule.Field, Err: err.Error()})
			e.logger.Warn("extract.rule.failed", "rule", rule.ID, "field", rule.Field.String(), "error", err)
			continue
		}
		out.Result.Merge(partial)
	}

	if e.cache != nil && len(out.Failures) == 0 {
		e.cache.SetDefault(key, out.Result.Clone())
	}
	return out
}

// runRule evaluates one rule, converting a panic into an error.
func (e *Engine) runRule(rule Rule, text string) (res fields.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule %s panicked: %v", rule.ID, r)
		}
	}()

	switch rule.Kind {
	case KindRegex, KindVocabulary, KindCapitalized:
		if rule.Field == "" {
			return fields.Result{}, fmt.Errorf("rule %s has no field", rule.ID)
		}
		if rule.Kind == KindRegex && rule.Pattern == nil {
			return fields.Result{}, fmt.Errorf("rule %s has no pattern", rule.ID)
		}
		if rule.Kind == KindVocabulary && rule.vocabRE == nil {
			return fields.Result{}, fmt.Errorf("rule %s has an empty vocabulary", rule.ID)
		}
		res = fields.NewResult()
		res.Add(rule.Field, e.scan(rule, text)...)
		return res, nil
	case KindKeyValue:
		return e.extractKeyValues(rule, text), nil
	default:
		return fields.Result{}, fmt.Errorf("rule %s: unknown kind %s", rule.ID, rule.Kind)
	}
}

// scan returns the normalized, accepted values a single-field rule finds in text.
func (e *Engine) scan(rule Rule, text string) []string {
	switch rule.Kind {
	case KindRegex:
		return scanRegex(rule, text)
	case KindVocabulary:
		return scanVocabulary(rule, text)
	case KindCapitalized:
		return e.extractNames(rule, text)
	default:
		return nil
	}
}

func scanRegex(rule Rule, text string) []string {
	if rule.Pattern == nil {
		return nil
	}
	var values []string
	for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
		g := rule.Group
		if 2*g+1 >= len(loc) || loc[2*g] < 0 {
			continue
		}
		m := Match{
			Value: text[loc[2*g]:loc[2*g+1]],
			Start: loc[2*g],
			End:   loc[2*g+1],
			Text:  text,
		}
		for i := 0; 2*i+1 < len(loc); i++ {
			if loc[2*i] < 0 {
				m.Groups = append(m.Groups, "")
				continue
			}
			m.Groups = append(m.Groups, text[loc[2*i]:loc[2*i+1]])
		}

		v := normalize(rule.Post, m.Value)
		if v == "" {
			continue
		}
		if rule.Accept != nil && !rule.Accept(m, v) {
			continue
		}
		values = append(values, v)
	}
	return values
}

func scanVocabulary(rule Rule, text string) []string {
	if rule.vocabRE == nil {
		return nil
	}
	var values []string
	for _, loc := range rule.vocabRE.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		v, ok := rule.vocabIndex[vocabKey(raw)]
		if !ok {
			v = raw
		}
		m := Match{Value: raw, Start: loc[0], End: loc[1], Text: text}
		if rule.Accept != nil && !rule.Accept(m, v) {
			continue
		}
		values = append(values, v)
	}
	return values
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
