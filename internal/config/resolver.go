// Package config resolves dataentry settings from the config file, the
// environment and CLI flags, remembering where each value came from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/extract"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/registrar"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// Built-in defaults.
const (
	DefaultDBPath       = "~/.dataentry/dataentry.db"
	DefaultHTTPAddr     = ":8080"
	DefaultHistoryLimit = 50
	DefaultRatePerMin   = 30
	DefaultTesseract    = "tesseract"
	DefaultOCRLang      = "eng"
)

type ResolvedValue struct {
	Value  string      `json:"value" yaml:"value"`
	Source ValueSource `json:"source" yaml:"source"`
	From   string      `json:"from,omitempty" yaml:"from,omitempty"`
}

type ResolveOptions struct {
	ConfigPath      string
	CLIDBPath       string
	CLIAddr         string
	CLILLM          string
	CLIPolicy       string
	CLIHistoryLimit string
	CLINoPersist    bool
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path" yaml:"config_path"`

	DBPath         ResolvedValue `json:"db_path" yaml:"db_path"`
	Persist        ResolvedValue `json:"persist" yaml:"persist"`
	HTTPAddr       ResolvedValue `json:"http_addr" yaml:"http_addr"`
	HistoryLimit   ResolvedValue `json:"history_limit" yaml:"history_limit"`
	RegisterPolicy ResolvedValue `json:"register_policy" yaml:"register_policy"`

	LLMProvider      ResolvedValue `json:"llm_provider" yaml:"llm_provider"`
	LLMRatePerMinute ResolvedValue `json:"llm_rate_per_minute" yaml:"llm_rate_per_minute"`

	OCRTesseract ResolvedValue `json:"ocr_tesseract" yaml:"ocr_tesseract"`
	OCRLang      ResolvedValue `json:"ocr_lang" yaml:"ocr_lang"`

	Thresholds       extract.Thresholds `json:"thresholds" yaml:"thresholds"`
	ThresholdsSource ValueSource        `json:"thresholds_source" yaml:"thresholds_source"`

	LLMKeys map[string]ResolvedValue `json:"llm_keys,omitempty" yaml:"llm_keys,omitempty"`
}

type fileConfig struct {
	DBPath         string `yaml:"db_path"`
	Persist        *bool  `yaml:"persist"`
	HTTPAddr       string `yaml:"http_addr"`
	HistoryLimit   int    `yaml:"history_limit"`
	RegisterPolicy string `yaml:"register_policy"`
	LLM            struct {
		Provider      string  `yaml:"provider"`
		Model         string  `yaml:"model"`
		APIKey        string  `yaml:"api_key"`
		RatePerMinute float64 `yaml:"rate_per_minute"`
	} `yaml:"llm"`
	OCR struct {
		Tesseract string `yaml:"tesseract"`
		Lang      string `yaml:"lang"`
	} `yaml:"ocr"`
	// Thresholds is decoded over the defaults so partial blocks keep the rest.
	Thresholds yaml.Node `yaml:"thresholds"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dataentry", "config.yaml")
}

func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath:       path,
		DBPath:           builtin(DefaultDBPath),
		Persist:          builtin("true"),
		HTTPAddr:         builtin(DefaultHTTPAddr),
		HistoryLimit:     builtin(strconv.Itoa(DefaultHistoryLimit)),
		RegisterPolicy:   builtin(string(registrar.PolicyAppend)),
		LLMRatePerMinute: builtin(strconv.Itoa(DefaultRatePerMin)),
		OCRTesseract:     builtin(DefaultTesseract),
		OCRLang:          builtin(DefaultOCRLang),
		Thresholds:       extract.DefaultThresholds(),
		ThresholdsSource: SourceDefault,
		LLMKeys:          map[string]ResolvedValue{},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		if cfg.Persist != nil {
			apply(&out.Persist, strconv.FormatBool(*cfg.Persist), SourceConfig, path)
		}
		apply(&out.HTTPAddr, cfg.HTTPAddr, SourceConfig, path)
		if cfg.HistoryLimit != 0 {
			apply(&out.HistoryLimit, strconv.Itoa(cfg.HistoryLimit), SourceConfig, path)
		}
		apply(&out.RegisterPolicy, cfg.RegisterPolicy, SourceConfig, path)
		apply(&out.LLMProvider, joinModel(cfg.LLM.Provider, cfg.LLM.Model), SourceConfig, path)
		if cfg.LLM.RatePerMinute != 0 {
			apply(&out.LLMRatePerMinute, strconv.FormatFloat(cfg.LLM.RatePerMinute, 'f', -1, 64), SourceConfig, path)
		}
		apply(&out.OCRTesseract, cfg.OCR.Tesseract, SourceConfig, path)
		apply(&out.OCRLang, cfg.OCR.Lang, SourceConfig, path)

		if cfg.Thresholds.Kind != 0 {
			th := extract.DefaultThresholds()
			if err := cfg.Thresholds.Decode(&th); err != nil {
				return out, fmt.Errorf("parsing thresholds in %s: %w", path, err)
			}
			out.Thresholds = th
			out.ThresholdsSource = SourceConfig
		}

		if key := strings.TrimSpace(cfg.LLM.APIKey); key != "" {
			p := providerOf(out.LLMProvider.Value)
			if p == "" {
				p = "default"
			}
			out.LLMKeys[p] = ResolvedValue{Value: key, Source: SourceConfig, From: path}
		}
	}

	applyEnv(&out.DBPath, "DATAENTRY_DB")
	applyEnv(&out.Persist, "DATAENTRY_PERSIST")
	applyEnv(&out.HTTPAddr, "DATAENTRY_HTTP_ADDR")
	applyEnv(&out.HistoryLimit, "DATAENTRY_HISTORY_LIMIT")
	applyEnv(&out.RegisterPolicy, "DATAENTRY_REGISTER_POLICY")
	applyEnv(&out.LLMProvider, "DATAENTRY_LLM")
	applyEnv(&out.LLMRatePerMinute, "DATAENTRY_LLM_RATE")
	applyEnv(&out.OCRTesseract, "DATAENTRY_TESSERACT")
	applyEnv(&out.OCRLang, "DATAENTRY_OCR_LANG")

	for env, provider := range map[string]string{
		"OPENAI_API_KEY": "openai",
		"GEMINI_API_KEY": "google",
		"GOOGLE_API_KEY": "google",
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			// GEMINI_API_KEY wins over GOOGLE_API_KEY.
			if cur, ok := out.LLMKeys[provider]; ok && cur.From == "GEMINI_API_KEY" {
				continue
			}
			out.LLMKeys[provider] = ResolvedValue{Value: v, Source: SourceEnv, From: env}
		}
	}

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.HTTPAddr, opts.CLIAddr, SourceCLI, "--addr")
	apply(&out.LLMProvider, opts.CLILLM, SourceCLI, "--llm")
	apply(&out.RegisterPolicy, opts.CLIPolicy, SourceCLI, "--policy")
	apply(&out.HistoryLimit, opts.CLIHistoryLimit, SourceCLI, "--history-limit")
	if opts.CLINoPersist {
		out.Persist = ResolvedValue{Value: "false", Source: SourceCLI, From: "--no-persist"}
	}

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}

	return out, out.Validate()
}

// Validate checks that every typed setting parses.
func (r ResolvedConfig) Validate() error {
	if _, err := r.HistoryLimitValue(); err != nil {
		return err
	}
	if _, err := r.PersistEnabled(); err != nil {
		return err
	}
	if _, err := r.Policy(); err != nil {
		return fmt.Errorf("register_policy (%s): %w", r.RegisterPolicy.Source, err)
	}
	if _, err := r.RatePerMinute(); err != nil {
		return err
	}
	return nil
}

// HistoryLimitValue returns the history bound. It must be at least 1.
func (r ResolvedConfig) HistoryLimitValue() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(r.HistoryLimit.Value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("history_limit (%s): %q is not a positive integer", r.HistoryLimit.Source, r.HistoryLimit.Value)
	}
	return n, nil
}

// PersistEnabled reports whether history and field memory go to SQLite.
func (r ResolvedConfig) PersistEnabled() (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(r.Persist.Value))
	if err != nil {
		return false, fmt.Errorf("persist (%s): %q is not a boolean", r.Persist.Source, r.Persist.Value)
	}
	return b, nil
}

// Policy returns the custom field registration policy.
func (r ResolvedConfig) Policy() (registrar.Policy, error) {
	return registrar.ParsePolicy(r.RegisterPolicy.Value)
}

// RatePerMinute returns the LLM request budget. 0 disables limiting.
func (r ResolvedConfig) RatePerMinute() (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(r.LLMRatePerMinute.Value), 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("llm.rate_per_minute (%s): %q is not a non-negative number", r.LLMRatePerMinute.Source, r.LLMRatePerMinute.Value)
	}
	return f, nil
}

// LLMEnabled reports whether an LLM provider was configured.
func (r ResolvedConfig) LLMEnabled() bool {
	return strings.TrimSpace(r.LLMProvider.Value) != ""
}

func (r ResolvedConfig) APIKeyForProvider(providerOrModel string) ResolvedValue {
	provider := providerOf(providerOrModel)
	if provider == "" {
		return ResolvedValue{}
	}
	if v, ok := r.LLMKeys[provider]; ok && strings.TrimSpace(v.Value) != "" {
		return v
	}
	if v, ok := r.LLMKeys["default"]; ok && strings.TrimSpace(v.Value) != "" {
		return v
	}
	return ResolvedValue{}
}

// Redacted returns a copy with API key values masked, for display.
func (r ResolvedConfig) Redacted() ResolvedConfig {
	keys := make(map[string]ResolvedValue, len(r.LLMKeys))
	for k, v := range r.LLMKeys {
		v.Value = mask(v.Value)
		keys[k] = v
	}
	r.LLMKeys = keys
	return r
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func providerOf(providerOrModel string) string {
	v := strings.ToLower(strings.TrimSpace(providerOrModel))
	if v == "" {
		return ""
	}
	if idx := strings.Index(v, "/"); idx > 0 {
		return v[:idx]
	}
	return v
}

// joinModel turns separate provider/model keys into the "provider/model" form
// used by --llm.
func joinModel(provider, model string) string {
	provider, model = strings.TrimSpace(provider), strings.TrimSpace(model)
	if provider == "" || model == "" || strings.Contains(provider, "/") {
		return provider
	}
	return provider + "/" + model
}

func builtin(v string) ResolvedValue {
	return ResolvedValue{Value: v, Source: SourceDefault, From: "built-in default"}
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
