package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/config"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/entry"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/export"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/extract"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/llm"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/store"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/textsource"
)

const resultCacheTTL = 5 * time.Minute

// app is the wired service for one command invocation.
type app struct {
	cfg    config.ResolvedConfig
	svc    *entry.Service
	exp    *export.Service
	logger *slog.Logger
}

func resolve(opts *globalOptions) (config.ResolvedConfig, error) {
	return config.ResolveConfig(config.ResolveOptions{
		ConfigPath:      opts.configPath,
		CLIDBPath:       opts.dbPath,
		CLIAddr:         opts.addr,
		CLILLM:          opts.llm,
		CLIPolicy:       opts.policy,
		CLIHistoryLimit: opts.historyLimit,
		CLINoPersist:    opts.noPersist,
	})
}

// openApp resolves configuration and builds the service, loading persisted
// history when persistence is on. Callers must Close the app.
func openApp(ctx context.Context, opts *globalOptions) (*app, error) {
	logger := slog.Default()

	cfg, err := resolve(opts)
	if err != nil {
		return nil, err
	}
	limit, err := cfg.HistoryLimitValue()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	persist, err := cfg.PersistEnabled()
	if err != nil {
		return nil, err
	}

	engine, err := buildEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	sources := textsource.New(
		textsource.WithOCR(cfg.OCRTesseract.Value, cfg.OCRLang.Value),
		textsource.WithLogger(logger),
	)

	svcOpts := []entry.Option{
		entry.WithEngine(engine),
		entry.WithTextSource(sources),
		entry.WithHistoryLimit(limit),
		entry.WithPolicy(policy),
		entry.WithLogger(logger),
	}
	if persist {
		st, err := store.NewStore(store.StoreConfig{DBPath: cfg.DBPath.Value})
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		svcOpts = append(svcOpts, entry.WithStore(st))
	}

	svc := entry.New(svcOpts...)
	if err := svc.Load(ctx); err != nil {
		svc.Close()
		return nil, err
	}
	return &app{cfg: cfg, svc: svc, exp: export.NewService(logger), logger: logger}, nil
}

func (a *app) Close() error {
	return a.svc.Close()
}

// buildEngine wires thresholds and, when configured, the rate-limited LLM tier.
func buildEngine(cfg config.ResolvedConfig, logger *slog.Logger) (*extract.Engine, error) {
	opts := []extract.Option{
		extract.WithThresholds(cfg.Thresholds),
		extract.WithLogger(logger),
		extract.WithResultCache(resultCacheTTL),
	}

	if cfg.LLMEnabled() {
		llmCfg, err := llm.ParseLLMFlag(cfg.LLMProvider.Value)
		if err != nil {
			return nil, fmt.Errorf("llm (%s): %w", cfg.LLMProvider.Source, err)
		}
		llmCfg.APIKey = cfg.APIKeyForProvider(llmCfg.Provider).Value
		provider, err := llm.NewProvider(llmCfg)
		if err != nil {
			return nil, err
		}
		perMinute, err := cfg.RatePerMinute()
		if err != nil {
			return nil, err
		}
		provider = llm.NewRateLimited(provider, perMinute)
		opts = append(opts, extract.WithLLM(provider, extract.DefaultLLMOptions()))
		logger.Info("llm.enabled", "provider", provider.Name(), "rate_per_minute", perMinute)
	}
	return extract.New(opts...), nil
}
