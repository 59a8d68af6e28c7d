// Command dataentry extracts structured fields from text and documents.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

type globalOptions struct {
	configPath   string
	dbPath       string
	addr         string
	noPersist    bool
	llm          string
	policy       string
	historyLimit string
	logFormat    string
	logLevel     string
	verbose      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "dataentry",
		Short: "AI data entry: extract structured fields from text and documents",
		Long: `dataentry turns unstructured text (typed, pasted, or read from PDF, DOCX,
HTML and scanned images) into named fields such as Name, Email, Phone,
Address, Amount and Date.

Every analysis is kept in a bounded history, every value seen is kept in
field memory, and both can be exported to XLSX or CSV.

Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (DATAENTRY_*, OPENAI_API_KEY, GEMINI_API_KEY)
  3. Config file (~/.dataentry/config.yaml)
  4. Defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env never overrides variables that are already set.
			_ = godotenv.Load()
			logger, err := newLogger(cmd.ErrOrStderr(), opts)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default: ~/.dataentry/config.yaml)")
	pf.StringVar(&opts.dbPath, "db", "", "SQLite database path (default: ~/.dataentry/dataentry.db)")
	pf.BoolVar(&opts.noPersist, "no-persist", false, "keep history and field memory in memory only")
	pf.StringVar(&opts.llm, "llm", "", "optional LLM tier, provider/model (e.g. google/gemini-2.5-flash, openai/gpt-4o-mini)")
	pf.StringVar(&opts.policy, "policy", "", "custom field policy when the field exists: append or overwrite")
	pf.StringVar(&opts.historyLimit, "history-limit", "", "number of analyses kept in history")
	pf.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "shorthand for --log-level info")

	root.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newAnalyzeCmd(opts),
		newHistoryCmd(opts),
		newFieldsCmd(opts),
		newRegisterCmd(opts),
		newExportCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dataentry %s\n", version)
		},
	}
}

func newLogger(w io.Writer, opts *globalOptions) (*slog.Logger, error) {
	level, err := parseLevel(opts.logLevel)
	if err != nil {
		return nil, err
	}
	if opts.verbose && level > slog.LevelInfo {
		level = slog.LevelInfo
	}

	switch strings.ToLower(opts.logFormat) {
	case "", "text":
		return slog.New(tint.NewHandler(w, &tint.Options{Level: level})), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (supported: text, json)", opts.logFormat)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
