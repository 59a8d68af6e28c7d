package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/config"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/export"
)

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		out    string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history and field memory to XLSX or CSV",
		Long: `Write history (one row per analysis, one column per field) and field
memory to a spreadsheet. The format follows --format, or the --out
extension when --format is not given. "-" writes to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" && out != "" && out != "-" {
				format = strings.TrimPrefix(filepath.Ext(out), ".")
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if out == "" {
				out = f.Filename()
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			snap := a.svc.Snapshot()
			var buf bytes.Buffer
			if err := a.exp.Write(cmd.Context(), &buf, f, snap); err != nil {
				return err
			}
			if out == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d entries and %d fields to %s\n", len(snap.Entries), len(snap.Fields), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default ai_data_entry_export.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "xlsx or csv (default xlsx)")
	return cmd
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration and where each value came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolve(opts)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg.Redacted())
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the default config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.DefaultConfigPath())
		},
	})
	return cmd
}
