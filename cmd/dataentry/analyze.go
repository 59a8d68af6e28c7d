package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/entry"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/fields"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/history"
)

func newAnalyzeCmd(opts *globalOptions) *cobra.Command {
	var (
		text    string
		asJSON  bool
		readStd bool
	)
	cmd := &cobra.Command{
		Use:   "analyze [file...]",
		Short: "Extract fields from text and files",
		Long: `Extract fields from --text, from stdin (--stdin or "-"), and from files.
All inputs are combined into one analysis. Supported files: plain text,
PDF, DOCX, HTML and images (OCR via tesseract).`,
		Example: `  dataentry analyze --text "Contact Arun Kumar at arun.kumar@example.com or 9876543210"
  dataentry analyze resume.pdf scan.png
  cat form.txt | dataentry analyze -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := entry.Input{Text: text}
			for _, path := range args {
				if path == "-" {
					readStd = true
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				in.Files = append(in.Files, entry.File{Name: filepath.Base(path), Data: data})
			}
			if readStd {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				in.Text = strings.TrimSpace(strings.Join([]string{in.Text, string(data)}, "\n"))
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.Analyze(cmd.Context(), in)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, res.Entry)
			}
			fmt.Fprintf(out, "Entry %s (%s)\n", res.Entry.ID, res.Entry.Source)
			printResult(out, res.Entry.Result)
			for _, f := range res.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: rule %s failed: %s\n", f.RuleID, f.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "text to analyze")
	cmd.Flags().BoolVar(&readStd, "stdin", false, "read text from stdin")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the entry as JSON")
	return cmd
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
		input  string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent analyses, most recent first",
		Long: `List recent analyses, most recent first. With --input <id>, print the
full text that was analyzed for one entry (requires persistence).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id uuid.UUID
			if input != "" {
				var err error
				if id, err = uuid.Parse(input); err != nil {
					return fmt.Errorf("invalid entry id %q: %w", input, err)
				}
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if input != "" {
				text, err := a.svc.Input(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}

			entries := a.svc.Recent(limit)
			out := cmd.OutOrStdout()
			if asJSON {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history yet.")
				return nil
			}
			for i, e := range entries {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "%s  %s  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.ID, e.Source)
				printResult(out, e.Result)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of entries")
	cmd.Flags().StringVar(&input, "input", "", "print the full input of the entry with this id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newFieldsCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "fields [field]",
		Short: "Show field memory, optionally for one field",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			mem := a.svc.Fields()
			if len(args) == 1 {
				name, err := fields.ParseName(args[0])
				if err != nil {
					return err
				}
				mem = map[fields.Name][]string{name: mem[name]}
			}

			out := cmd.OutOrStdout()
			sorted := sortedMemory(mem)
			if asJSON {
				return writeJSON(out, sorted)
			}
			if len(sorted.Names) == 0 {
				fmt.Fprintln(out, "Field memory is empty.")
				return nil
			}
			for _, name := range sorted.Names {
				values := sorted.Values[name]
				fmt.Fprintf(out, "%s (%d): %s\n", name, len(values), strings.Join(values, "; "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newRegisterCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "register <field> <value>",
		Short:   "Attach a custom field to the most recent analysis",
		Example: `  dataentry register "Blood Group" "O+"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			updated, err := a.svc.RegisterCustom(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entry %s updated\n", updated.ID)
			printResult(out, updated.Result)
			return nil
		},
	}
}

func printResult(w io.Writer, r fields.Result) {
	if r.IsEmpty() {
		fmt.Fprintln(w, "  (no fields found)")
		return
	}
	for _, name := range r.Names() {
		fmt.Fprintf(w, "  %s: %s\n", name, r.Joined(name, "; "))
	}
}

type memoryView struct {
	Names  []string            `json:"-"`
	Values map[string][]string `json:"fields"`
}

func (m memoryView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Fields map[string][]string `json:"fields"`
		Count  int                 `json:"count"`
	}{m.Values, len(m.Values)})
}

func sortedMemory(mem map[fields.Name][]string) memoryView {
	view := memoryView{Values: make(map[string][]string, len(mem))}
	for name, values := range mem {
		v := append([]string(nil), values...)
		sort.Strings(v)
		view.Names = append(view.Names, name.String())
		view.Values[name.String()] = v
	}
	sort.Strings(view.Names)
	return view
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
