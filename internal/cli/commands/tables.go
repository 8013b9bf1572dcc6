package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/esqlgen/internal/cli/output"
	"github.com/leapstack-labs/esqlgen/pkg/patch"
	"github.com/leapstack-labs/esqlgen/pkg/transduce"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// TablesOptions holds options for the tables command.
type TablesOptions struct {
	Snippets string
	DryRun   bool
	Format   string
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	opts := &TablesOptions{}
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Inspect the patch tables",
		Long: `Load the patch tables and list every entry.

With --dry-run the host grammar is transduced in memory first, so the usage
column shows how often each entry matched. Entries with a usage other than 1
are exactly what a failing generate run complains about.`,
		Example: `  # List all patch entries
  esqlgen tables

  # Show usage counts against the configured grammar
  esqlgen tables --dry-run

  # Machine-readable dumps
  esqlgen tables --format json
  esqlgen tables --format yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTables(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Snippets, "snippets", "", "Directory with patch tables")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Transduce the grammar in memory to fill usage counts")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, yaml, markdown")

	return cmd
}

func runTables(cmd *cobra.Command, opts *TablesOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	snippetsDir := cfg.SnippetsDir
	if opts.Snippets != "" {
		snippetsDir = opts.Snippets
	}

	tables, err := patch.Load(transduce.DefaultSources(snippetsDir))
	if err != nil {
		return err
	}

	if opts.DryRun {
		grammarText, err := os.ReadFile(cfg.GrammarPath)
		if err != nil {
			return fmt.Errorf("failed to read grammar %s: %w", cfg.GrammarPath, err)
		}
		// Counters are what we are after; an integrity failure is the
		// interesting result here, not an abort.
		if _, _, err := transduce.Generate(string(grammarText), tables, transduce.Config{
			StatementRule: cfg.StatementRule,
			Logger:        cmdCtx.Logger,
		}); err != nil {
			var integrity *patch.IntegrityError
			if !errors.As(err, &integrity) {
				return err
			}
			r.Errorln(fmt.Sprintf("Integrity: %v", err))
		}
	}

	rows := tables.Rows()
	switch r.EffectiveMode() {
	case output.ModeJSON:
		enc := json.NewEncoder(r.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case output.ModeYAML:
		return yaml.NewEncoder(r.Writer()).Encode(rows)
	case output.ModeMarkdown:
		return renderTablesMarkdown(r, rows, opts.DryRun)
	default:
		return renderTablesText(r, rows, opts.DryRun)
	}
}

func renderTablesText(r *output.Renderer, rows []patch.Row, withUses bool) error {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)

	header := table.Row{"Table", "Key", "Value"}
	if withUses {
		header = append(header, "Uses")
	}
	t.AppendHeader(header)
	for _, row := range rows {
		tr := table.Row{row.Table, row.Key, row.Value}
		if withUses {
			tr = append(tr, row.Uses)
		}
		t.AppendRow(tr)
	}
	t.Render()
	r.Printf("%d entries\n", len(rows))
	return nil
}

func renderTablesMarkdown(r *output.Renderer, rows []patch.Row, withUses bool) error {
	r.Println(output.FormatHeader(1, "Patch tables"))
	r.Println("")
	if withUses {
		r.Println("| Table | Key | Value | Uses |")
		r.Println("|-------|-----|-------|------|")
	} else {
		r.Println("| Table | Key | Value |")
		r.Println("|-------|-----|-------|")
	}
	for _, row := range rows {
		if withUses {
			r.Printf("| %s | %s | %s | %d |\n", row.Table, row.Key, row.Value, row.Uses)
		} else {
			r.Printf("| %s | %s | %s |\n", row.Table, row.Key, row.Value)
		}
	}
	return nil
}
