package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/esqlgen/internal/cli/output"
	"github.com/leapstack-labs/esqlgen/pkg/transduce"
	"github.com/spf13/cobra"
)

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	Grammar  string
	Snippets string
	Out      string
	Watch    bool
	Stats    bool
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}
	cmd := &cobra.Command{
		Use:   "generate [grammar]",
		Short: "Transduce the host grammar into the preprocessor grammar",
		Long: `Read the host SQL grammar and the patch tables, rewrite every
production into a text-reconstruction form, and write the derivative
preprocessor grammar.

The run fails, and writes nothing, if the grammar is structurally broken or
any patch table entry did not match exactly one production.`,
		Example: `  # Generate with paths from esqlgen.yaml
  esqlgen generate

  # Explicit paths
  esqlgen generate gram.y --snippets ./snippets --out preproc.y

  # Re-run whenever the grammar or the patch tables change
  esqlgen generate --watch

  # Print pass statistics
  esqlgen generate --stats`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Grammar = args[0]
			}
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Snippets, "snippets", "", "Directory with snippet fragments and patch tables")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Output grammar file path")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run on input changes")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "Report pass statistics")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *GenerateOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	runOpts := transduce.Options{
		GrammarPath:   cfg.GrammarPath,
		SnippetsDir:   cfg.SnippetsDir,
		OutputPath:    cfg.OutputPath,
		StatementRule: cfg.StatementRule,
		StartRule:     cfg.StartRule,
		Logger:        cmdCtx.Logger,
	}
	if opts.Grammar != "" {
		runOpts.GrammarPath = opts.Grammar
	}
	if opts.Snippets != "" {
		runOpts.SnippetsDir = opts.Snippets
	}
	if opts.Out != "" {
		runOpts.OutputPath = opts.Out
	}

	if opts.Watch {
		return watchGenerate(cmd, cmdCtx, runOpts, opts)
	}

	res, err := transduce.Run(runOpts)
	if err != nil {
		return err
	}
	reportRun(cmdCtx.Renderer, runOpts, res, opts.Stats)
	return nil
}

// reportRun renders the outcome of one successful pass.
func reportRun(r *output.Renderer, runOpts transduce.Options, res *transduce.Result, withStats bool) {
	r.Success(fmt.Sprintf("Wrote %s (%d rules, %d alternatives)",
		runOpts.OutputPath, res.Stats.Rules, res.Stats.Alternatives))
	if !withStats {
		return
	}

	if r.EffectiveMode() == output.ModeJSON {
		enc := json.NewEncoder(r.Writer())
		enc.SetIndent("", "  ")
		_ = enc.Encode(res.Stats)
		return
	}
	r.Printf("  tokens:       %d\n", res.Stats.Tokens)
	r.Printf("  rules:        %d\n", res.Stats.Rules)
	r.Printf("  alternatives: %d\n", res.Stats.Alternatives)
	r.Printf("  suppressed:   %d\n", res.Stats.Suppressed)
	r.Printf("  overridden:   %d\n", res.Stats.Overridden)
	r.Printf("  addons:       %d\n", res.Stats.Addons)
}

// watchGenerate re-runs the transduction whenever the grammar file or the
// snippets directory changes. A failed pass is reported and leaves the
// previous output in place; watching continues.
func watchGenerate(cmd *cobra.Command, cmdCtx *CommandContext, runOpts transduce.Options, opts *GenerateOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(runOpts.GrammarPath)); err != nil {
		return fmt.Errorf("failed to watch grammar dir: %w", err)
	}
	if runOpts.SnippetsDir != "" && runOpts.SnippetsDir != filepath.Dir(runOpts.GrammarPath) {
		if err := watcher.Add(runOpts.SnippetsDir); err != nil {
			return fmt.Errorf("failed to watch snippets dir: %w", err)
		}
	}

	runOnce := func() {
		res, err := transduce.Run(runOpts)
		if err != nil {
			cmdCtx.Renderer.Errorln(fmt.Sprintf("Error: %v", err))
			return
		}
		reportRun(cmdCtx.Renderer, runOpts, res, opts.Stats)
	}

	runOnce()
	cmdCtx.Logger.Info("watching for changes",
		"grammar", runOpts.GrammarPath, "snippets", runOpts.SnippetsDir)

	// Editors fire bursts of events per save; coalesce them.
	const debounce = 200 * time.Millisecond
	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-cmd.Context().Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name == runOpts.OutputPath || event.Name == runOpts.OutputPath+".tmp" {
				continue // our own writes
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Warn("watch error", "error", err)

		case <-pending:
			cmdCtx.Logger.Debug("inputs changed, regenerating")
			runOnce()
		}
	}
}
