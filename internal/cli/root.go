// Package cli provides the command-line interface for esqlgen.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/esqlgen/internal/cli/commands"
	"github.com/leapstack-labs/esqlgen/internal/cli/config"
	"github.com/leapstack-labs/esqlgen/pkg/grammar"
	"github.com/leapstack-labs/esqlgen/pkg/patch"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Exit codes. Structural grammar errors and each patch integrity violation
// kind get their own code so build scripts can tell a broken grammar from a
// stale table entry, an ambiguous one, or a duplicated addon tag.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitGrammar      = 2
	ExitUnused       = 3
	ExitAmbiguous    = 4
	ExitDuplicateTag = 5
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "esqlgen",
		Short: "esqlgen - Embedded-SQL preprocessor grammar generator",
		Long: `esqlgen rewrites the host SQL grammar into the grammar of the
embedded-SQL preprocessor.

It reads the host grammar and a set of declarative patch tables, synthesizes
text-reconstruction actions for every production, and emits the derivative
grammar. Every patch table entry must match exactly one production, so the
tables can never silently drift from the grammar.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			}))
			cmd.SetContext(context.WithValue(cmd.Context(), config.LoggerKey(), logger))

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Embedded-SQL preprocessor grammar generator
`)

	// Global persistent flags.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./esqlgen.yaml)")
	rootCmd.PersistentFlags().String("grammar", "", "Path to the host grammar file")
	rootCmd.PersistentFlags().String("snippets-dir", "", "Directory with snippet fragments and patch tables")
	rootCmd.PersistentFlags().String("statement-rule", "", "Name of the top-level statement nonterminal")
	rootCmd.PersistentFlags().String("start-rule", "", "Start-symbol binding rule for the output grammar")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("format", "f", "", "Output format (auto|text|markdown|json|yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewTablesCommand())

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitCode(err)
	}
	return ExitOK
}

// ExitCode maps an error to the process exit code for its category.
func ExitCode(err error) int {
	var (
		unterminatedComment *grammar.UnterminatedCommentError
		unterminatedAction  *grammar.UnterminatedActionError
		unterminatedRule    *grammar.UnterminatedRuleError
		integrity           *patch.IntegrityError
		duplicateTag        *patch.DuplicateAddonTagError
	)
	switch {
	case errors.As(err, &unterminatedComment),
		errors.As(err, &unterminatedAction),
		errors.As(err, &unterminatedRule):
		return ExitGrammar
	case errors.As(err, &integrity):
		if integrity.Unused() {
			return ExitUnused
		}
		return ExitAmbiguous
	case errors.As(err, &duplicateTag):
		return ExitDuplicateTag
	default:
		return ExitFailure
	}
}
