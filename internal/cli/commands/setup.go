package commands

import (
	"log/slog"
	"os"

	"github.com/leapstack-labs/esqlgen/internal/cli/config"
	"github.com/leapstack-labs/esqlgen/internal/cli/output"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration
// and the command's writers.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, falling back to environment
// variables with defaults when no config was loaded (e.g. in tests that
// build a command directly).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		GrammarPath:   getEnvOrDefault("ESQLGEN_GRAMMAR", config.DefaultGrammarPath),
		SnippetsDir:   getEnvOrDefault("ESQLGEN_SNIPPETS_DIR", config.DefaultSnippetsDir),
		OutputPath:    getEnvOrDefault("ESQLGEN_OUTPUT_PATH", config.DefaultOutputPath),
		StatementRule: getEnvOrDefault("ESQLGEN_STATEMENT_RULE", config.DefaultStatementRule),
		OutputFormat:  getEnvOrDefault("ESQLGEN_FORMAT", config.DefaultOutput),
		Verbose:       os.Getenv("ESQLGEN_VERBOSE") == "true",
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
