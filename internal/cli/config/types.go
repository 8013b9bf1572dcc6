// Package config loads esqlgen's layered configuration: defaults, the
// esqlgen.yaml project file, ESQLGEN_ environment variables, and CLI flags,
// in rising precedence.
package config

// Config holds all CLI configuration options.
type Config struct {
	GrammarPath   string `koanf:"grammar"`
	SnippetsDir   string `koanf:"snippets_dir"`
	OutputPath    string `koanf:"output_path"`
	StatementRule string `koanf:"statement_rule"`
	StartRule     string `koanf:"start_rule"`
	Verbose       bool   `koanf:"verbose"`
	OutputFormat  string `koanf:"format"`

	// ProjectRoot anchors relative path resolution; it is the directory the
	// config file was found in, or the working directory.
	ProjectRoot string
}

// Default configuration values.
const (
	DefaultGrammarPath   = "gram.y"
	DefaultSnippetsDir   = "snippets"
	DefaultOutputPath    = "preproc.y"
	DefaultStatementRule = "stmt"
	DefaultOutput        = "auto" // auto-detect: TTY=text, non-TTY=markdown
)
