package transduce

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/esqlgen/pkg/emit"
	"github.com/leapstack-labs/esqlgen/pkg/grammar"
	"github.com/leapstack-labs/esqlgen/pkg/patch"
)

// Snippet file names looked up in the snippets directory. Each is copied
// verbatim into the buffer it is named after.
const (
	SnippetHeader  = "header.frag"
	SnippetTokens  = "tokens.frag"
	SnippetTypes   = "types.frag"
	SnippetTrailer = "trailer.frag"
)

// Patch table file names looked up in the snippets directory when no
// explicit paths are configured.
const (
	FileRenames   = "token.rename"
	FileTypes     = "rules.types"
	FileOverrides = "rules.overrides"
	FileAddons    = "rules.addons"
)

// Snippets holds the verbatim pass-through texts for the output sections
// that are not derived from the host grammar.
type Snippets struct {
	Header  string
	Tokens  string
	Types   string
	Trailer string
}

// Config tunes one transduction pass.
type Config struct {
	// StatementRule names the top-level statement nonterminal. Empty means
	// "stmt".
	StatementRule string
	// StartRule overrides the start-symbol binding emitted after the %%
	// separator.
	StartRule string
	Snippets  Snippets
	Logger    *slog.Logger
}

// Generate runs the whole transformation over in-memory inputs and returns
// the derivative grammar text. Nothing is returned on error: a partially
// rewritten grammar must never reach a parser generator.
func Generate(grammarText string, tables *patch.Tables, cfg Config) (string, Stats, error) {
	em := emit.New()
	if cfg.StartRule != "" {
		em.StartRule = cfg.StartRule
	}
	em.Append(emit.Header, cfg.Snippets.Header)
	em.Append(emit.Tokens, cfg.Snippets.Tokens)
	em.Append(emit.Types, cfg.Snippets.Types)
	em.Append(emit.Trailer, cfg.Snippets.Trailer)

	b := NewBuilder(tables, em, cfg.Logger)
	if cfg.StatementRule != "" {
		b.SetStatementRule(cfg.StatementRule)
	}

	r := grammar.NewReader(grammarText)
	for {
		ev, err := r.Next()
		if err != nil {
			return "", b.Stats(), err
		}
		if err := b.Process(ev); err != nil {
			return "", b.Stats(), err
		}
		if ev.Kind == grammar.EndOfInput {
			break
		}
	}

	// Hard barrier: counters are final here, and output exists only if
	// every patch entry fired exactly once.
	if err := tables.Check(); err != nil {
		return "", b.Stats(), err
	}

	var out strings.Builder
	if err := em.Flush(&out); err != nil {
		return "", b.Stats(), err
	}
	return out.String(), b.Stats(), nil
}

// Options names the file inputs and output of a full run.
type Options struct {
	GrammarPath string
	SnippetsDir string
	OutputPath  string

	// Patches overrides the default per-file lookup in SnippetsDir.
	Patches *patch.Sources

	StatementRule string
	StartRule     string
	Logger        *slog.Logger
}

// Result is what a successful run produced.
type Result struct {
	Stats  Stats
	Tables *patch.Tables
	Output string
}

// DefaultSources returns the patch sources found in a snippets directory.
// Missing files simply leave their table empty.
func DefaultSources(dir string) patch.Sources {
	lookup := func(name string) string {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			return ""
		}
		return path
	}
	return patch.Sources{
		Renames:   lookup(FileRenames),
		Types:     lookup(FileTypes),
		Overrides: lookup(FileOverrides),
		Addons:    lookup(FileAddons),
	}
}

// Run executes one batch transduction: load patch tables and snippets, read
// the host grammar, generate, and atomically write the output file. The
// output path gets a complete file or nothing.
func Run(opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sources := DefaultSources(opts.SnippetsDir)
	if opts.Patches != nil {
		sources = *opts.Patches
	}
	tables, err := patch.Load(sources)
	if err != nil {
		return nil, err
	}

	snippets, err := loadSnippets(opts.SnippetsDir)
	if err != nil {
		return nil, err
	}

	grammarText, err := os.ReadFile(opts.GrammarPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read grammar %s: %w", opts.GrammarPath, err)
	}

	output, stats, err := Generate(string(grammarText), tables, Config{
		StatementRule: opts.StatementRule,
		StartRule:     opts.StartRule,
		Snippets:      snippets,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	if opts.OutputPath != "" {
		if err := writeAtomic(opts.OutputPath, output); err != nil {
			return nil, err
		}
	}

	logger.Info("grammar transduced",
		"grammar", opts.GrammarPath,
		"output", opts.OutputPath,
		"rules", stats.Rules,
		"alternatives", stats.Alternatives)

	return &Result{Stats: stats, Tables: tables, Output: output}, nil
}

// loadSnippets reads the pass-through fragments. Absent files contribute
// empty sections.
func loadSnippets(dir string) (Snippets, error) {
	if dir == "" {
		return Snippets{}, nil
	}
	read := func(name string) (string, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				return "", nil
			}
			return "", fmt.Errorf("failed to read snippet %s: %w", name, err)
		}
		return string(data), nil
	}

	var s Snippets
	var err error
	if s.Header, err = read(SnippetHeader); err != nil {
		return s, err
	}
	if s.Tokens, err = read(SnippetTokens); err != nil {
		return s, err
	}
	if s.Types, err = read(SnippetTypes); err != nil {
		return s, err
	}
	if s.Trailer, err = read(SnippetTrailer); err != nil {
		return s, err
	}
	return s, nil
}

// writeAtomic writes via a temp file and rename so a failed run leaves any
// previous output intact.
func writeAtomic(path, content string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write output %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finalize output %s: %w", path, err)
	}
	return nil
}
