package transduce

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/esqlgen/pkg/emit"
	"github.com/leapstack-labs/esqlgen/pkg/grammar"
	"github.com/leapstack-labs/esqlgen/pkg/patch"
)

// defaultStatementRule is the distinguished top-level nonterminal whose
// alternatives dispatch whole statements instead of reconstructing text.
const defaultStatementRule = "stmt"

// defaultTypeTag is the result type declared for every nonterminal the
// suppression table does not retype.
const defaultTypeTag = "<str>"

// Stats counts what one pass did, for logging and the --stats surface.
type Stats struct {
	Tokens       int `json:"tokens" yaml:"tokens"`
	Rules        int `json:"rules" yaml:"rules"`
	Alternatives int `json:"alternatives" yaml:"alternatives"`
	Suppressed   int `json:"suppressed" yaml:"suppressed"`
	Overridden   int `json:"overridden" yaml:"overridden"`
	Addons       int `json:"addons" yaml:"addons"`
}

// Builder assembles alternatives from the event stream and drives action
// synthesis at each alternative and rule boundary.
type Builder struct {
	tables  *patch.Tables
	em      *emit.Emitter
	logger  *slog.Logger
	stmtTag string

	tokens map[string]bool

	alt      Alternative
	inRule   bool
	skipRule bool
	stmtMode bool
	emitted  int // alternatives emitted for the current rule

	stats Stats
}

// NewBuilder returns a Builder writing through the given emitter.
func NewBuilder(tables *patch.Tables, em *emit.Emitter, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{
		tables:  tables,
		em:      em,
		logger:  logger,
		stmtTag: defaultStatementRule,
		tokens:  map[string]bool{},
	}
}

// SetStatementRule overrides the name of the top-level statement
// nonterminal.
func (b *Builder) SetStatementRule(name string) {
	b.stmtTag = name
}

// Stats returns the counters accumulated so far.
func (b *Builder) Stats() Stats {
	return b.stats
}

// Process consumes one reader event.
func (b *Builder) Process(ev grammar.Event) error {
	switch ev.Kind {
	case grammar.BeginDeclarations, grammar.BeginRules, grammar.EndOfInput:
		// Section markers carry no rule content.

	case grammar.RawTokenLine:
		b.em.AppendLine(emit.OrigTokens, ev.Text)

	case grammar.TokenDeclared:
		if !b.tokens[ev.Text] {
			b.tokens[ev.Text] = true
			b.stats.Tokens++
		}

	case grammar.NonterminalDeclared:
		b.beginRule(ev.Text)

	case grammar.SymbolText:
		if b.skipRule || !b.inRule {
			return nil
		}
		name := b.tables.Rename(ev.Text)
		b.alt.Symbols = append(b.alt.Symbols, Symbol{Kind: b.classify(name), Text: name})

	case grammar.ActionText:
		if b.skipRule || !b.inRule {
			return nil
		}
		// A rule may carry several action blocks; all of them are consulted
		// for the unsupported-feature marker.
		b.alt.Action += ev.Text

	case grammar.AlternativeEnd:
		if b.skipRule || !b.inRule {
			return nil
		}
		if err := b.synthesize(); err != nil {
			return err
		}
		b.alt.reset()

	case grammar.RuleEnd:
		if b.skipRule {
			b.skipRule = false
			b.inRule = false
			return nil
		}
		// Stray terminators after a closed rule are tolerated, as bison
		// tolerates them.
		if !b.inRule {
			return nil
		}
		if err := b.synthesize(); err != nil {
			return err
		}
		b.closeRule()

	default:
		return fmt.Errorf("unexpected grammar event %s", ev.Kind)
	}
	return nil
}

// beginRule starts a fresh rule, deciding suppression and declaring the
// result type. The suppression table serves double duty as ignore set and
// type-override map: one lookup, one counter.
func (b *Builder) beginRule(owner string) {
	b.inRule = true
	b.emitted = 0
	b.alt = Alternative{Owner: owner}
	b.stmtMode = owner == b.stmtTag

	typeTag := defaultTypeTag
	if entry, ok := b.tables.Suppression(owner); ok {
		entry.Uses++
		if entry.Ignore {
			b.skipRule = true
			b.stats.Suppressed++
			b.logger.Debug("suppressing rule", "rule", owner)
			return
		}
		if entry.Type != "" {
			typeTag = entry.Type
		}
	}
	b.stats.Rules++
	b.em.Appendf(emit.Types, "%%type %s %s\n", typeTag, owner)
}

// closeRule terminates the emitted rule body.
func (b *Builder) closeRule() {
	b.inRule = false
	if b.emitted > 0 {
		b.em.AppendLine(emit.Rules, "\t;")
		b.em.AppendLine(emit.Rules, "")
	}
	b.emitted = 0
	b.alt = Alternative{}
}

// classify decides how a renamed symbol participates in text
// reconstruction. Declared tokens and quoted punctuation reconstruct as
// literal text; everything else is a nonterminal whose parsed value is
// referenced.
func (b *Builder) classify(name string) SymbolKind {
	switch {
	case len(name) > 0 && name[0] == '\'':
		return Literal
	case b.tokens[name]:
		return Terminal
	default:
		return Nonterminal
	}
}
