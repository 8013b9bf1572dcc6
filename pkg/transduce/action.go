package transduce

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/esqlgen/pkg/emit"
	"github.com/leapstack-labs/esqlgen/pkg/patch"
)

// unsupportedMarker flags host actions that reject a construct outright.
// The derivative grammar accepts the construct and forwards it, so those
// alternatives get a warning prepended instead.
const unsupportedMarker = "FEATURE_NOT_SUPPORTED"

// guardMarker suppresses the warning when the rejection is conditional in
// the host action.
const guardMarker = "ifndef"

// createAsExecuteRule is the one production exempted from the
// unsupported-feature warning even when its host action carries the marker.
// A literal named exception, kept as-is; revisit if the host grammar
// restructures CREATE TABLE AS EXECUTE.
const createAsExecuteRule = "CreateAsStmt"

const unsupportedWarning = `mmerror(PARSE_ERROR, ET_WARNING, "unsupported feature will be passed to server");`

// synthesize finishes the current alternative: applies override and addon
// patches, emits its rule text, and emits its action.
func (b *Builder) synthesize() error {
	alt := &b.alt
	symbols := alt.Symbols
	sig := Signature(alt.Owner, symbols)

	if entry, ok := b.tables.Override(sig); ok {
		entry.Uses++
		b.stats.Overridden++
		if entry.Ignore {
			b.logger.Debug("dropping alternative", "signature", sig)
			return nil
		}
		symbols = b.parseReplacement(entry.Replacement)
		// The replacement is the alternative now; the addon lookup below
		// must see its signature, not the original one.
		sig = Signature(alt.Owner, symbols)
	}

	b.emitRuleText(alt.Owner, symbols)
	b.stats.Alternatives++

	var body []string
	if b.stmtMode {
		body = b.statementAction(symbols)
	} else {
		body = b.defaultAction(alt, symbols)
	}

	var trailing []string
	if entry, ok := b.tables.Addon(sig); ok {
		entry.Uses++
		b.stats.Addons++
		switch entry.Kind {
		case patch.KindBlock:
			b.emitRawAction(entry.Lines)
			return nil
		case patch.KindAddon:
			body = append(append([]string{}, entry.Lines...), body...)
		case patch.KindRule:
			trailing = entry.Lines
		}
	}

	b.emitAction(body)
	for _, line := range trailing {
		b.em.AppendLine(emit.Rules, "\t"+line)
	}
	return nil
}

// statementAction dispatches a parsed top-level statement to the statement
// sink; the empty production yields the null statement.
func (b *Builder) statementAction(symbols []Symbol) []string {
	if len(symbols) == 0 {
		return []string{"$$ = NULL;"}
	}
	return []string{"output_statement($1);"}
}

// defaultAction reconstructs the alternative's source text: maximal runs of
// literal-valued symbols merge into one quoted string each, interleaved with
// references to nonterminal results.
func (b *Builder) defaultAction(alt *Alternative, symbols []Symbol) []string {
	var body []string
	if b.warnUnsupported(alt) {
		body = append(body, unsupportedWarning)
	}
	body = append(body, assignment(mergeSymbols(symbols)))
	return body
}

// warnUnsupported reports whether the host action rejected this construct
// unconditionally, minus the named exemption.
func (b *Builder) warnUnsupported(alt *Alternative) bool {
	return strings.Contains(alt.Action, unsupportedMarker) &&
		!strings.Contains(alt.Action, guardMarker) &&
		alt.Owner != createAsExecuteRule
}

// element is one unit of a merged symbol sequence: either a literal text
// run or a $N reference to a nonterminal result.
type element struct {
	ref  int // 1-based symbol position; 0 for a literal run
	text string
}

// mergeSymbols collapses consecutive non-result-bearing symbols into single
// literal runs. Reference numbering keeps the original symbol positions.
func mergeSymbols(symbols []Symbol) []element {
	var merged []element
	var run []string
	flush := func() {
		if len(run) > 0 {
			merged = append(merged, element{text: strings.Join(run, " ")})
			run = nil
		}
	}
	for i, s := range symbols {
		if s.Kind == Nonterminal {
			flush()
			merged = append(merged, element{ref: i + 1})
			continue
		}
		run = append(run, s.literalText())
	}
	flush()
	return merged
}

// assignment renders the default reconstruction statement for a merged
// sequence: a direct assignment when it has one element, a concatenation
// call otherwise.
func assignment(merged []element) string {
	switch len(merged) {
	case 0:
		return `$$ = mm_strdup("");`
	case 1:
		return "$$ = " + merged[0].render() + ";"
	}
	args := make([]string, 0, len(merged)+1)
	args = append(args, strconv.Itoa(len(merged)))
	for _, el := range merged {
		args = append(args, el.render())
	}
	return "$$ = cat_str(" + strings.Join(args, ", ") + ");"
}

func (el element) render() string {
	if el.ref > 0 {
		return "$" + strconv.Itoa(el.ref)
	}
	return `mm_strdup("` + escapeLiteral(el.text) + `")`
}

func escapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// parseReplacement turns override replacement text into a symbol sequence.
// Replacement symbols are taken literally; the rename table does not apply
// to them.
func (b *Builder) parseReplacement(text string) []Symbol {
	fields := strings.Fields(text)
	symbols := make([]Symbol, 0, len(fields))
	for _, f := range fields {
		symbols = append(symbols, Symbol{Kind: b.classify(f), Text: f})
	}
	return symbols
}

// emitRuleText writes the alternative's symbol sequence, with the rule
// header on the first emitted alternative and a | separator afterwards.
func (b *Builder) emitRuleText(owner string, symbols []Symbol) {
	texts := make([]string, 0, len(symbols))
	for _, s := range symbols {
		texts = append(texts, s.Text)
	}
	line := strings.Join(texts, " ")
	if b.emitted == 0 {
		if line == "" {
			b.em.AppendLine(emit.Rules, owner+":")
		} else {
			b.em.AppendLine(emit.Rules, owner+": "+line)
		}
	} else {
		if line == "" {
			b.em.AppendLine(emit.Rules, "\t|")
		} else {
			b.em.AppendLine(emit.Rules, "\t| "+line)
		}
	}
	b.emitted++
}

// emitAction writes a synthesized action: one-liner for a single statement,
// indented block otherwise.
func (b *Builder) emitAction(body []string) {
	if len(body) == 1 {
		b.em.AppendLine(emit.Rules, "\t{ "+body[0]+" }")
		return
	}
	b.em.AppendLine(emit.Rules, "\t{")
	for _, line := range body {
		b.em.AppendLine(emit.Rules, "\t\t"+strings.TrimRight(line, " \t"))
	}
	b.em.AppendLine(emit.Rules, "\t}")
}

// emitRawAction writes a block addon's body verbatim; the body carries its
// own braces.
func (b *Builder) emitRawAction(lines []string) {
	for _, line := range lines {
		b.em.AppendLine(emit.Rules, line)
	}
}
