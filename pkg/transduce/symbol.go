// Package transduce rewrites a host SQL grammar into the derivative
// embedded-SQL grammar. It consumes the structural event stream from
// pkg/grammar, applies the patch tables from pkg/patch, synthesizes
// text-reconstruction actions, and writes the result through pkg/emit.
package transduce

import "strings"

// SymbolKind classifies a right-hand-side symbol after rename substitution.
type SymbolKind int

const (
	// Terminal is a declared token; its own name is its reconstructed text.
	Terminal SymbolKind = iota
	// Nonterminal carries a reconstructed string value at parse time.
	Nonterminal
	// Literal is quoted punctuation such as ','; the quotes are kept in the
	// rule text and stripped for text reconstruction.
	Literal
)

// Symbol is one element of an alternative's right-hand side.
type Symbol struct {
	Kind SymbolKind
	Text string
}

// literalText is the symbol's contribution to reconstructed statement text.
func (s Symbol) literalText() string {
	if s.Kind == Literal {
		return strings.Trim(s.Text, "'")
	}
	return s.Text
}

// Alternative is one production alternative under construction. It lives
// only until its action is synthesized.
type Alternative struct {
	Owner   string
	Symbols []Symbol

	// Action is the host grammar's original action block, captured verbatim
	// while being skipped. Consulted only for the unsupported-feature
	// marker.
	Action string
}

// reset clears the alternative for the next one in the same rule.
func (a *Alternative) reset() {
	a.Symbols = a.Symbols[:0]
	a.Action = ""
}

// Signature derives the normalized patch-table lookup key for an owner and
// symbol sequence: the owner name and symbol texts joined by single spaces,
// with alternative separators stripped and whitespace collapsed.
func Signature(owner string, symbols []Symbol) string {
	parts := []string{owner}
	for _, s := range symbols {
		text := strings.TrimSpace(s.Text)
		if text == "" || text == "|" {
			continue
		}
		parts = append(parts, strings.Join(strings.Fields(text), " "))
	}
	return strings.Join(parts, " ")
}
