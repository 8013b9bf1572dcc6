// Package grammar streams a yacc-style host grammar as a flat sequence of
// structural events. The reader tracks section transitions, nested comments,
// and brace-delimited action blocks so that downstream stages only ever see
// grammar structure, never action code.
package grammar

// EventKind discriminates the structural events produced by the Reader.
type EventKind int

const (
	// BeginDeclarations opens the declarations section. Always first.
	BeginDeclarations EventKind = iota
	// TokenDeclared carries the name of a terminal declared by a
	// token-introducer line (%token, %left, %right, %nonassoc).
	TokenDeclared
	// RawTokenLine carries a token-introducer line verbatim, for the
	// original-token echo section of the output.
	RawTokenLine
	// BeginRules fires on the first %% marker line.
	BeginRules
	// NonterminalDeclared carries the name on the left-hand side of a rule.
	NonterminalDeclared
	// SymbolText carries one right-hand-side symbol, quotes included for
	// character literals.
	SymbolText
	// ActionText carries the verbatim text of a skipped { ... } action
	// block, braces included.
	ActionText
	// AlternativeEnd fires on | between alternatives of one rule.
	AlternativeEnd
	// RuleEnd fires on the ; closing a rule.
	RuleEnd
	// EndOfInput fires once after the rules section ends.
	EndOfInput
)

func (k EventKind) String() string {
	switch k {
	case BeginDeclarations:
		return "BeginDeclarations"
	case TokenDeclared:
		return "TokenDeclared"
	case RawTokenLine:
		return "RawTokenLine"
	case BeginRules:
		return "BeginRules"
	case NonterminalDeclared:
		return "NonterminalDeclared"
	case SymbolText:
		return "SymbolText"
	case ActionText:
		return "ActionText"
	case AlternativeEnd:
		return "AlternativeEnd"
	case RuleEnd:
		return "RuleEnd"
	case EndOfInput:
		return "EndOfInput"
	}
	return "unknown"
}

// Event is one structural event with its approximate source line.
type Event struct {
	Kind EventKind
	Text string
	Line int
}
