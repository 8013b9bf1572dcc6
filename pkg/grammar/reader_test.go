package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain pulls events until EndOfInput.
func drain(t *testing.T, input string) []Event {
	t.Helper()
	r := NewReader(input)
	var events []Event
	for {
		ev, err := r.Next()
		require.NoError(t, err)
		events = append(events, ev)
		if ev.Kind == EndOfInput {
			return events
		}
	}
}

// kinds projects the event kinds for shape assertions.
func kinds(events []Event) []EventKind {
	ks := make([]EventKind, len(events))
	for i, ev := range events {
		ks[i] = ev.Kind
	}
	return ks
}

func TestReaderSimpleGrammar(t *testing.T) {
	events := drain(t, `%token FOO BAR
%%
widget: FOO FOO ;
`)

	assert.Equal(t, []EventKind{
		BeginDeclarations,
		RawTokenLine,
		TokenDeclared, TokenDeclared,
		BeginRules,
		NonterminalDeclared,
		SymbolText, SymbolText,
		RuleEnd,
		EndOfInput,
	}, kinds(events))

	assert.Equal(t, "FOO", events[2].Text)
	assert.Equal(t, "BAR", events[3].Text)
	assert.Equal(t, "widget", events[5].Text)
	assert.Equal(t, "%token FOO BAR", events[1].Text)
}

func TestReaderAlternatives(t *testing.T) {
	events := drain(t, `%%
expr: A | B C | ;
`)

	assert.Equal(t, []EventKind{
		BeginDeclarations,
		BeginRules,
		NonterminalDeclared,
		SymbolText,
		AlternativeEnd,
		SymbolText, SymbolText,
		AlternativeEnd,
		RuleEnd,
		EndOfInput,
	}, kinds(events))
}

func TestReaderSkipsActions(t *testing.T) {
	events := drain(t, `%%
expr: A { $$ = cat_str(2, $1, mm_strdup("x")); } B ;
`)

	var symbols, actions []string
	for _, ev := range events {
		switch ev.Kind {
		case SymbolText:
			symbols = append(symbols, ev.Text)
		case ActionText:
			actions = append(actions, ev.Text)
		}
	}
	assert.Equal(t, []string{"A", "B"}, symbols)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0], "cat_str")
}

func TestReaderNestedBracesInAction(t *testing.T) {
	events := drain(t, `%%
expr: A { if (x) { y(); } else { z(); } } ;
`)

	var action string
	for _, ev := range events {
		if ev.Kind == ActionText {
			action = ev.Text
		}
	}
	assert.Equal(t, "{ if (x) { y(); } else { z(); } }", action)
}

func TestReaderBracesInsideStringsDoNotNest(t *testing.T) {
	events := drain(t, `%%
expr: A { s = "}"; c = '}'; } ;
`)

	var action string
	for _, ev := range events {
		if ev.Kind == ActionText {
			action = ev.Text
		}
	}
	assert.Equal(t, `{ s = "}"; c = '}'; }`, action)
}

func TestReaderCommentsSkippedEverywhere(t *testing.T) {
	events := drain(t, `%token FOO /* not BAR */
/* whole /* nested */ comment line */
%%
expr: /* leading */ FOO /* trailing */ ;
`)

	var declared, symbols []string
	for _, ev := range events {
		switch ev.Kind {
		case TokenDeclared:
			declared = append(declared, ev.Text)
		case SymbolText:
			symbols = append(symbols, ev.Text)
		}
	}
	assert.Equal(t, []string{"FOO"}, declared)
	assert.Equal(t, []string{"FOO"}, symbols)
}

func TestReaderRawTokenLineEchoesSource(t *testing.T) {
	events := drain(t, "%token FOO /* not BAR */ BAZ\n%%\nx: FOO ;\n")

	var raw string
	var declared []string
	for _, ev := range events {
		switch ev.Kind {
		case RawTokenLine:
			raw = ev.Text
		case TokenDeclared:
			declared = append(declared, ev.Text)
		}
	}
	assert.Equal(t, "%token FOO /* not BAR */ BAZ", raw, "echo keeps the physical line")
	assert.Equal(t, []string{"FOO", "BAZ"}, declared, "comment text never declares tokens")
}

func TestReaderCharLiteralSymbol(t *testing.T) {
	events := drain(t, `%%
list: list ',' item ;
`)

	var symbols []string
	for _, ev := range events {
		if ev.Kind == SymbolText {
			symbols = append(symbols, ev.Text)
		}
	}
	assert.Equal(t, []string{"list", "','", "item"}, symbols)
}

func TestReaderTypeAnnotationsDiscarded(t *testing.T) {
	events := drain(t, `%token <ival> ICONST PARAM
%%
x: ICONST ;
`)

	var declared []string
	for _, ev := range events {
		if ev.Kind == TokenDeclared {
			declared = append(declared, ev.Text)
		}
	}
	assert.Equal(t, []string{"ICONST", "PARAM"}, declared)
}

func TestReaderSecondMarkerEndsRules(t *testing.T) {
	events := drain(t, `%%
a: X ;
%%
this is epilogue text and must never be parsed ;
`)

	assert.Equal(t, []EventKind{
		BeginDeclarations,
		BeginRules,
		NonterminalDeclared,
		SymbolText,
		RuleEnd,
		EndOfInput,
	}, kinds(events))
}

func TestReaderPrecAnnotationDropped(t *testing.T) {
	events := drain(t, `%%
expr: a '-' b %prec UMINUS ;
`)

	var symbols []string
	for _, ev := range events {
		if ev.Kind == SymbolText {
			symbols = append(symbols, ev.Text)
		}
	}
	assert.Equal(t, []string{"a", "'-'", "b"}, symbols)
}

func TestReaderUnterminatedComment(t *testing.T) {
	r := NewReader("%token FOO /* runs off the end\n")
	_, err := r.Next() // BeginDeclarations
	require.NoError(t, err)
	_, err = r.Next()

	var unterminated *UnterminatedCommentError
	require.ErrorAs(t, err, &unterminated)
	assert.Equal(t, 1, unterminated.Line)
}

func TestReaderUnterminatedAction(t *testing.T) {
	input := `%%
expr: A { no closing brace
`
	r := NewReader(input)
	var err error
	for err == nil {
		var ev Event
		ev, err = r.Next()
		if err == nil && ev.Kind == EndOfInput {
			t.Fatal("expected an error before EndOfInput")
		}
	}

	var unterminated *UnterminatedActionError
	require.ErrorAs(t, err, &unterminated)
	assert.Equal(t, 2, unterminated.Line)
}

func TestReaderUnterminatedRule(t *testing.T) {
	input := `%%
expr: A B
`
	r := NewReader(input)
	var err error
	for err == nil {
		var ev Event
		ev, err = r.Next()
		if err == nil && ev.Kind == EndOfInput {
			t.Fatal("expected an error before EndOfInput")
		}
	}

	var unterminated *UnterminatedRuleError
	require.ErrorAs(t, err, &unterminated)
	assert.Equal(t, "expr", unterminated.Owner)
}

func TestReaderLineNumbers(t *testing.T) {
	events := drain(t, "%token FOO\n%%\n\n\nwidget: FOO ;\n")

	for _, ev := range events {
		if ev.Kind == NonterminalDeclared {
			assert.Equal(t, 5, ev.Line)
		}
	}
}
