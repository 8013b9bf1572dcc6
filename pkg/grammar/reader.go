package grammar

import "strings"

// section is the reader's position within the two-section grammar format.
type section int

const (
	sectDeclarations section = iota
	sectRules
	sectDone
)

// sectionMarker separates declarations from rules, and rules from the
// epilogue. The first occurrence begins the rules section, the second ends
// it.
const sectionMarker = "%%"

// tokenIntroducers are the declaration directives whose bare names declare
// terminals.
var tokenIntroducers = []string{"%token", "%left", "%right", "%nonassoc"}

// Reader produces the structural event stream for one grammar text. Events
// are pulled one at a time with Next; the reader never looks at the input
// beyond what the returned events required.
type Reader struct {
	input string
	pos   int
	line  int

	sect   section
	queue  []Event
	inRule bool
	owner  string
	done   bool
}

// NewReader returns a Reader over the full grammar text.
func NewReader(input string) *Reader {
	r := &Reader{input: input, line: 1}
	r.queue = append(r.queue, Event{Kind: BeginDeclarations, Line: 1})
	return r
}

// Next returns the next structural event. After EndOfInput it keeps
// returning EndOfInput.
func (r *Reader) Next() (Event, error) {
	for len(r.queue) == 0 {
		if r.done {
			return Event{Kind: EndOfInput, Line: r.line}, nil
		}
		var err error
		switch r.sect {
		case sectDeclarations:
			err = r.scanDeclarationLine()
		case sectRules:
			err = r.scanRuleToken()
		case sectDone:
			r.finish()
		}
		if err != nil {
			return Event{}, err
		}
	}
	ev := r.queue[0]
	r.queue = r.queue[1:]
	return ev, nil
}

func (r *Reader) emit(kind EventKind, text string, line int) {
	r.queue = append(r.queue, Event{Kind: kind, Text: text, Line: line})
}

func (r *Reader) finish() {
	if !r.done {
		r.done = true
		r.emit(EndOfInput, "", r.line)
	}
}

// scanDeclarationLine consumes one logical line of the declarations section.
// Comments are stripped, and may span lines; the line is treated as ending
// at the first newline outside a comment.
func (r *Reader) scanDeclarationLine() error {
	if r.pos >= len(r.input) {
		r.sect = sectDone
		r.finish()
		return nil
	}

	startLine := r.line
	rawStart := r.pos
	var b strings.Builder
	for r.pos < len(r.input) {
		c := r.input[r.pos]
		if c == '\n' {
			r.pos++
			r.line++
			break
		}
		if c == '/' && r.peekAt(1) == '*' {
			if err := r.skipComment(); err != nil {
				return err
			}
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(c)
		r.pos++
	}

	// The echo carries the physical source text, comments included; the
	// stripped form is only for token extraction.
	rawEnd := r.pos
	if rawEnd > rawStart && r.input[rawEnd-1] == '\n' {
		rawEnd--
	}
	raw := r.input[rawStart:rawEnd]

	trimmed := strings.TrimSpace(b.String())
	switch {
	case trimmed == "":
		// Blank or comment-only line.
	case trimmed == sectionMarker:
		r.sect = sectRules
		r.emit(BeginRules, "", startLine)
	default:
		r.scanTokenLine(raw, trimmed, startLine)
	}
	return nil
}

// scanTokenLine emits TokenDeclared events for a token-introducer line, plus
// the raw line for the echo section. Bracketed type annotations are
// discarded. Non-introducer directives (%type, %start, precedence-only
// lines for literals, ...) produce no events.
func (r *Reader) scanTokenLine(raw, trimmed string, line int) {
	fields := strings.Fields(trimmed)
	introducer := false
	for _, d := range tokenIntroducers {
		if fields[0] == d {
			introducer = true
			break
		}
	}
	if !introducer {
		return
	}

	r.emit(RawTokenLine, raw, line)
	for _, f := range fields[1:] {
		f = strings.TrimSuffix(f, ",")
		if f == "" || strings.HasPrefix(f, "<") {
			continue
		}
		if !isWordStart(f[0]) {
			// Character literals get precedence here but are not named
			// tokens.
			continue
		}
		r.emit(TokenDeclared, f, line)
	}
}

// scanRuleToken consumes input up to the next structural event of the rules
// section.
func (r *Reader) scanRuleToken() error {
	if err := r.skipSpace(); err != nil {
		return err
	}
	if r.pos >= len(r.input) {
		return r.endRules()
	}

	c := r.input[r.pos]
	startLine := r.line
	switch {
	case c == '%':
		if r.peekAt(1) == '%' {
			r.pos += 2
			return r.endRules()
		}
		return r.skipPrecDirective()

	case c == '{':
		text, err := r.readAction()
		if err != nil {
			return err
		}
		r.emit(ActionText, text, startLine)

	case c == '|':
		r.pos++
		r.emit(AlternativeEnd, "|", startLine)

	case c == ';':
		r.pos++
		r.inRule = false
		r.emit(RuleEnd, ";", startLine)

	case c == '\'':
		lit, err := r.readCharLiteral()
		if err != nil {
			return err
		}
		r.emit(SymbolText, lit, startLine)

	case isWordStart(c):
		word := r.readWord()
		if err := r.skipSpace(); err != nil {
			return err
		}
		if r.pos < len(r.input) && r.input[r.pos] == ':' {
			r.pos++
			r.inRule = true
			r.owner = word
			r.emit(NonterminalDeclared, word, startLine)
		} else {
			r.emit(SymbolText, word, startLine)
		}

	default:
		// Stray punctuation passes through as a literal symbol.
		r.pos++
		r.emit(SymbolText, string(c), startLine)
	}
	return nil
}

func (r *Reader) endRules() error {
	if r.inRule {
		return &UnterminatedRuleError{Owner: r.owner, Line: r.line}
	}
	r.sect = sectDone
	r.finish()
	return nil
}

// skipPrecDirective consumes a %prec annotation together with its terminal.
// Other %-directives inside the rules section are consumed and dropped.
func (r *Reader) skipPrecDirective() error {
	r.pos++ // '%'
	word := r.readWord()
	if word != "prec" {
		return nil
	}
	if err := r.skipSpace(); err != nil {
		return err
	}
	r.readWord()
	return nil
}

// skipSpace advances past whitespace and comments.
func (r *Reader) skipSpace() error {
	for r.pos < len(r.input) {
		c := r.input[r.pos]
		switch {
		case c == '\n':
			r.line++
			r.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\v' || c == '\f':
			r.pos++
		case c == '/' && r.peekAt(1) == '*':
			if err := r.skipComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

// skipComment consumes a possibly nested /* ... */ comment. The opening
// delimiter is at the current position.
func (r *Reader) skipComment() error {
	startLine := r.line
	depth := 0
	for r.pos < len(r.input) {
		switch {
		case r.input[r.pos] == '/' && r.peekAt(1) == '*':
			depth++
			r.pos += 2
		case r.input[r.pos] == '*' && r.peekAt(1) == '/':
			depth--
			r.pos += 2
			if depth == 0 {
				return nil
			}
		case r.input[r.pos] == '\n':
			r.line++
			r.pos++
		default:
			r.pos++
		}
	}
	return &UnterminatedCommentError{Line: startLine}
}

// readAction captures a balanced { ... } block verbatim, braces included.
// Braces inside strings, character constants, and comments do not count
// toward the nesting depth.
func (r *Reader) readAction() (string, error) {
	startLine := r.line
	start := r.pos
	depth := 0
	for r.pos < len(r.input) {
		c := r.input[r.pos]
		switch c {
		case '{':
			depth++
			r.pos++
		case '}':
			depth--
			r.pos++
			if depth == 0 {
				return r.input[start:r.pos], nil
			}
		case '\n':
			r.line++
			r.pos++
		case '\'', '"':
			if !r.skipQuoted(c) {
				return "", &UnterminatedActionError{Line: startLine}
			}
		case '/':
			if r.peekAt(1) == '*' {
				if err := r.skipComment(); err != nil {
					return "", err
				}
			} else {
				r.pos++
			}
		default:
			r.pos++
		}
	}
	return "", &UnterminatedActionError{Line: startLine}
}

// skipQuoted consumes a string or character constant, honoring backslash
// escapes. Reports whether the closing quote was found before EOF.
func (r *Reader) skipQuoted(quote byte) bool {
	r.pos++ // opening quote
	for r.pos < len(r.input) {
		c := r.input[r.pos]
		switch c {
		case '\\':
			r.pos += 2
		case '\n':
			r.line++
			r.pos++
		case quote:
			r.pos++
			return true
		default:
			r.pos++
		}
	}
	return false
}

// readCharLiteral reads a 'c' literal at rule level, quotes included.
func (r *Reader) readCharLiteral() (string, error) {
	start := r.pos
	if !r.skipQuoted('\'') {
		return "", &UnterminatedRuleError{Owner: r.owner, Line: r.line}
	}
	return r.input[start:r.pos], nil
}

func (r *Reader) readWord() string {
	start := r.pos
	for r.pos < len(r.input) && isWordChar(r.input[r.pos]) {
		r.pos++
	}
	return r.input[start:r.pos]
}

func (r *Reader) peekAt(offset int) byte {
	if r.pos+offset >= len(r.input) {
		return 0
	}
	return r.input[r.pos+offset]
}

func isWordStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isWordChar(c byte) bool {
	return isWordStart(c) || c >= '0' && c <= '9'
}
