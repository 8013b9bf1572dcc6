package grammar

import "fmt"

// UnterminatedCommentError reports EOF inside a /* ... */ comment.
type UnterminatedCommentError struct {
	Line int
}

func (e *UnterminatedCommentError) Error() string {
	return fmt.Sprintf("unterminated comment starting near line %d", e.Line)
}

// UnterminatedActionError reports EOF inside a { ... } action block.
type UnterminatedActionError struct {
	Line int
}

func (e *UnterminatedActionError) Error() string {
	return fmt.Sprintf("unterminated action block starting near line %d", e.Line)
}

// UnterminatedRuleError reports EOF while a rule is still open (no closing
// semicolon before the end of the rules section).
type UnterminatedRuleError struct {
	Owner string
	Line  int
}

func (e *UnterminatedRuleError) Error() string {
	return fmt.Sprintf("unterminated rule %q near line %d", e.Owner, e.Line)
}
