// Package emit accumulates the output grammar in named ordered buffers and
// flushes them once, in canonical section order, after the whole pass has
// succeeded.
package emit

import (
	"fmt"
	"io"
	"strings"
)

// Buffer identifies one of the six output sections.
type Buffer int

const (
	Header Buffer = iota
	Tokens
	Types
	OrigTokens
	Rules
	Trailer
	numBuffers
)

func (b Buffer) String() string {
	switch b {
	case Header:
		return "header"
	case Tokens:
		return "tokens"
	case Types:
		return "types"
	case OrigTokens:
		return "original tokens"
	case Rules:
		return "rules"
	case Trailer:
		return "trailer"
	}
	return "unknown"
}

// flushOrder is the fixed section sequence of the derivative grammar. The
// %% separator and the start-symbol binding rule are written between the
// original-token echo and the rule bodies.
var flushOrder = []Buffer{Header, Tokens, Types, OrigTokens, Rules, Trailer}

// Emitter owns the output buffers. Append-only during the pass; Flush is
// called exactly once, after the integrity check.
type Emitter struct {
	bufs [numBuffers]strings.Builder

	// StartRule is the start-symbol binding rule emitted right after the %%
	// separator, binding the derivative grammar's entry point to the host
	// statement list.
	StartRule string
}

// New returns an Emitter with the default start-symbol binding.
func New() *Emitter {
	return &Emitter{StartRule: "prog: statements;"}
}

// Append adds text to a buffer verbatim.
func (e *Emitter) Append(b Buffer, text string) {
	e.bufs[b].WriteString(text)
}

// AppendLine adds text to a buffer followed by a newline.
func (e *Emitter) AppendLine(b Buffer, text string) {
	e.bufs[b].WriteString(text)
	e.bufs[b].WriteByte('\n')
}

// Appendf adds formatted text to a buffer.
func (e *Emitter) Appendf(b Buffer, format string, args ...any) {
	fmt.Fprintf(&e.bufs[b], format, args...)
}

// Len reports the accumulated size of a buffer.
func (e *Emitter) Len(b Buffer) int {
	return e.bufs[b].Len()
}

// Flush writes all buffers in canonical order, each preceded by a marker
// comment naming it. Rules are preceded by the section separator and the
// start-symbol binding.
func (e *Emitter) Flush(w io.Writer) error {
	for _, b := range flushOrder {
		if b == Rules {
			if _, err := fmt.Fprintf(w, "%%%%\n%s\n\n", e.StartRule); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "/* === %s === */\n", b); err != nil {
			return err
		}
		text := e.bufs[b].String()
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
		if text != "" && !strings.HasSuffix(text, "\n") {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
