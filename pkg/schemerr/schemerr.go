// Package schemerr declares the error kinds used across every compiler
// stage. Propagation is fail-fast: the first error aborts the
// current compilation with a message naming the offending form; nothing is
// retried.
package schemerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// ReadError reports a malformed S-expression, surfaced to the user with the
// byte offset the reader was at when the construct failed to parse.
type ReadError struct {
	Pos    int
	Reason string
	cause  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read error at offset %d: %s", e.Pos, e.Reason)
}

func (e *ReadError) Unwrap() error { return e.cause }

// NewReadError builds a ReadError, wrapping cause (if any) with a stack
// trace via github.com/pkg/errors so the first failure can be diagnosed
// without rerunning the reader under a debugger.
func NewReadError(pos int, reason string, cause error) *ReadError {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &ReadError{Pos: pos, Reason: reason, cause: cause}
}

// SyntaxError reports a malformed core form: duplicate parameter names,
// reserved words in binding/operator position, an improper lambda header,
// or an unknown head symbol.
type SyntaxError struct {
	Reason string
	Form   string // the printed offending form
}

func (e *SyntaxError) Error() string {
	if e.Form == "" {
		return fmt.Sprintf("syntax error: %s", e.Reason)
	}
	return fmt.Sprintf("syntax error: %s, in form %s", e.Reason, e.Form)
}

func NewSyntaxError(reason, form string) *SyntaxError {
	return &SyntaxError{Reason: reason, Form: form}
}

// NotYetImplemented marks a deliberately unsupported construct, such as
// a nested `define` in a non-top-level body position.
type NotYetImplemented struct{ What string }

func (e *NotYetImplemented) Error() string { return fmt.Sprintf("not yet implemented: %s", e.What) }

func NewNotYetImplemented(what string) *NotYetImplemented {
	return &NotYetImplemented{What: what}
}

// Internal marks an invariant violation: a programming error in the
// compiler, not a user error (e.g. a free variable missing from a table
// that must contain it by construction).
type Internal struct {
	What  string
	cause error
}

func (e *Internal) Error() string { return fmt.Sprintf("internal error: %s", e.What) }

func (e *Internal) Unwrap() error { return e.cause }

func NewInternal(what string) *Internal {
	return &Internal{What: what, cause: errors.New(what)}
}
