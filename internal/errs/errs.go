// Package errs defines the error taxonomy shared by the settlement pipeline.
// Every collaborator returns a kinded error so callers can branch on what went
// wrong instead of matching message strings or HTTP status codes.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping and settlement branching.
type Kind string

const (
	// KindValidation: malformed or missing input (empty cart, unknown
	// installment option). No state was mutated.
	KindValidation Kind = "validation"
	// KindAuth: signature mismatch on an inbound callback. Security relevant.
	KindAuth Kind = "authentication"
	// KindNotFound: unknown order, reservation, or payment identifier.
	KindNotFound Kind = "not_found"
	// KindGateway: the remote gateway call failed or returned non-success.
	KindGateway Kind = "gateway"
	// KindConsistency: stored state disagrees with itself (e.g. a Payment row
	// missing where one was expected).
	KindConsistency Kind = "consistency"
	// KindConflict: the requested transition is not allowed from the current
	// state (e.g. mutating a terminal payment).
	KindConflict Kind = "conflict"
	// KindInternal: everything else.
	KindInternal Kind = "internal"
)

// Error is a kinded error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a kinded error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a kinded error around an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or KindInternal for unkinded errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
