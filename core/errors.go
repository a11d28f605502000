package core

import (
	"errors"
	"fmt"
)

// Kind discriminates the failure classes surfaced to callers. HTTP and CLI
// layers branch on the kind instead of parsing error text.
type Kind string

const (
	// KindConfiguration marks a missing or malformed credential or setting.
	// The pipeline cannot run until it is fixed.
	KindConfiguration Kind = "configuration"
	// KindUnknownAgent marks a lookup of an agent identifier that is not
	// registered. It is raised before any model call.
	KindUnknownAgent Kind = "unknown_agent"
	// KindProvider marks a failed model call.
	KindProvider Kind = "provider"
)

// Error is the typed error carried across package boundaries.
type Error struct {
	Kind Kind   // failure class
	Op   string // operation that failed, e.g. "registry.get"
	Err  error  // underlying cause (may be nil)
}

// Sentinels for errors.Is matching on kind only.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrUnknownAgent  = &Error{Kind: KindUnknownAgent}
	ErrProvider      = &Error{Kind: KindProvider}
)

// NewError wraps err with a kind and operation name.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an Error whose cause is formatted from the arguments.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind) + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel (or any Error) of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf returns the Kind of the first *Error in err's chain or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
