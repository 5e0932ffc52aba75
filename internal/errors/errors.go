// Package errors implements ContextForge's error-kind taxonomy. Every
// externally facing operation returns a status union: a result value, or
// an *Error carrying a Kind, a human-readable Message, and structured
// Details. Exceptions from subprocesses or parsers never cross an API
// boundary; they are recovered and converted at the component boundary.
package errors

import (
	"fmt"
	"time"
)

// Kind identifies the category of failure, per spec §7.
type Kind string

const (
	NotFound          Kind = "not_found"
	ValidationError   Kind = "validation_error"
	Conflict          Kind = "conflict"
	NoMatch           Kind = "no_match"
	RegexError        Kind = "regex_error"
	Timeout           Kind = "timeout"
	PermissionDenied  Kind = "permission_denied"
	NotAGitRepository Kind = "not_a_git_repository"
	NoCommits         Kind = "no_commits"
	QueueFull         Kind = "queue_full"
	Unavailable       Kind = "unavailable"
	Internal          Kind = "internal"
)

// Error is the single concrete error type returned across ContextForge's
// component boundaries.
type Error struct {
	Kind       Kind
	Message    string
	Details    map[string]any
	Underlying error
	Timestamp  time.Time
}

// New creates an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
	}
}

// Wrap creates an *Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithDetails attaches structured context and returns e for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithDetail sets a single detail key and returns e for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	ce, ok := err.(*Error)
	if !ok {
		return false
	}
	return ce.Kind == kind
}

// KindOf returns the Kind of err, or Internal if err is not an *Error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if ce, ok := err.(*Error); ok {
		return ce.Kind
	}
	return Internal
}
