// internal/apperr/apperr.go
//
// Error kinds shared by the moderation services and the HTTP surface.
//
// Context
// -------
// Services return *Error values tagged with a Kind.  Callers test the kind
// with errors.Is(err, apperr.NotFound) and the admin handlers translate it
// into an HTTP status with Status.  Anything without a kind is treated as
// an internal fault.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and transport mapping.
type Kind int

const (
	Internal Kind = iota
	NotFound
	InvalidArgument
	Forbidden
	Conflict
	Unavailable
)

var kindNames = map[Kind]string{
	Internal:        "internal",
	NotFound:        "not_found",
	InvalidArgument: "invalid_argument",
	Forbidden:       "forbidden",
	Conflict:        "conflict",
	Unavailable:     "unavailable",
}

// String returns the wire code used in JSON error bodies.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "internal"
}

// Error lets a Kind act as an errors.Is target.
func (k Kind) Error() string { return k.String() }

// Error is a classified failure.  Msg is safe to show to callers; Err is
// the optional underlying cause and is never rendered on the wire.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the same Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// New builds a classified error with a formatted message.
func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause under k.
func Wrap(k Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message returns the caller-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return http.StatusText(http.StatusInternalServerError)
}

// Status maps a Kind to an HTTP status code.
func Status(k Kind) int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case InvalidArgument:
		return http.StatusBadRequest
	case Forbidden:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
