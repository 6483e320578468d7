// Package fault defines the error taxonomy shared by every domain service:
// NotFound, Conflict, Forbidden, BadRequest and Unauthorized. Services return
// these directly; a single echo error handler maps them to HTTP responses.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure.
type Kind int

const (
	// Internal is any failure not covered by the taxonomy.
	Internal Kind = iota
	// NotFound means a referenced entity is absent.
	NotFound
	// Conflict means a uniqueness or single-active-row invariant was violated.
	Conflict
	// Forbidden means a role or hospital-scope mismatch.
	Forbidden
	// BadRequest means a malformed relationship or invalid input.
	BadRequest
	// Unauthorized means missing or invalid credentials.
	Unauthorized
)

// Error is a classified domain error with a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: NotFound, Msg: fmt.Sprintf(format, args...)}
}

// Conflictf builds a Conflict error.
func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: Conflict, Msg: fmt.Sprintf(format, args...)}
}

// Forbiddenf builds a Forbidden error.
func Forbiddenf(format string, args ...interface{}) *Error {
	return &Error{Kind: Forbidden, Msg: fmt.Sprintf(format, args...)}
}

// BadRequestf builds a BadRequest error.
func BadRequestf(format string, args ...interface{}) *Error {
	return &Error{Kind: BadRequest, Msg: fmt.Sprintf(format, args...)}
}

// Unauthorizedf builds an Unauthorized error.
func Unauthorizedf(format string, args ...interface{}) *Error {
	return &Error{Kind: Unauthorized, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a classified error.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or Internal when err is not a fault.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}

// Is reports whether err is a fault of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a fault kind to the wire status. Conflicts surface as 400,
// matching the contract callers already depend on.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case NotFound:
		return http.StatusNotFound
	case Conflict, BadRequest:
		return http.StatusBadRequest
	case Forbidden:
		return http.StatusForbidden
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
