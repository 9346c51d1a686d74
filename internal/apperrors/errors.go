package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error so the HTTP layer can pick a status code
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindUnauthorized
	KindInvalidInput
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidInput:
		return "invalid_input"
	case KindStorage:
		return "storage_failure"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by repositories and services
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "find budget"
	Msg  string // client-safe message
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a missing (or, for registration, conflicting) entity
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Unauthorized reports bad credentials or a bad token
func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

// InvalidInput reports a request value the service cannot use
func InvalidInput(msg string, err error) error {
	return &Error{Kind: KindInvalidInput, Msg: msg, Err: err}
}

// Storage wraps a failure of the underlying store. It is never retried.
func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Op: op, Msg: "storage failure", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-safe message for err
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Msg != "" {
		return appErr.Msg
	}
	return "internal server error"
}
