// Package apperr carries domain failures out of the service layer without
// tying them to a transport. An Error has a Kind, a client-safe Message and an
// optional Cause; the HTTP layer decides which status code a Kind becomes.
package apperr

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "INVALID"
	case KindConflict:
		return "CONFLICT"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause attaches the underlying error. The message shown to clients does
// not change.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Invalid(msg string) *Error {
	return New(KindInvalid, msg)
}

func Conflict(msg string) *Error {
	return New(KindConflict, msg)
}

func NotFound(msg string) *Error {
	return New(KindNotFound, msg)
}

func Internal(msg string) *Error {
	return New(KindInternal, msg)
}

// As reports whether err is (or wraps) an *Error and returns it.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
// when there is none.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
