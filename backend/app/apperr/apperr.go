// Package apperr defines the error kinds surfaced to operators: a missing
// target/ledger/file, a duplicate target or version, bad input and failed
// authentication. Everything else is Internal.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindAlreadyExists Kind = "already_exists"
	KindValidation    Kind = "validation"
	KindAuth          Kind = "auth"
	KindInternal      Kind = "internal"
)

// Sentinels for errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrAuth          = errors.New("authentication failed")
	ErrInternal      = errors.New("internal error")
)

type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = sentinel(e.Kind).Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == sentinel(e.Kind) }

func sentinel(k Kind) error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindAlreadyExists:
		return ErrAlreadyExists
	case KindValidation:
		return ErrValidation
	case KindAuth:
		return ErrAuth
	default:
		return ErrInternal
	}
}

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) *Error {
	return newError(KindNotFound, op, format, args...)
}

func AlreadyExists(op, format string, args ...any) *Error {
	return newError(KindAlreadyExists, op, format, args...)
}

func Validation(op, format string, args ...any) *Error {
	return newError(KindValidation, op, format, args...)
}

func Auth(op, format string, args ...any) *Error {
	return newError(KindAuth, op, format, args...)
}

// Internal wraps an unexpected error. A nil err yields nil.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf reports the kind of err; errors not created here are Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Message returns the operator-facing text without the op prefix.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Msg != "" {
		return ae.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
