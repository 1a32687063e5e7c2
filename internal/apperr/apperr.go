// Package apperr defines the error taxonomy shared by the lifecycle service
// and its transports.
package apperr

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Kind classifies an error for callers. Transports map it to status codes.
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindValidation   Kind = "VALIDATION"
	KindConflict     Kind = "CONFLICT"
	KindStorage      Kind = "STORAGE"
)

// Error carries a kind, a user-facing message and the wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Stack   []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Public returns the message safe to show an end user. Storage failures never
// leak the underlying driver text.
func (e *Error) Public() string {
	if e.Kind == KindStorage {
		return "internal storage error"
	}
	return e.Message
}

func New(kind Kind, message string, err error) *Error {
	var stack []byte
	if err != nil {
		var ge *goerrors.Error
		if errors.As(err, &ge) {
			stack = ge.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...), nil)
}

func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, fmt.Sprintf(format, args...), nil)
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...), nil)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...), nil)
}

// Storage wraps a database or connectivity failure.
func Storage(op string, err error) *Error {
	return New(KindStorage, op, err)
}

// KindOf returns the kind of err, or KindStorage for errors outside the
// taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// Is reports whether err belongs to kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Public returns the user-facing message of err.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Public()
	}
	return "internal error"
}
