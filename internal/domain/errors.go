package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by the service and transport layers. Callers wrap them
// with fmt.Errorf("...: %w", ErrX) and classify with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrGateway      = errors.New("gateway failure")
	ErrStore        = errors.New("store failure")
)

// Error pairs an error kind with a message that is safe to return to API callers.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Message returns the caller-facing message carried by err, if any.
func Message(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Message, true
	}
	return "", false
}
