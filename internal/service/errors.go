package service

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package matches exactly one of
// these with errors.Is, or is an unexpected infrastructure failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// Error pairs a kind with a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ValidationError carries every rule the input broke.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(violations ...string) error {
	return &ValidationError{Violations: violations}
}

// violations accumulates rule failures for a single input.
type violations []string

func (v *violations) add(format string, args ...any) {
	*v = append(*v, fmt.Sprintf(format, args...))
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return invalid(v...)
}
