// Package apperr defines the failure taxonomy shared by the domain services
// and the HTTP layer.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind classifies a failure.
type Kind uint8

const (
	// KindUnexpected is an infrastructure or persistence failure.
	KindUnexpected Kind = iota
	// KindValidation is bad input shape or range.
	KindValidation
	// KindNotFound is a referenced entity that does not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "unexpected"
	}
}

// Error is a classified failure with a client-safe message. The wrapped
// cause, if any, is never part of Error().
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a KindValidation error.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) error {
	return Validation(fmt.Sprintf(format, args...))
}

// NotFound returns a KindNotFound error.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// NotFoundf is NotFound with formatting.
func NotFoundf(format string, args ...any) error {
	return NotFound(fmt.Sprintf(format, args...))
}

// Unexpected returns a KindUnexpected error that hides cause behind msg.
func Unexpected(msg string, cause error) error {
	return &Error{Kind: KindUnexpected, Message: msg, Err: cause}
}

// KindOf reports the kind of the first *Error in the chain. Unclassified
// errors are KindUnexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// MessageOf returns the client-safe message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
