// Package apperr provides tagged application errors so callers can branch
// on the error kind instead of matching message strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind string

const (
	// KindValidation marks bad input shape or range. Raised before any I/O,
	// never retried.
	KindValidation Kind = "validation"

	// KindNotFound marks a missing or cross-workspace entity.
	KindNotFound Kind = "not_found"

	// KindConfiguration marks a fatal misconfiguration (missing API key,
	// unsupported connector type). Fatal for the run, never retried.
	KindConfiguration Kind = "configuration"
)

// Error is an application error with a kind tag.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation creates a validation error from a format string.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound creates a not-found error from a format string.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

// Configuration creates a configuration error from a format string.
func Configuration(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or "" if err carries no kind tag.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsValidation reports whether err is tagged as a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is tagged as a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConfiguration reports whether err is tagged as a configuration error.
func IsConfiguration(err error) bool { return KindOf(err) == KindConfiguration }
