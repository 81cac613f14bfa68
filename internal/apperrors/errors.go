// Package apperrors defines the error taxonomy shared by all domain engines.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure.
type Kind int

const (
	// KindValidation marks malformed or missing input, rejected before any write.
	KindValidation Kind = iota
	// KindAuthorization marks an actor not permitted to perform a transition.
	KindAuthorization
	// KindStateConflict marks an entity not in the expected state for a transition.
	KindStateConflict
	// KindNotFound marks a referenced entity that does not exist.
	KindNotFound
	// KindTransient marks a backend failure that is safe to retry.
	KindTransient
)

// Error is a classified domain error.
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

// Validation returns a KindValidation error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Authorization returns a KindAuthorization error.
func Authorization(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Msg: fmt.Sprintf(format, args...)}
}

// StateConflict returns a KindStateConflict error.
func StateConflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindStateConflict, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Transient wraps a backend failure as retryable.
func Transient(err error, msg string) *Error {
	return &Error{Kind: KindTransient, Msg: msg, Err: err}
}

// KindOf extracts the Kind of err, or KindTransient for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
