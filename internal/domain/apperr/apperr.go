// Package apperr defines the typed error kinds shared across the core.
//
// Every error the engine, replication log, executor, and watch fan-out can
// surface is one of the kinds below. Callers at the HTTP edge translate a
// Kind into the status code named in the design doc; nothing in this
// package knows about transport.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories the core can produce.
type Kind string

const (
	KindNotFound              Kind = "not-found"
	KindAlreadyExists         Kind = "already-exists"
	KindChangeConflict        Kind = "change-conflict"
	KindRedundantChange       Kind = "redundant-change"
	KindQueryFailure          Kind = "query-failure"
	KindInvalidRequest        Kind = "invalid-request"
	KindForbidden             Kind = "forbidden"
	KindQuotaExceeded         Kind = "quota-exceeded"
	KindReplicationUnavailable Kind = "replication-unavailable"
	KindShuttingDown          Kind = "shutting-down"
	KindUnimplemented         Kind = "unimplemented"
	KindInternal              Kind = "internal"
)

// Error is the concrete type every core-level failure is wrapped in.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around a lower-level cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err, defaulting to KindInternal for anything
// not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}
