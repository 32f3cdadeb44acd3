// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. The session controller never returns these to its
// callers; they travel as logged failure reasons and as the Failed status reason.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// so adapters can classify failures without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// LoginFailed indicates interactive authentication failed or was cancelled.
	LoginFailed Kind = "login_failed"
	// PermissionFetchFailed indicates the entitlement service was unreachable or returned an error.
	PermissionFetchFailed Kind = "permission_fetch_failed"
	// LogoutFailed indicates remote session invalidation failed. Local logout still succeeds.
	LogoutFailed Kind = "logout_failed"
	// StorageFailed indicates the secure store could not read or write the session record.
	StorageFailed Kind = "storage_failed"
	// PurgeFailed indicates downloaded content could not be removed.
	PurgeFailed Kind = "purge_failed"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
