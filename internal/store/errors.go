// Package store provides database access methods for shopdesk entities.
// Each store struct wraps a *sql.DB and exposes typed query methods that
// enforce ownership and uniqueness invariants at the application layer.
package store

import "errors"

// Kind classifies store errors so the HTTP layer can map them to status
// codes without inspecting message strings.
type Kind int

const (
	// KindNotFound means the referenced entity does not exist.
	KindNotFound Kind = iota + 1
	// KindConflict means a uniqueness or structural invariant was violated.
	KindConflict
	// KindForbidden means the caller does not own the resource.
	KindForbidden
	// KindInvalid means malformed input was rejected before touching the database.
	KindInvalid
)

// Error is a store-level failure with a caller-facing message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// NotFound returns a KindNotFound error.
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Msg: msg} }

// Conflict returns a KindConflict error.
func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Msg: msg} }

// Forbidden returns a KindForbidden error.
func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Msg: msg} }

// Invalid returns a KindInvalid error.
func Invalid(msg string) *Error { return &Error{Kind: KindInvalid, Msg: msg} }

// KindOf returns the Kind of err, or 0 if err is not a store Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
