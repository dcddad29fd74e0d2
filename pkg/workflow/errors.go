package workflow

import (
	"errors"
)

var (
	// ErrParentClosed is returned when opening a level whose parent level
	// has no open session.
	ErrParentClosed = errors.New("workflow: parent level is not open")

	// ErrAlreadyOpen is returned when opening a level that already has an
	// open session.
	ErrAlreadyOpen = errors.New("workflow: level is already open")

	// ErrNotOpen is returned when closing a level that has no open session.
	ErrNotOpen = errors.New("workflow: level is not open")

	// ErrChildOpen is returned when closing a level that still has an open
	// child session and the cascade policy is CascadeRefuse.
	ErrChildOpen = errors.New("workflow: child level is still open")

	// ErrUnbalanced is returned when opening a cash drawer whose ledger does
	// not reconcile against the declared balance.
	ErrUnbalanced = errors.New("workflow: ledger is not balanced")
)

// IsPrecondition reports whether err is one of the local precondition
// failures, as opposed to a backend or store error.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrParentClosed) ||
		errors.Is(err, ErrAlreadyOpen) ||
		errors.Is(err, ErrNotOpen) ||
		errors.Is(err, ErrChildOpen) ||
		errors.Is(err, ErrUnbalanced)
}
