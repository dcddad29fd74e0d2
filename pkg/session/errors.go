package session

import (
	"errors"
)

// Common store errors. Implementations return these sentinels (possibly
// wrapped) so callers can branch with errors.Is.
var (
	// ErrKeyNotFound is returned when a requested key does not exist.
	ErrKeyNotFound = errors.New("session: key not found")

	// ErrInvalidKey is returned when a key is empty, too long, or contains
	// control or whitespace characters.
	ErrInvalidKey = errors.New("session: invalid key")

	// ErrStoreClosed is returned when an operation is attempted on a
	// closed store.
	ErrStoreClosed = errors.New("session: store closed")
)

// IsNotFound checks if the given error indicates a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
