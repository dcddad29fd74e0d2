package session

import (
	"fmt"
	"unicode"
)

// maxKeyLength bounds key size across all store implementations.
const maxKeyLength = 250

// ValidateKey checks a store key against the library's rules: non-empty,
// at most 250 bytes, no control characters, no whitespace.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: key longer than %d bytes", ErrInvalidKey, maxKeyLength)
	}
	for _, r := range key {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return fmt.Errorf("%w: key contains control or whitespace character", ErrInvalidKey)
		}
	}
	return nil
}

// Namespace builds colon-separated keys under a fixed prefix, keeping key
// naming consistent between the workflow levels.
type Namespace struct {
	prefix string
}

// NewNamespace creates a namespace with the given prefix (e.g., "cashdesk").
func NewNamespace(prefix string) Namespace {
	return Namespace{prefix: prefix}
}

// Key joins the namespace prefix and parts with ":".
// Example: NewNamespace("cashdesk").Key("agency", "session_id")
// -> "cashdesk:agency:session_id".
func (n Namespace) Key(parts ...string) string {
	key := n.prefix
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

// Sub returns a namespace one level deeper.
func (n Namespace) Sub(part string) Namespace {
	return Namespace{prefix: n.Key(part)}
}
