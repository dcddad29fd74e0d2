package gateway

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Transport-level gateway errors. A call failing with one of these never
// mutates workstation state; the operation can simply be retried by the user.
var (
	// ErrUnavailable is returned when the backend cannot be reached or
	// answers with a server-side failure.
	ErrUnavailable = errors.New("gateway: backend unavailable")

	// ErrTimeout is returned when a backend call exceeds its deadline.
	ErrTimeout = errors.New("gateway: operation timeout")

	// ErrCircuitOpen is returned when the circuit breaker is open and the
	// call was rejected without reaching the backend.
	ErrCircuitOpen = errors.New("gateway: circuit breaker open")
)

// RejectionError is a structured rejection from the backend: the request
// reached the backend and was refused. The message (and optional per-field
// errors) are surfaced verbatim to the teller.
type RejectionError struct {
	// StatusCode is the HTTP status the backend answered with.
	StatusCode int

	// Message is the backend's rejection message.
	Message string

	// FieldErrors maps field names to field-specific messages, when the
	// backend provides them.
	FieldErrors map[string]string
}

// Error renders the rejection with any field errors in stable order.
func (e *RejectionError) Error() string {
	if len(e.FieldErrors) == 0 {
		return fmt.Sprintf("gateway: rejected: %s", e.Message)
	}

	fields := make([]string, 0, len(e.FieldErrors))
	for name := range e.FieldErrors {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	var b strings.Builder
	fmt.Fprintf(&b, "gateway: rejected: %s (", e.Message)
	for i, name := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", name, e.FieldErrors[name])
	}
	b.WriteString(")")
	return b.String()
}

// AsRejection extracts a RejectionError from an error chain.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// IsRejection checks if the error is a backend rejection rather than a
// transport failure.
func IsRejection(err error) bool {
	_, ok := AsRejection(err)
	return ok
}

// IsUnavailable checks if the error indicates the backend could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsTimeout checks if the error indicates a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCircuitOpen checks if the error indicates an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// Classify returns a string classification of the error type for metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsRejection(err):
		return "rejected"
	case IsCircuitOpen(err):
		return "circuit_open"
	case IsTimeout(err):
		return "timeout"
	case IsUnavailable(err):
		return "unavailable"
	default:
		return "other"
	}
}
