package metrics

import (
	"time"
)

// Collector defines the interface for collecting teller-workstation metrics.
// Implementations can export metrics to various backends (Prometheus, etc.).
type Collector interface {
	// RecordGatewayCall records one backend call with its error class
	// (see gateway.Classify) and latency.
	RecordGatewayCall(operation string, errClass string, duration time.Duration)

	// RecordTransition records a workflow transition attempt per level
	// ("agency", "till_window", "cash_drawer") and op ("open", "close").
	RecordTransition(level string, op string, success bool)

	// RecordReconciliation records a ledger reconciliation outcome
	// ("balanced", "short", "excess") with the signed difference.
	RecordReconciliation(status string, difference int64)

	// RecordCircuitState records circuit breaker state changes.
	RecordCircuitState(name string, state CircuitState)

	// RecordDedupCheck records a duplicate-reference check outcome
	// ("new", "duplicate", "false_positive").
	RecordDedupCheck(outcome string)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the circuit breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the circuit breaker is testing if the backend has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector is a no-op implementation of Collector.
// It's used as the default collector when metrics are not needed.
type NoOpCollector struct{}

// RecordGatewayCall does nothing.
func (NoOpCollector) RecordGatewayCall(operation string, errClass string, duration time.Duration) {}

// RecordTransition does nothing.
func (NoOpCollector) RecordTransition(level string, op string, success bool) {}

// RecordReconciliation does nothing.
func (NoOpCollector) RecordReconciliation(status string, difference int64) {}

// RecordCircuitState does nothing.
func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}

// RecordDedupCheck does nothing.
func (NoOpCollector) RecordDedupCheck(outcome string) {}
