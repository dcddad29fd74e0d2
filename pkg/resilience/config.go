package resilience

import (
	"time"
)

// ResilientConfig configures the protective wrapper around a backend gateway.
type ResilientConfig struct {
	// Timeout bounds each backend call. A teller waiting at the counter
	// should get a clear failure, not a spinner.
	Timeout time.Duration

	// CircuitBreakerConfig tunes when the workstation stops hammering a
	// backend that is already down.
	CircuitBreakerConfig CircuitBreakerConfig
}

// CircuitBreakerConfig tunes the breaker shared by all gateway operations.
type CircuitBreakerConfig struct {
	// MaxRequests caps the trial requests let through while half-open.
	MaxRequests uint32

	// Interval is how often the closed-state failure counts are cleared.
	// Zero means counts accumulate until the breaker trips.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// ReadyToTrip overrides the trip decision. When nil, the breaker trips
	// after 5 consecutive failures.
	ReadyToTrip func(counts Counts) bool
}

// Counts is the breaker's view of recent request outcomes, passed to
// ReadyToTrip.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// DefaultResilientConfig returns sensible defaults for a teller workstation
// talking to its core banking backend.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Timeout: 10 * time.Second,
		CircuitBreakerConfig: CircuitBreakerConfig{
			MaxRequests: 2,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
		},
	}
}

// WithTimeout returns a copy of the config with the given call timeout.
func (c ResilientConfig) WithTimeout(timeout time.Duration) ResilientConfig {
	c.Timeout = timeout
	return c
}

// WithCircuitBreakerTimeout returns a copy of the config with the given
// open-state duration.
func (c ResilientConfig) WithCircuitBreakerTimeout(timeout time.Duration) ResilientConfig {
	c.CircuitBreakerConfig.Timeout = timeout
	return c
}
