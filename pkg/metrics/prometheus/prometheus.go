package prometheus

import (
	"time"

	"cashdesk/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector for Prometheus.
type PrometheusCollector struct {
	namespace string

	// Gateway
	gatewayCalls   *prometheus.CounterVec
	gatewayErrors  *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec

	// Workflow
	transitions *prometheus.CounterVec

	// Reconciliation
	reconciliations *prometheus.CounterVec
	lastDifference  prometheus.Gauge

	// Circuit breaker
	circuitOpens *prometheus.CounterVec
	circuitState *prometheus.GaugeVec

	// Dedup guard
	dedupChecks *prometheus.CounterVec
}

// NewPrometheusCollector creates a new Prometheus metrics collector.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		namespace: namespace,
		gatewayCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_calls_total",
				Help:      "Total number of backend gateway calls per operation",
			},
			[]string{"operation"},
		),
		gatewayErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_errors_total",
				Help:      "Total number of failed backend gateway calls per operation and error class",
			},
			[]string{"operation", "class"},
		),
		gatewayLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gateway_call_duration_seconds",
				Help:      "Backend gateway call latency",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
			},
			[]string{"operation"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Total number of session workflow transition attempts",
			},
			[]string{"level", "op", "status"},
		),
		reconciliations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciliations_total",
				Help:      "Total number of ledger reconciliations per outcome",
			},
			[]string{"status"},
		),
		lastDifference: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reconciliation_difference",
				Help:      "Signed difference of the most recent ledger reconciliation",
			},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens per breaker",
			},
			[]string{"name"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state per breaker (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		dedupChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dedup_checks_total",
				Help:      "Total number of duplicate-reference checks per outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Register registers all metrics with the given Prometheus registry.
func (pc *PrometheusCollector) Register(registry *prometheus.Registry) error {
	collectors := []prometheus.Collector{
		pc.gatewayCalls,
		pc.gatewayErrors,
		pc.gatewayLatency,
		pc.transitions,
		pc.reconciliations,
		pc.lastDifference,
		pc.circuitOpens,
		pc.circuitState,
		pc.dedupChecks,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordGatewayCall records one backend call.
func (pc *PrometheusCollector) RecordGatewayCall(operation string, errClass string, duration time.Duration) {
	pc.gatewayCalls.WithLabelValues(operation).Inc()
	if errClass != "none" {
		pc.gatewayErrors.WithLabelValues(operation, errClass).Inc()
	}
	pc.gatewayLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTransition records a workflow transition attempt.
func (pc *PrometheusCollector) RecordTransition(level string, op string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	pc.transitions.WithLabelValues(level, op, status).Inc()
}

// RecordReconciliation records a ledger reconciliation outcome.
func (pc *PrometheusCollector) RecordReconciliation(status string, difference int64) {
	pc.reconciliations.WithLabelValues(status).Inc()
	pc.lastDifference.Set(float64(difference))
}

// RecordCircuitState records a circuit breaker state change.
func (pc *PrometheusCollector) RecordCircuitState(name string, state metrics.CircuitState) {
	pc.circuitState.WithLabelValues(name).Set(float64(state))
	if state == metrics.CircuitOpen {
		pc.circuitOpens.WithLabelValues(name).Inc()
	}
}

// RecordDedupCheck records a duplicate-reference check outcome.
func (pc *PrometheusCollector) RecordDedupCheck(outcome string) {
	pc.dedupChecks.WithLabelValues(outcome).Inc()
}
