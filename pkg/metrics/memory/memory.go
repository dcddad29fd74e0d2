package memory

import (
	"sync"
	"time"

	"cashdesk/pkg/metrics"
)

// MemoryCollector implements Collector for in-memory inspection in tests and
// single-workstation deployments.
type MemoryCollector struct {
	mu sync.RWMutex

	gatewayCalls    map[string]*GatewayCallMetrics  // by operation
	transitions     map[string]*TransitionMetrics   // by level:op
	reconciliations map[string]int64                // by status
	lastDifference  int64
	circuitStates   map[string]metrics.CircuitState // by breaker name
	circuitOpens    map[string]int64
	dedupOutcomes   map[string]int64
}

// GatewayCallMetrics holds per-operation backend call counts.
type GatewayCallMetrics struct {
	Calls     int64
	Errors    int64
	ByClass   map[string]int64
	Latencies []time.Duration
}

// TransitionMetrics holds per-level-and-op workflow transition counts.
type TransitionMetrics struct {
	Attempts  int64
	Successes int64
	Failures  int64
}

// NewMemoryCollector creates a new in-memory metrics collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{
		gatewayCalls:    make(map[string]*GatewayCallMetrics),
		transitions:     make(map[string]*TransitionMetrics),
		reconciliations: make(map[string]int64),
		circuitStates:   make(map[string]metrics.CircuitState),
		circuitOpens:    make(map[string]int64),
		dedupOutcomes:   make(map[string]int64),
	}
}

// RecordGatewayCall records one backend call.
func (mc *MemoryCollector) RecordGatewayCall(operation string, errClass string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	gm, exists := mc.gatewayCalls[operation]
	if !exists {
		gm = &GatewayCallMetrics{ByClass: make(map[string]int64)}
		mc.gatewayCalls[operation] = gm
	}

	gm.Calls++
	gm.ByClass[errClass]++
	if errClass != "none" {
		gm.Errors++
	}
	gm.Latencies = append(gm.Latencies, duration)
}

// RecordTransition records a workflow transition attempt.
func (mc *MemoryCollector) RecordTransition(level string, op string, success bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := level + ":" + op
	tm, exists := mc.transitions[key]
	if !exists {
		tm = &TransitionMetrics{}
		mc.transitions[key] = tm
	}

	tm.Attempts++
	if success {
		tm.Successes++
	} else {
		tm.Failures++
	}
}

// RecordReconciliation records a ledger reconciliation outcome.
func (mc *MemoryCollector) RecordReconciliation(status string, difference int64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.reconciliations[status]++
	mc.lastDifference = difference
}

// RecordCircuitState records a circuit breaker state change.
func (mc *MemoryCollector) RecordCircuitState(name string, state metrics.CircuitState) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	old := mc.circuitStates[name]
	mc.circuitStates[name] = state
	if old != metrics.CircuitOpen && state == metrics.CircuitOpen {
		mc.circuitOpens[name]++
	}
}

// RecordDedupCheck records a duplicate-reference check outcome.
func (mc *MemoryCollector) RecordDedupCheck(outcome string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.dedupOutcomes[outcome]++
}

// Snapshot is a copy of the current metrics state.
type Snapshot struct {
	GatewayCalls    map[string]GatewayCallMetrics
	Transitions     map[string]TransitionMetrics
	Reconciliations map[string]int64
	LastDifference  int64
	CircuitStates   map[string]metrics.CircuitState
	CircuitOpens    map[string]int64
	DedupOutcomes   map[string]int64
}

// Snapshot returns a copy of the current metrics state.
func (mc *MemoryCollector) Snapshot() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	snapshot := Snapshot{
		GatewayCalls:    make(map[string]GatewayCallMetrics),
		Transitions:     make(map[string]TransitionMetrics),
		Reconciliations: make(map[string]int64),
		LastDifference:  mc.lastDifference,
		CircuitStates:   make(map[string]metrics.CircuitState),
		CircuitOpens:    make(map[string]int64),
		DedupOutcomes:   make(map[string]int64),
	}

	for op, gm := range mc.gatewayCalls {
		snapshot.GatewayCalls[op] = *gm
	}
	for key, tm := range mc.transitions {
		snapshot.Transitions[key] = *tm
	}
	for status, n := range mc.reconciliations {
		snapshot.Reconciliations[status] = n
	}
	for name, s := range mc.circuitStates {
		snapshot.CircuitStates[name] = s
	}
	for name, n := range mc.circuitOpens {
		snapshot.CircuitOpens[name] = n
	}
	for outcome, n := range mc.dedupOutcomes {
		snapshot.DedupOutcomes[outcome] = n
	}

	return snapshot
}

// Reset clears all collected metrics.
func (mc *MemoryCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.gatewayCalls = make(map[string]*GatewayCallMetrics)
	mc.transitions = make(map[string]*TransitionMetrics)
	mc.reconciliations = make(map[string]int64)
	mc.lastDifference = 0
	mc.circuitStates = make(map[string]metrics.CircuitState)
	mc.circuitOpens = make(map[string]int64)
	mc.dedupOutcomes = make(map[string]int64)
}
