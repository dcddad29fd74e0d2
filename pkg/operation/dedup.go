package operation

import (
	"context"
	"errors"
	"sync"

	"cashdesk/pkg/metrics"

	"github.com/bits-and-blooms/bloom/v3"
)

// ErrDuplicateReference is returned when an operation reuses the reference
// of an operation that already went through.
var ErrDuplicateReference = errors.New("operation: reference already used")

// ConfirmFunc is the authoritative duplicate check, consulted only when the
// bloom filter reports a possible hit. It returns true when the reference
// really was used before.
type ConfirmFunc func(ctx context.Context, reference string) (bool, error)

// DedupConfig holds dedup guard configuration.
type DedupConfig struct {
	// ExpectedReferences sizes the bloom filter. Default: 100000, roughly a
	// busy drawer's year of operations.
	ExpectedReferences uint

	// FalsePositiveRate is the filter's target false positive rate.
	// Default: 0.01
	FalsePositiveRate float64
}

// DefaultDedupConfig returns the default dedup guard configuration.
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		ExpectedReferences: 100000,
		FalsePositiveRate:  0.01,
	}
}

// DedupGuard blocks operations that reuse a reference. A bloom filter gives
// the cheap "definitely new" answer without touching the journal; only
// possible hits go to the authoritative confirm, so a false positive can
// never reject a valid operation.
type DedupGuard struct {
	mu      sync.Mutex
	filter  *bloom.BloomFilter
	confirm ConfirmFunc
	metrics metrics.Collector
}

// NewDedupGuard creates a guard with the given authoritative confirm.
func NewDedupGuard(config DedupConfig, confirm ConfirmFunc) *DedupGuard {
	return NewDedupGuardWithMetrics(config, confirm, metrics.NoOpCollector{})
}

// NewDedupGuardWithMetrics creates a guard with a custom metrics collector.
func NewDedupGuardWithMetrics(config DedupConfig, confirm ConfirmFunc, metricsCollector metrics.Collector) *DedupGuard {
	if config.ExpectedReferences == 0 {
		config.ExpectedReferences = DefaultDedupConfig().ExpectedReferences
	}
	if config.FalsePositiveRate == 0 {
		config.FalsePositiveRate = DefaultDedupConfig().FalsePositiveRate
	}
	return &DedupGuard{
		filter:  bloom.NewWithEstimates(config.ExpectedReferences, config.FalsePositiveRate),
		confirm: confirm,
		metrics: metricsCollector,
	}
}

// Check returns ErrDuplicateReference when the reference was already used.
// Empty references are never deduplicated.
func (g *DedupGuard) Check(ctx context.Context, reference string) error {
	if reference == "" {
		return nil
	}

	g.mu.Lock()
	possible := g.filter.TestString(reference)
	g.mu.Unlock()

	if !possible {
		g.metrics.RecordDedupCheck("new")
		return nil
	}

	if g.confirm == nil {
		// Without an authoritative source, a filter hit is all we have.
		g.metrics.RecordDedupCheck("duplicate")
		return ErrDuplicateReference
	}

	used, err := g.confirm(ctx, reference)
	if err != nil {
		return err
	}
	if used {
		g.metrics.RecordDedupCheck("duplicate")
		return ErrDuplicateReference
	}
	g.metrics.RecordDedupCheck("false_positive")
	return nil
}

// Remember records a reference after its operation completed.
func (g *DedupGuard) Remember(reference string) {
	if reference == "" {
		return
	}
	g.mu.Lock()
	g.filter.AddString(reference)
	g.mu.Unlock()
}
