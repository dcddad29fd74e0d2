package operation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	memmetrics "cashdesk/pkg/metrics/memory"
)

func TestDedupGuardNewReference(t *testing.T) {
	guard := NewDedupGuard(DefaultDedupConfig(), nil)
	ctx := context.Background()

	if err := guard.Check(ctx, "W-1"); err != nil {
		t.Fatalf("Check new reference: %v", err)
	}
}

func TestDedupGuardDuplicate(t *testing.T) {
	confirmed := 0
	confirm := func(ctx context.Context, reference string) (bool, error) {
		confirmed++
		return reference == "W-1", nil
	}
	guard := NewDedupGuard(DefaultDedupConfig(), confirm)
	ctx := context.Background()

	guard.Remember("W-1")

	if err := guard.Check(ctx, "W-1"); !errors.Is(err, ErrDuplicateReference) {
		t.Errorf("Check remembered reference: %v, want ErrDuplicateReference", err)
	}
	if confirmed != 1 {
		t.Errorf("confirm called %d times, want 1", confirmed)
	}
}

func TestDedupGuardFalsePositiveGoesToConfirm(t *testing.T) {
	// A tiny filter over many entries forces false positives; the
	// authoritative confirm must keep them from rejecting valid operations.
	confirm := func(ctx context.Context, reference string) (bool, error) {
		return false, nil
	}
	collector := memmetrics.NewMemoryCollector()
	guard := NewDedupGuardWithMetrics(DedupConfig{ExpectedReferences: 10, FalsePositiveRate: 0.5}, confirm, collector)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		guard.Remember(fmt.Sprintf("W-%d", i))
	}

	for i := 100; i < 200; i++ {
		if err := guard.Check(ctx, fmt.Sprintf("W-%d", i)); err != nil {
			t.Fatalf("Check W-%d: %v", i, err)
		}
	}

	snapshot := collector.Snapshot()
	if snapshot.DedupOutcomes["duplicate"] != 0 {
		t.Errorf("duplicates = %d, want 0", snapshot.DedupOutcomes["duplicate"])
	}
	if snapshot.DedupOutcomes["new"]+snapshot.DedupOutcomes["false_positive"] != 100 {
		t.Errorf("outcomes = %+v, want 100 checks total", snapshot.DedupOutcomes)
	}
}

func TestDedupGuardEmptyReference(t *testing.T) {
	guard := NewDedupGuard(DefaultDedupConfig(), nil)
	ctx := context.Background()

	guard.Remember("")
	if err := guard.Check(ctx, ""); err != nil {
		t.Errorf("Check empty reference: %v, want nil", err)
	}
}

func TestDedupGuardConfirmError(t *testing.T) {
	confirmErr := errors.New("journal down")
	confirm := func(ctx context.Context, reference string) (bool, error) {
		return false, confirmErr
	}
	guard := NewDedupGuard(DefaultDedupConfig(), confirm)
	ctx := context.Background()

	guard.Remember("W-1")
	if err := guard.Check(ctx, "W-1"); !errors.Is(err, confirmErr) {
		t.Errorf("Check with failing confirm: %v, want %v", err, confirmErr)
	}
}
