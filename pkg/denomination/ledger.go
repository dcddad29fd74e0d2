package denomination

import (
	"fmt"
)

// BalanceTolerance is the maximum absolute difference between the target
// amount and the counted total for which the ledger is considered balanced.
// A one-unit tolerance absorbs rounding on declared amounts.
const BalanceTolerance = 1

// BalanceStatus classifies the reconciliation state of a ledger.
type BalanceStatus int

const (
	// Balanced means the counted total is within tolerance of the target.
	Balanced BalanceStatus = iota
	// Short means the counted total is below the target beyond tolerance.
	Short
	// Excess means the counted total is above the target beyond tolerance.
	Excess
)

// String returns the string representation of the status.
func (s BalanceStatus) String() string {
	switch s {
	case Balanced:
		return "balanced"
	case Short:
		return "short"
	case Excess:
		return "excess"
	default:
		return "unknown"
	}
}

// Entry is one denomination row of a ledger together with its counted units.
type Entry struct {
	Denomination

	// Count is the number of units counted for this denomination.
	// Never negative.
	Count int64
}

// Subtotal returns FaceValue * Count. Subtotals are always derived,
// never stored.
func (e Entry) Subtotal() int64 {
	return e.FaceValue * e.Count
}

// Ledger tracks counted units per denomination against a target amount.
// It is created fresh per operation screen and is not safe for concurrent use;
// the teller workflow is single-threaded per workstation.
type Ledger struct {
	entries []Entry
	target  int64
}

// NewLedger creates a ledger over the given table with all counts at zero.
// The target is the declared amount the ledger must reconcile to.
func NewLedger(table Table, target int64) (*Ledger, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	entries := make([]Entry, len(table))
	for i, d := range table {
		entries[i] = Entry{Denomination: d}
	}

	return &Ledger{
		entries: entries,
		target:  target,
	}, nil
}

// Len returns the number of denomination rows.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Target returns the declared amount the ledger reconciles against.
func (l *Ledger) Target() int64 {
	return l.target
}

// SetTarget replaces the declared amount. Counts are left untouched.
func (l *Ledger) SetTarget(target int64) {
	l.target = target
}

// Entries returns a copy of the ledger rows for inspection and payloads.
func (l *Ledger) Entries() []Entry {
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// SetCount replaces the count at the given row index. Negative counts are
// coerced to zero, matching how the entry screens treat invalid input.
func (l *Ledger) SetCount(index int, count int64) error {
	if index < 0 || index >= len(l.entries) {
		return fmt.Errorf("denomination: row %d out of range [0,%d)", index, len(l.entries))
	}
	if count < 0 {
		count = 0
	}
	l.entries[index].Count = count
	return nil
}

// SetCountFor replaces the count of the row with the given face value and
// kind. Used when counts arrive keyed by face value rather than by position.
func (l *Ledger) SetCountFor(faceValue int64, kind Kind, count int64) error {
	for i := range l.entries {
		if l.entries[i].FaceValue == faceValue && l.entries[i].Kind == kind {
			return l.SetCount(i, count)
		}
	}
	return fmt.Errorf("denomination: face value %d (%s) not in table", faceValue, kind)
}

// Reset sets every count to zero. After a reset the total is 0 and the
// difference equals the target.
func (l *Ledger) Reset() {
	for i := range l.entries {
		l.entries[i].Count = 0
	}
}

// Total returns the sum of all subtotals.
func (l *Ledger) Total() int64 {
	var total int64
	for _, e := range l.entries {
		total += e.Subtotal()
	}
	return total
}

// Difference returns target minus counted total. Positive means cash is
// missing, negative means there is an overage.
func (l *Ledger) Difference() int64 {
	return l.target - l.Total()
}

// Status classifies the current difference against the balance tolerance.
func (l *Ledger) Status() BalanceStatus {
	diff := l.Difference()
	switch {
	case diff > BalanceTolerance:
		return Short
	case diff < -BalanceTolerance:
		return Excess
	default:
		return Balanced
	}
}

// Reconciliation is a snapshot of the ledger's balance state, suitable for
// display and for deciding whether submission is enabled.
type Reconciliation struct {
	Status     BalanceStatus
	Target     int64
	Total      int64
	Difference int64
}

// Reconcile returns the current reconciliation snapshot.
func (l *Ledger) Reconcile() Reconciliation {
	return Reconciliation{
		Status:     l.Status(),
		Target:     l.target,
		Total:      l.Total(),
		Difference: l.Difference(),
	}
}

// String renders the reconciliation as a teller-facing message.
func (r Reconciliation) String() string {
	switch r.Status {
	case Short:
		return fmt.Sprintf("short by %d", r.Difference)
	case Excess:
		return fmt.Sprintf("over by %d", -r.Difference)
	default:
		return "balanced"
	}
}
