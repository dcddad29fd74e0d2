package denomination

import (
	"errors"
	"sort"
)

// ErrNegativeTarget is returned when a suggestion is requested for a
// negative amount.
var ErrNegativeTarget = errors.New("denomination: target must not be negative")

// Suggestion is the result of a greedy allocation. Remainder is the part of
// the target that could not be represented with the table's denominations.
// A non-zero remainder is a warning, not a failure: the teller adjusts counts
// by hand and the balance check decides whether submission is allowed.
type Suggestion struct {
	Target    int64
	Allocated int64
	Remainder int64
}

// Exact reports whether the target was fully allocated.
func (s Suggestion) Exact() bool {
	return s.Remainder == 0
}

// Suggest replaces the ledger's counts with a greedy allocation of the target
// amount: bills in descending face value first, then coins. The ledger's
// target is set to the suggested amount. A target of zero resets all counts.
//
// The greedy walk is exact whenever the table forms a canonical system with a
// one-unit coin, which holds for the drawer table. Tables without small
// denominations (the withdrawal table) can leave a remainder.
func (l *Ledger) Suggest(target int64) (Suggestion, error) {
	if target < 0 {
		return Suggestion{}, ErrNegativeTarget
	}

	l.target = target
	l.Reset()

	if target == 0 {
		return Suggestion{}, nil
	}

	remainder := target
	for _, i := range l.allocationOrder() {
		count := remainder / l.entries[i].FaceValue
		if count == 0 {
			continue
		}
		l.entries[i].Count = count
		remainder -= count * l.entries[i].FaceValue
		if remainder == 0 {
			break
		}
	}

	return Suggestion{
		Target:    target,
		Allocated: target - remainder,
		Remainder: remainder,
	}, nil
}

// allocationOrder returns row indexes sorted bills-first, each group by
// descending face value. The default tables are already in this order; the
// sort keeps custom tables correct.
func (l *Ledger) allocationOrder() []int {
	order := make([]int, len(l.entries))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := l.entries[order[a]], l.entries[order[b]]
		if ea.Kind != eb.Kind {
			return ea.Kind == Bill
		}
		return ea.FaceValue > eb.FaceValue
	})

	return order
}
