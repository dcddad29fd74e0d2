package denomination

import (
	"errors"
	"fmt"
)

// Kind distinguishes banknotes from coins. The suggestion engine allocates
// bills before coins, so the kind of a denomination affects allocation order.
type Kind int

const (
	// Bill is a banknote denomination.
	Bill Kind = iota
	// Coin is a coin denomination.
	Coin
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Bill:
		return "bill"
	case Coin:
		return "coin"
	default:
		return "unknown"
	}
}

// Denomination is a single face value in a denomination table.
type Denomination struct {
	// FaceValue is the monetary value of one unit, in integral currency units.
	FaceValue int64

	// Kind is whether this denomination is a bill or a coin.
	Kind Kind
}

// Table is the fixed, ordered set of denominations used by one operation
// screen. A table is created once and never mutated; counts live in a Ledger.
type Table []Denomination

// Common table errors.
var (
	// ErrEmptyTable is returned when a table has no denominations.
	ErrEmptyTable = errors.New("denomination: empty table")

	// ErrInvalidFaceValue is returned when a denomination has a non-positive face value.
	ErrInvalidFaceValue = errors.New("denomination: face value must be positive")

	// ErrDuplicateFaceValue is returned when the same face value appears twice
	// with the same kind.
	ErrDuplicateFaceValue = errors.New("denomination: duplicate face value")
)

// Validate checks that the table is usable: non-empty, positive face values,
// no duplicate face value within a kind.
func (t Table) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}

	seen := make(map[Denomination]bool, len(t))
	for _, d := range t {
		if d.FaceValue <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidFaceValue, d.FaceValue)
		}
		if seen[d] {
			return fmt.Errorf("%w: %d (%s)", ErrDuplicateFaceValue, d.FaceValue, d.Kind)
		}
		seen[d] = true
	}

	return nil
}

// DrawerTable returns the denomination set used by the cash-drawer
// open/close screens: 5 bill values and 7 coin values, in CFA francs.
func DrawerTable() Table {
	return Table{
		{FaceValue: 10000, Kind: Bill},
		{FaceValue: 5000, Kind: Bill},
		{FaceValue: 2000, Kind: Bill},
		{FaceValue: 1000, Kind: Bill},
		{FaceValue: 500, Kind: Bill},
		{FaceValue: 500, Kind: Coin},
		{FaceValue: 100, Kind: Coin},
		{FaceValue: 50, Kind: Coin},
		{FaceValue: 25, Kind: Coin},
		{FaceValue: 10, Kind: Coin},
		{FaceValue: 5, Kind: Coin},
		{FaceValue: 1, Kind: Coin},
	}
}

// WithdrawalTable returns the denomination set used by the withdrawal screen,
// which pays out in bills only.
func WithdrawalTable() Table {
	return Table{
		{FaceValue: 10000, Kind: Bill},
		{FaceValue: 5000, Kind: Bill},
		{FaceValue: 2000, Kind: Bill},
		{FaceValue: 1000, Kind: Bill},
		{FaceValue: 500, Kind: Bill},
		{FaceValue: 200, Kind: Bill},
		{FaceValue: 100, Kind: Bill},
	}
}
