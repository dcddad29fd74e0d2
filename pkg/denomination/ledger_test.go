package denomination

import (
	"testing"
)

func TestTableValidate(t *testing.T) {
	tests := []struct {
		name    string
		table   Table
		wantErr bool
	}{
		{"drawer table", DrawerTable(), false},
		{"withdrawal table", WithdrawalTable(), false},
		{"empty", Table{}, true},
		{"zero face value", Table{{FaceValue: 0, Kind: Bill}}, true},
		{"negative face value", Table{{FaceValue: -500, Kind: Bill}}, true},
		{"duplicate within kind", Table{{FaceValue: 500, Kind: Coin}, {FaceValue: 500, Kind: Coin}}, true},
		{"same value different kind", Table{{FaceValue: 500, Kind: Bill}, {FaceValue: 500, Kind: Coin}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLedgerTotal(t *testing.T) {
	l, err := NewLedger(DrawerTable(), 17300)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	if got := l.Total(); got != 0 {
		t.Errorf("fresh ledger Total() = %d, want 0", got)
	}

	// 1x10000 + 1x5000 + 1x2000 + 3x100 = 17300
	setFor(t, l, 10000, Bill, 1)
	setFor(t, l, 5000, Bill, 1)
	setFor(t, l, 2000, Bill, 1)
	setFor(t, l, 100, Coin, 3)

	if got := l.Total(); got != 17300 {
		t.Errorf("Total() = %d, want 17300", got)
	}
	if got := l.Difference(); got != 0 {
		t.Errorf("Difference() = %d, want 0", got)
	}
}

func TestLedgerSetCountClamp(t *testing.T) {
	l, err := NewLedger(DrawerTable(), 1000)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}

	if err := l.SetCount(0, -5); err != nil {
		t.Fatalf("SetCount: %v", err)
	}
	if got := l.Entries()[0].Count; got != 0 {
		t.Errorf("negative count stored as %d, want 0", got)
	}

	if err := l.SetCount(-1, 1); err == nil {
		t.Error("SetCount(-1) should fail")
	}
	if err := l.SetCount(l.Len(), 1); err == nil {
		t.Error("SetCount(Len()) should fail")
	}
	if err := l.SetCountFor(777, Bill, 1); err == nil {
		t.Error("SetCountFor with unknown face value should fail")
	}
}

func TestLedgerResetIdempotent(t *testing.T) {
	l, err := NewLedger(DrawerTable(), 5000)
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	setFor(t, l, 5000, Bill, 3)

	for i := 0; i < 2; i++ {
		l.Reset()
		if got := l.Total(); got != 0 {
			t.Errorf("after Reset #%d Total() = %d, want 0", i+1, got)
		}
		if got := l.Difference(); got != 5000 {
			t.Errorf("after Reset #%d Difference() = %d, want 5000", i+1, got)
		}
	}
}

func TestLedgerStatusTolerance(t *testing.T) {
	tests := []struct {
		name   string
		target int64
		total  int64
		want   BalanceStatus
	}{
		{"exact", 1000, 1000, Balanced},
		{"one short", 1001, 1000, Balanced},
		{"one over", 999, 1000, Balanced},
		{"two short", 1002, 1000, Short},
		{"two over", 998, 1000, Excess},
		{"far short", 5000, 1000, Short},
		{"far over", 0, 1000, Excess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLedger(DrawerTable(), tt.target)
			if err != nil {
				t.Fatalf("NewLedger: %v", err)
			}
			// Build the total out of 500-franc bills plus unit coins.
			setFor(t, l, 500, Bill, tt.total/500)
			setFor(t, l, 1, Coin, tt.total%500)

			if got := l.Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v (target=%d total=%d)", got, tt.want, tt.target, l.Total())
			}
		})
	}
}

func TestReconciliationString(t *testing.T) {
	tests := []struct {
		name   string
		target int64
		total  int64
		want   string
	}{
		{"balanced", 1000, 1000, "balanced"},
		{"short", 1500, 1000, "short by 500"},
		{"excess", 1000, 1250, "over by 250"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLedger(DrawerTable(), tt.target)
			if err != nil {
				t.Fatalf("NewLedger: %v", err)
			}
			setFor(t, l, 50, Coin, tt.total/50)

			if got := l.Reconcile().String(); got != tt.want {
				t.Errorf("Reconcile().String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// setFor sets a count and fails the test on error.
func setFor(t *testing.T, l *Ledger, faceValue int64, kind Kind, count int64) {
	t.Helper()
	if err := l.SetCountFor(faceValue, kind, count); err != nil {
		t.Fatalf("SetCountFor(%d, %v): %v", faceValue, kind, err)
	}
}
