package journal

import (
	"context"
	"errors"
	"time"
)

// Record is one completed cash operation as kept in the local journal. The
// journal is the workstation's own trail for end-of-day reconciliation; the
// backend remains the book of record.
type Record struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"` // "withdrawal" or "deposit"
	DrawerSessionID string    `json:"drawer_session_id"`
	AccountID       string    `json:"account_id"`
	Amount          int64     `json:"amount"`
	FeeAmount       int64     `json:"fee_amount"`
	Reference       string    `json:"reference"`
	ReceiptRef      string    `json:"receipt_ref"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"created_at"`
}

var (
	// ErrNotFound is returned when no record matches the query.
	ErrNotFound = errors.New("journal: record not found")

	// ErrDuplicateReference is returned by Append when a record with the
	// same non-empty reference already exists.
	ErrDuplicateReference = errors.New("journal: duplicate reference")
)

// IsNotFound reports whether err means no record matched.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Journal stores completed operations.
type Journal interface {
	// Append adds a record. Fails with ErrDuplicateReference when another
	// record already carries the same non-empty reference.
	Append(ctx context.Context, record Record) error

	// GetByReference retrieves the record with the given reference.
	GetByReference(ctx context.Context, reference string) (*Record, error)

	// ListBySession lists records for one drawer session, oldest first.
	ListBySession(ctx context.Context, drawerSessionID string) ([]Record, error)

	// Close releases any resources held by the journal.
	Close() error
}
