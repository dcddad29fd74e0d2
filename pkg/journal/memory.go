package journal

import (
	"context"
	"sync"
)

// MemoryJournal is an in-memory journal for tests and single-workstation
// deployments without a database.
type MemoryJournal struct {
	mu      sync.RWMutex
	records []Record
	byRef   map[string]int // reference -> index into records
}

// NewMemoryJournal creates an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		byRef: make(map[string]int),
	}
}

// Append adds a record.
func (j *MemoryJournal) Append(ctx context.Context, record Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if record.Reference != "" {
		if _, exists := j.byRef[record.Reference]; exists {
			return ErrDuplicateReference
		}
		j.byRef[record.Reference] = len(j.records)
	}
	j.records = append(j.records, record)
	return nil
}

// GetByReference retrieves the record with the given reference.
func (j *MemoryJournal) GetByReference(ctx context.Context, reference string) (*Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	idx, exists := j.byRef[reference]
	if !exists {
		return nil, ErrNotFound
	}
	record := j.records[idx]
	return &record, nil
}

// ListBySession lists records for one drawer session, oldest first.
func (j *MemoryJournal) ListBySession(ctx context.Context, drawerSessionID string) ([]Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []Record
	for _, record := range j.records {
		if record.DrawerSessionID == drawerSessionID {
			out = append(out, record)
		}
	}
	return out, nil
}

// Len returns the number of stored records.
func (j *MemoryJournal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.records)
}

// Close is a no-op for the in-memory journal.
func (j *MemoryJournal) Close() error {
	return nil
}
