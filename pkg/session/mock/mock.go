package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"cashdesk/pkg/session"
)

// MockStore is a mock implementation of session.Store for testing.
// By default it behaves like a real in-memory store; each method can be
// overridden with a function hook, and call counts are tracked.
type MockStore struct {
	// Function hooks - set these to customize behavior
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key, value string) error
	DeleteFunc func(ctx context.Context, key string) error

	mu   sync.Mutex
	data map[string]string

	// Call tracking (atomic for race-free access)
	getCalls    int64
	setCalls    int64
	deleteCalls int64
}

// NewMockStore creates a MockStore backed by an internal map.
func NewMockStore() *MockStore {
	return &MockStore{data: make(map[string]string)}
}

// Get implements session.Store.Get.
func (m *MockStore) Get(ctx context.Context, key string) (string, error) {
	atomic.AddInt64(&m.getCalls, 1)
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return "", session.ErrKeyNotFound
	}
	return value, nil
}

// Set implements session.Store.Set.
func (m *MockStore) Set(ctx context.Context, key, value string) error {
	atomic.AddInt64(&m.setCalls, 1)
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Delete implements session.Store.Delete.
func (m *MockStore) Delete(ctx context.Context, key string) error {
	atomic.AddInt64(&m.deleteCalls, 1)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// DeleteAll implements session.Store.DeleteAll.
func (m *MockStore) DeleteAll(ctx context.Context, keys ...string) error {
	var lastErr error
	for _, key := range keys {
		if err := m.Delete(ctx, key); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Name implements session.Store.Name.
func (m *MockStore) Name() string {
	return "mock"
}

// Close implements session.Store.Close.
func (m *MockStore) Close() error {
	return nil
}

// Len returns the number of stored keys (thread-safe).
func (m *MockStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// GetCalls returns the number of Get calls (thread-safe).
func (m *MockStore) GetCalls() int {
	return int(atomic.LoadInt64(&m.getCalls))
}

// SetCalls returns the number of Set calls (thread-safe).
func (m *MockStore) SetCalls() int {
	return int(atomic.LoadInt64(&m.setCalls))
}

// DeleteCalls returns the number of Delete calls (thread-safe).
func (m *MockStore) DeleteCalls() int {
	return int(atomic.LoadInt64(&m.deleteCalls))
}
