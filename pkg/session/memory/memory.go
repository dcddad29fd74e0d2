package memory

import (
	"context"
	"sync"
	"time"

	"cashdesk/pkg/session"
)

// MemoryStore is an in-memory session store. It is used for
// single-workstation deployments and in tests. Thread-safe; entries can
// optionally expire at the end of a TTL (e.g., the accounting day).
type MemoryStore struct {
	// data holds the stored values
	data map[string]*entry

	// mu protects concurrent access to data
	mu sync.RWMutex

	config MemoryStoreConfig

	// cleanupTicker drives background expiry, nil when TTL is disabled
	cleanupTicker *time.Ticker

	// stopCleanup signals the cleanup goroutine to stop
	stopCleanup chan struct{}

	// wg waits for the cleanup goroutine to finish
	wg sync.WaitGroup

	closed bool
}

type entry struct {
	value     string
	expiresAt time.Time // zero when the entry never expires
}

// MemoryStoreConfig holds configuration for the memory store.
type MemoryStoreConfig struct {
	// Name is the store identifier.
	Name string

	// TTL is how long entries live. Zero disables expiry entirely,
	// which matches local-storage semantics.
	TTL time.Duration

	// CleanupInterval is how often expired entries are removed.
	// Only used when TTL is non-zero.
	CleanupInterval time.Duration
}

// DefaultMemoryStoreConfig returns a configuration with expiry disabled.
func DefaultMemoryStoreConfig() MemoryStoreConfig {
	return MemoryStoreConfig{
		Name:            "memory",
		TTL:             0,
		CleanupInterval: time.Minute,
	}
}

// NewMemoryStore creates a new in-memory store. When the config enables a
// TTL, a background goroutine removes expired entries.
func NewMemoryStore(config MemoryStoreConfig) *MemoryStore {
	if config.Name == "" {
		config.Name = "memory"
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}

	store := &MemoryStore{
		data:        make(map[string]*entry),
		config:      config,
		stopCleanup: make(chan struct{}),
	}

	if config.TTL > 0 {
		store.cleanupTicker = time.NewTicker(config.CleanupInterval)
		store.wg.Add(1)
		go store.cleanup()
	}

	return store
}

// Get retrieves the value for a key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	if err := session.ValidateKey(key); err != nil {
		return "", err
	}

	s.mu.RLock()
	e, exists := s.data[key]
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return "", session.ErrStoreClosed
	}
	if !exists {
		return "", session.ErrKeyNotFound
	}

	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return "", session.ErrKeyNotFound
	}

	return e.value, nil
}

// Set stores a value under a key.
func (s *MemoryStore) Set(ctx context.Context, key string, value string) error {
	if err := session.ValidateKey(key); err != nil {
		return err
	}

	var expiresAt time.Time
	if s.config.TTL > 0 {
		expiresAt = time.Now().Add(s.config.TTL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.ErrStoreClosed
	}

	s.data[key] = &entry{value: value, expiresAt: expiresAt}
	return nil
}

// Delete removes a key. Removing an absent key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := session.ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return session.ErrStoreClosed
	}

	delete(s.data, key)
	return nil
}

// DeleteAll removes every listed key.
func (s *MemoryStore) DeleteAll(ctx context.Context, keys ...string) error {
	var lastErr error
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Name returns the store identifier.
func (s *MemoryStore) Name() string {
	return s.config.Name
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close stops the cleanup goroutine and drops all data.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.cleanupTicker != nil {
		s.cleanupTicker.Stop()
		close(s.stopCleanup)
		s.wg.Wait()
	}

	s.mu.Lock()
	s.data = make(map[string]*entry)
	s.mu.Unlock()

	return nil
}

// cleanup runs in a background goroutine and removes expired entries.
func (s *MemoryStore) cleanup() {
	defer s.wg.Done()

	for {
		select {
		case <-s.cleanupTicker.C:
			s.removeExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.data {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(s.data, key)
		}
	}
}
