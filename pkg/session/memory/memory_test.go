package memory

import (
	"context"
	"testing"
	"time"

	"cashdesk/pkg/session"
)

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore(DefaultMemoryStoreConfig())
	defer store.Close()

	ctx := context.Background()

	if err := store.Set(ctx, "agency:session_id", "100"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, "agency:session_id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "100" {
		t.Errorf("Get = %q, want %q", got, "100")
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore(DefaultMemoryStoreConfig())
	defer store.Close()

	_, err := store.Get(context.Background(), "missing")
	if !session.IsNotFound(err) {
		t.Errorf("Get(missing) error = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(DefaultMemoryStoreConfig())
	defer store.Close()

	ctx := context.Background()

	if err := store.Set(ctx, "drawer:code", "C-9"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete(ctx, "drawer:code"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "drawer:code"); !session.IsNotFound(err) {
		t.Errorf("Get after Delete error = %v, want ErrKeyNotFound", err)
	}

	// Deleting an absent key is fine.
	if err := store.Delete(ctx, "drawer:code"); err != nil {
		t.Errorf("Delete(absent) error = %v, want nil", err)
	}
}

func TestMemoryStoreDeleteAll(t *testing.T) {
	store := NewMemoryStore(DefaultMemoryStoreConfig())
	defer store.Close()

	ctx := context.Background()
	keys := []string{"a:1", "a:2", "a:3"}
	for _, k := range keys {
		if err := store.Set(ctx, k, "v"); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}

	if err := store.DeleteAll(ctx, keys...); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if got := store.Len(); got != 0 {
		t.Errorf("Len() after DeleteAll = %d, want 0", got)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(MemoryStoreConfig{
		Name:            "memory",
		TTL:             20 * time.Millisecond,
		CleanupInterval: 5 * time.Millisecond,
	})
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "agency:session_id", "100"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if _, err := store.Get(ctx, "agency:session_id"); !session.IsNotFound(err) {
		t.Errorf("Get after TTL error = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryStoreInvalidKey(t *testing.T) {
	store := NewMemoryStore(DefaultMemoryStoreConfig())
	defer store.Close()

	if err := store.Set(context.Background(), "", "v"); err == nil {
		t.Error("Set with empty key should fail")
	}
	if _, err := store.Get(context.Background(), "has space"); err == nil {
		t.Error("Get with invalid key should fail")
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore(DefaultMemoryStoreConfig())
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close is idempotent.
	if err := store.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if err := store.Set(context.Background(), "k", "v"); err != session.ErrStoreClosed {
		t.Errorf("Set after Close error = %v, want ErrStoreClosed", err)
	}
}
