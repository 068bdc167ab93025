package session

import (
	"context"
	"testing"
	"time"
)

func TestNewTokenUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken: %v", err)
		}
		if len(token) != 64 {
			t.Fatalf("token length = %d, want 64", len(token))
		}
		if seen[token] {
			t.Fatal("duplicate token")
		}
		seen[token] = true
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	token, err := store.Create(ctx, 42)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	userID, ok, err := store.Resolve(ctx, token)
	if err != nil || !ok || userID != 42 {
		t.Fatalf("Resolve = %d, %v, %v", userID, ok, err)
	}

	if err := store.Destroy(ctx, token); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, ok, _ := store.Resolve(ctx, token); ok {
		t.Fatal("destroyed token resolved")
	}

	// Destroy is idempotent.
	if err := store.Destroy(ctx, token); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}
}

func TestMemoryStoreUnknownToken(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	if _, ok, err := store.Resolve(context.Background(), "nope"); ok || err != nil {
		t.Fatalf("Resolve(unknown) = %v, %v", ok, err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10 * time.Millisecond)

	token, err := store.Create(ctx, 7)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if _, ok, _ := store.Resolve(ctx, token); ok {
		t.Fatal("expired token resolved")
	}
}

func TestMemoryStoreCleanExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10 * time.Millisecond)

	if _, err := store.Create(ctx, 1); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, 2); err != nil {
		t.Fatalf("Create: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if n := store.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired = %d, want 2", n)
	}
}

func TestMemoryStoreTokensAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	t1, _ := store.Create(ctx, 1)
	t2, _ := store.Create(ctx, 2)

	if err := store.Destroy(ctx, t1); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	userID, ok, err := store.Resolve(ctx, t2)
	if err != nil || !ok || userID != 2 {
		t.Fatalf("Resolve(t2) = %d, %v, %v", userID, ok, err)
	}
}
