package idempotency

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreMarkProcessed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	owned, err := store.MarkProcessed(ctx, "wamid.abc", now, time.Hour)
	if err != nil {
		t.Fatalf("MarkProcessed returned error: %v", err)
	}
	if !owned {
		t.Fatal("expected first delivery to own processing")
	}

	owned, err = store.MarkProcessed(ctx, "wamid.abc", now.Add(time.Minute), time.Hour)
	if err != nil {
		t.Fatalf("MarkProcessed returned error: %v", err)
	}
	if owned {
		t.Fatal("expected redelivery to be deduplicated")
	}
}

func TestMemoryStoreReclaimsExpiredRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if _, err := store.MarkProcessed(ctx, "wamid.abc", now, time.Hour); err != nil {
		t.Fatalf("MarkProcessed returned error: %v", err)
	}

	owned, err := store.MarkProcessed(ctx, "wamid.abc", now.Add(2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("MarkProcessed returned error: %v", err)
	}
	if !owned {
		t.Fatal("expected expired record to be reclaimed")
	}
}

func TestMemoryStoreReleaseReopensClaim(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if _, err := store.MarkProcessed(ctx, "wamid.abc", now, time.Hour); err != nil {
		t.Fatalf("MarkProcessed returned error: %v", err)
	}
	if err := store.Release(ctx, "wamid.abc"); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}

	owned, err := store.MarkProcessed(ctx, "wamid.abc", now.Add(time.Minute), time.Hour)
	if err != nil {
		t.Fatalf("MarkProcessed returned error: %v", err)
	}
	if !owned {
		t.Fatal("expected released record to be claimable again")
	}
}

func TestMemoryStoreCleanupExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"wamid.a", "wamid.b", "wamid.c"} {
		if _, err := store.MarkProcessed(ctx, id, now, time.Hour); err != nil {
			t.Fatalf("MarkProcessed returned error: %v", err)
		}
	}

	removed, err := store.CleanupExpired(ctx, now.Add(30*time.Minute), 0)
	if err != nil {
		t.Fatalf("CleanupExpired returned error: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected no live records removed, got %d", removed)
	}

	removed, err = store.CleanupExpired(ctx, now.Add(2*time.Hour), 0)
	if err != nil {
		t.Fatalf("CleanupExpired returned error: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 expired records removed, got %d", removed)
	}
}
