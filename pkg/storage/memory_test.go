package storage

import (
	"context"
	"testing"

	"github.com/HatiCode/pricewatch/pkg/observation"
)

func TestMemoryStore_PutAndGetLatest(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	obs := []observation.Observation{
		{Start: 15, End: 45},
		{Start: 18, End: 22},
	}

	if err := store.Put(ctx, "site-a", obs); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, found, err := store.GetLatest(ctx, "site-a")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if !found {
		t.Fatal("GetLatest reported not found after Put")
	}
	if len(got) != 2 {
		t.Fatalf("got %d observations, want 2", len(got))
	}
	if got[1].Start != 18 || got[1].End != 22 {
		t.Errorf("got[1] = %+v, want {18 22}", got[1])
	}
}

func TestMemoryStore_GetLatestNotFound(t *testing.T) {
	store := NewMemoryStore()

	obs, found, err := store.GetLatest(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if found {
		t.Error("GetLatest reported found for unknown site")
	}
	if obs != nil {
		t.Errorf("got %v, want nil", obs)
	}
}

func TestMemoryStore_PutEmptySite(t *testing.T) {
	store := NewMemoryStore()

	if err := store.Put(context.Background(), "", nil); err == nil {
		t.Error("Put with empty site succeeded, want error")
	}
}

func TestMemoryStore_PutReplacesExisting(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Put(ctx, "site-a", []observation.Observation{{Start: 1, End: 2}})
	store.Put(ctx, "site-a", []observation.Observation{{Start: 3, End: 4}})

	got, _, _ := store.GetLatest(ctx, "site-a")
	if len(got) != 1 || got[0].Start != 3 {
		t.Errorf("got %v, want the replacement window [{3 4}]", got)
	}
}

func TestMemoryStore_CopiesOnPutAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := []observation.Observation{{Start: 10, End: 20}}
	store.Put(ctx, "site-a", original)

	// Mutating the caller's slice must not affect the stored window.
	original[0].Start = 999

	got, _, _ := store.GetLatest(ctx, "site-a")
	if got[0].Start != 10 {
		t.Errorf("stored observation start = %v, want 10", got[0].Start)
	}

	// Mutating the returned slice must not affect the stored window either.
	got[0].End = 888

	again, _, _ := store.GetLatest(ctx, "site-a")
	if again[0].End != 20 {
		t.Errorf("stored observation end = %v, want 20", again[0].End)
	}
}

func TestMemoryStore_ContextCanceled(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Put(ctx, "site-a", nil); err == nil {
		t.Error("Put with canceled context succeeded, want error")
	}
	if _, _, err := store.GetLatest(ctx, "site-a"); err == nil {
		t.Error("GetLatest with canceled context succeeded, want error")
	}
}

func TestMemoryStore_LenAndDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Put(ctx, "site-a", nil)
	store.Put(ctx, "site-b", nil)

	if got := store.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}

	if !store.Delete("site-a") {
		t.Error("Delete reported false for an existing site")
	}
	if store.Delete("site-a") {
		t.Error("Delete reported true for an already-deleted site")
	}
	if got := store.Len(); got != 1 {
		t.Errorf("Len after delete = %d, want 1", got)
	}
}
