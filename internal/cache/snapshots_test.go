package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vitalstack/vitals-engine/internal/models"
)

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store := NewSnapshotStore(NewMemoryProvider(), time.Minute)
	ctx := context.Background()

	value := 0.18
	st := models.CLSState{Value: &value, Rating: models.RatingNeedsImprovement, ShiftCount: 3}
	if err := store.PublishCLS(ctx, "checkout", st); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	got, err := store.LatestCLS(ctx, "checkout")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got.Value == nil || *got.Value != 0.18 || got.Rating != models.RatingNeedsImprovement {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestSnapshotStorePagesAreIndependent(t *testing.T) {
	store := NewSnapshotStore(NewMemoryProvider(), time.Minute)
	ctx := context.Background()

	v := 250.0
	if err := store.PublishINP(ctx, "checkout", models.INPState{Value: &v}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if _, err := store.LatestINP(ctx, "home"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss for another page, got %v", err)
	}
}

func TestSnapshotStoreDrop(t *testing.T) {
	store := NewSnapshotStore(NewMemoryProvider(), time.Minute)
	ctx := context.Background()

	v := 0.05
	if err := store.PublishCLS(ctx, "", models.CLSState{Value: &v}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := store.Drop(ctx, ""); err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	if _, err := store.LatestCLS(ctx, ""); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after drop, got %v", err)
	}
}

func TestSnapshotStoreNilProviderDegrades(t *testing.T) {
	store := NewSnapshotStore(nil, 0)
	if err := store.PublishCLS(context.Background(), "p", models.CLSState{}); err != nil {
		t.Fatalf("noop provider must accept writes, got %v", err)
	}
	if _, err := store.LatestCLS(context.Background(), "p"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("noop provider always misses, got %v", err)
	}
}
