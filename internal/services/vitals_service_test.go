package services

import (
	"context"
	"testing"
	"time"

	"github.com/vitalstack/vitals-engine/internal/cache"
	"github.com/vitalstack/vitals-engine/internal/engine"
	"github.com/vitalstack/vitals-engine/internal/models"
	"github.com/vitalstack/vitals-engine/internal/source"
)

type fakeArchiver struct {
	cls []models.CLSState
	inp []models.INPState
}

func (f *fakeArchiver) SaveCLS(_ context.Context, _ string, st models.CLSState) (int64, error) {
	f.cls = append(f.cls, st)
	return int64(len(f.cls)), nil
}

func (f *fakeArchiver) SaveINP(_ context.Context, _ string, st models.INPState) (int64, error) {
	f.inp = append(f.inp, st)
	return int64(len(f.inp)), nil
}

func newTestService(t *testing.T, snapshots *cache.SnapshotStore, archiver Archiver) *VitalsService {
	t.Helper()
	eng, err := engine.New(engine.DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewVitalsService(nil, eng, snapshots, archiver, "checkout")
}

func TestServicePushAndSnapshot(t *testing.T) {
	snapshots := cache.NewSnapshotStore(cache.NewMemoryProvider(), time.Minute)
	svc := newTestService(t, snapshots, nil)

	svc.HandleShift(models.LayoutShiftRecord{Score: 0.2, StartTime: 100})

	st := svc.CLSState()
	if st.Value == nil || *st.Value != 0.2 {
		t.Fatalf("unexpected state %+v", st)
	}

	// The worse value was published through the snapshot store.
	published, err := snapshots.LatestCLS(context.Background(), "checkout")
	if err != nil {
		t.Fatalf("expected a published snapshot: %v", err)
	}
	if published.Value == nil || *published.Value != 0.2 {
		t.Fatalf("unexpected published snapshot %+v", published)
	}
}

func TestServiceFeedDelivery(t *testing.T) {
	svc := newTestService(t, nil, nil)
	feed := source.NewFeed()
	svc.Attach(feed)

	feed.PublishShift(models.LayoutShiftRecord{Score: 0.1, StartTime: 0})
	feed.PublishInteraction(models.InteractionRecord{
		ID: 1, Type: models.InteractionClick, Latency: 250,
		Phases: models.PhaseBreakdown{InputDelay: 20, ProcessingDuration: 200, PresentationDelay: 30},
	})

	if st := svc.CLSState(); st.ShiftCount != 1 {
		t.Fatalf("expected shift delivered, got %d", st.ShiftCount)
	}
	if st := svc.INPState(); st.InteractionCount != 1 {
		t.Fatalf("expected interaction delivered, got %d", st.InteractionCount)
	}

	svc.Detach(feed)
	feed.PublishShift(models.LayoutShiftRecord{Score: 0.1, StartTime: 3000})
	if st := svc.CLSState(); st.ShiftCount != 1 {
		t.Fatal("no delivery after detach")
	}
}

func TestServiceResetArchivesAndDrops(t *testing.T) {
	snapshots := cache.NewSnapshotStore(cache.NewMemoryProvider(), time.Minute)
	archiver := &fakeArchiver{}
	svc := newTestService(t, snapshots, archiver)

	svc.HandleShift(models.LayoutShiftRecord{Score: 0.3, StartTime: 50})
	svc.Reset(context.Background())

	if len(archiver.cls) != 1 || len(archiver.inp) != 1 {
		t.Fatalf("expected both states archived, got %d and %d", len(archiver.cls), len(archiver.inp))
	}
	if archiver.cls[0].Value == nil || *archiver.cls[0].Value != 0.3 {
		t.Fatalf("archived the wrong snapshot %+v", archiver.cls[0])
	}

	if st := svc.CLSState(); !st.Loading {
		t.Fatal("expected pristine state after reset")
	}
	if _, err := snapshots.LatestCLS(context.Background(), "checkout"); err == nil {
		t.Fatal("expected published snapshot dropped on reset")
	}

	// An empty session archives nothing.
	svc.Reset(context.Background())
	if len(archiver.cls) != 1 {
		t.Fatalf("second reset must not archive again, got %d", len(archiver.cls))
	}
}

func TestServiceFontLoadEvidence(t *testing.T) {
	svc := newTestService(t, nil, nil)
	svc.NoteFontLoad(800)

	svc.HandleShift(models.LayoutShiftRecord{
		Score:     0.05,
		StartTime: 1000,
		Sources:   []models.ShiftSource{{Element: models.ElementRef{Tag: "p", ContainsText: true}}},
	})

	st := svc.CLSState()
	found := false
	for _, issue := range st.Issues {
		if issue.Type == models.IssueWebFontShift {
			found = true
		}
	}
	if !found {
		t.Fatal("expected web-font-shift issue in state")
	}
}
