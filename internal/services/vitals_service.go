package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vitalstack/vitals-engine/internal/cache"
	"github.com/vitalstack/vitals-engine/internal/engine"
	"github.com/vitalstack/vitals-engine/internal/metrics"
	"github.com/vitalstack/vitals-engine/internal/models"
	"github.com/vitalstack/vitals-engine/internal/source"
	"github.com/vitalstack/vitals-engine/internal/utils"
)

const publishTimeout = 2 * time.Second

// Archiver persists finalized snapshots when a page session ends.
type Archiver interface {
	SaveCLS(ctx context.Context, page string, st models.CLSState) (int64, error)
	SaveINP(ctx context.Context, page string, st models.INPState) (int64, error)
}

// VitalsService owns the engine and serializes every push so each record is
// an atomic state transition. The engine itself is single-threaded by
// contract; this is the only place that enforces it.
type VitalsService struct {
	logger    *slog.Logger
	snapshots *cache.SnapshotStore
	archiver  Archiver
	page      string
	latencies *utils.SampleTracker

	mu     sync.Mutex
	engine *engine.Engine

	tokens []source.Token
}

// NewVitalsService constructs the service facade. archiver may be nil when
// archiving is disabled; snapshots may be nil to skip publication.
func NewVitalsService(logger *slog.Logger, eng *engine.Engine, snapshots *cache.SnapshotStore, archiver Archiver, page string) *VitalsService {
	if logger == nil {
		logger = slog.Default()
	}
	if snapshots == nil {
		snapshots = cache.NewSnapshotStore(cache.NoopProvider{}, 0)
	}
	if page == "" {
		page = "default"
	}
	s := &VitalsService{
		logger:    logger,
		snapshots: snapshots,
		archiver:  archiver,
		page:      page,
		latencies: utils.NewSampleTracker(1024),
		engine:    eng,
	}

	// Called under s.mu from inside a push, per the engine publish policy.
	eng.OnCLSChange(func(st models.CLSState) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.snapshots.PublishCLS(ctx, s.page, st); err != nil {
			s.logger.Warn("cls snapshot publish failed", slog.Any("error", err))
		}
	})
	eng.OnINPChange(func(st models.INPState) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.snapshots.PublishINP(ctx, s.page, st); err != nil {
			s.logger.Warn("inp snapshot publish failed", slog.Any("error", err))
		}
	})
	return s
}

// Attach subscribes the service to the record feed. The returned tokens are
// retained so Detach can cancel delivery.
func (s *VitalsService) Attach(feed *source.Feed) {
	s.tokens = append(s.tokens,
		feed.OnLayoutShift(s.HandleShift),
		feed.OnInteraction(s.HandleInteraction),
	)
}

// Detach cancels the service's subscriptions; in-flight state is kept as-is
// since every delivered push has already committed.
func (s *VitalsService) Detach(feed *source.Feed) {
	for _, tok := range s.tokens {
		feed.Unsubscribe(tok)
	}
	s.tokens = nil
}

// HandleShift processes one layout-shift record to completion.
func (s *VitalsService) HandleShift(rec models.LayoutShiftRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	accepted, issues := s.engine.ObserveShift(rec)
	duration := time.Since(start)

	outcome := metrics.OutcomeAccepted
	if !accepted {
		outcome = metrics.OutcomeDropped
	}
	metrics.ObservePush(models.MetricCLS, outcome, duration)
	metrics.ObserveIssues(issues)
	s.observeLatency(duration)
}

// HandleInteraction processes one interaction record to completion.
func (s *VitalsService) HandleInteraction(rec models.InteractionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	accepted, tracked, issues := s.engine.RecordInteraction(rec)
	duration := time.Since(start)

	outcome := metrics.OutcomeAccepted
	switch {
	case !accepted:
		outcome = metrics.OutcomeDropped
	case !tracked:
		outcome = metrics.OutcomeSkipped
	}
	metrics.ObservePush(models.MetricINP, outcome, duration)
	metrics.ObserveIssues(issues)
	s.observeLatency(duration)
}

// NoteFontLoad feeds a font-load signal into the classifier evidence.
func (s *VitalsService) NoteFontLoad(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.NoteFontLoad(t)
}

// SetRulePack swaps the classifier rule pack, used by the hot-reload
// watcher.
func (s *VitalsService) SetRulePack(pack *engine.RulePack) {
	s.engine.SetRulePack(pack)
}

// CLSState returns the current layout-shift snapshot.
func (s *VitalsService) CLSState() models.CLSState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.CLSState()
}

// INPState returns the current interaction snapshot.
func (s *VitalsService) INPState() models.INPState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.INPState()
}

// Reset archives the final snapshots of the page session, then atomically
// discards all state. Used across page-navigation boundaries; safe to call
// at any time, and calling it twice in a row is a no-op the second time.
func (s *VitalsService) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.archiver != nil {
		cls := s.engine.CLSState()
		inp := s.engine.INPState()
		if cls.ShiftCount > 0 || inp.InteractionCount > 0 {
			if _, err := s.archiver.SaveCLS(ctx, s.page, cls); err != nil {
				s.logger.Warn("cls archive failed", slog.Any("error", err))
			}
			if _, err := s.archiver.SaveINP(ctx, s.page, inp); err != nil {
				s.logger.Warn("inp archive failed", slog.Any("error", err))
			}
		}
	}

	s.engine.Reset()
	if err := s.snapshots.Drop(ctx, s.page); err != nil {
		s.logger.Warn("snapshot drop failed", slog.Any("error", err))
	}
	metrics.ObserveReset()
}

func (s *VitalsService) observeLatency(d time.Duration) {
	s.latencies.Observe(d)
	if count := s.latencies.Count(); count >= 200 && count%200 == 0 {
		s.logger.Info("push latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count))
	}
}
