package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vitalstack/vitals-engine/internal/models"
)

// SnapshotStore publishes the most recent metric snapshots per page through
// a Provider so sibling collector instances can serve reads.
type SnapshotStore struct {
	provider Provider
	ttl      time.Duration
}

// NewSnapshotStore wraps a provider; a nil provider degrades to noop.
func NewSnapshotStore(provider Provider, ttl time.Duration) *SnapshotStore {
	if provider == nil {
		provider = NoopProvider{}
	}
	return &SnapshotStore{provider: provider, ttl: ttl}
}

// PublishCLS stores the latest layout-shift snapshot for a page.
func (s *SnapshotStore) PublishCLS(ctx context.Context, page string, st models.CLSState) error {
	return s.publish(ctx, models.MetricCLS, page, st)
}

// PublishINP stores the latest interaction snapshot for a page.
func (s *SnapshotStore) PublishINP(ctx context.Context, page string, st models.INPState) error {
	return s.publish(ctx, models.MetricINP, page, st)
}

// LatestCLS fetches the last published layout-shift snapshot for a page.
func (s *SnapshotStore) LatestCLS(ctx context.Context, page string) (models.CLSState, error) {
	var st models.CLSState
	err := s.fetch(ctx, models.MetricCLS, page, &st)
	return st, err
}

// LatestINP fetches the last published interaction snapshot for a page.
func (s *SnapshotStore) LatestINP(ctx context.Context, page string) (models.INPState, error) {
	var st models.INPState
	err := s.fetch(ctx, models.MetricINP, page, &st)
	return st, err
}

// Drop removes both published snapshots for a page, used on reset.
func (s *SnapshotStore) Drop(ctx context.Context, page string) error {
	if err := s.provider.Del(ctx, snapshotKey(models.MetricCLS, page)); err != nil {
		return err
	}
	return s.provider.Del(ctx, snapshotKey(models.MetricINP, page))
}

func (s *SnapshotStore) publish(ctx context.Context, metric models.Metric, page string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", metric, err)
	}
	return s.provider.Set(ctx, snapshotKey(metric, page), payload, s.ttl)
}

func (s *SnapshotStore) fetch(ctx context.Context, metric models.Metric, page string, out any) error {
	payload, err := s.provider.Get(ctx, snapshotKey(metric, page))
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, out)
}

func snapshotKey(metric models.Metric, page string) string {
	if page == "" {
		page = "default"
	}
	return fmt.Sprintf("vitals:snapshot:%s:%s", metric, page)
}
