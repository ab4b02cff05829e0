package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coldchain-monitor/internal/core/cache"
	"coldchain-monitor/internal/features/monitoring/domain"
)

const snapshotTTL = 10 * time.Minute

// RedisSnapshotter publishes derived per-shipment views into the cache so UI
// pollers read the latest stats and open alerts without touching the store.
// All methods are best effort from the caller's perspective; ingestion never
// fails on a snapshot error.
type RedisSnapshotter struct {
	cache cache.Cache
}

// NewRedisSnapshotter wraps a cache into a ports.Snapshotter.
func NewRedisSnapshotter(c cache.Cache) *RedisSnapshotter {
	return &RedisSnapshotter{cache: c}
}

func statsKey(shipmentID string) string {
	return "shipment:" + shipmentID + ":stats"
}

func openAlertsKey(shipmentID string) string {
	return "shipment:" + shipmentID + ":open_alerts"
}

// PublishStats caches the shipment's latest statistics view.
func (s *RedisSnapshotter) PublishStats(ctx context.Context, view *domain.StatsView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal stats snapshot: %w", err)
	}
	if err := s.cache.Set(ctx, statsKey(view.ShipmentID), payload, snapshotTTL); err != nil {
		return fmt.Errorf("failed to publish stats snapshot: %w", err)
	}
	return nil
}

// PublishOpenAlerts caches the shipment's current open-alert set.
func (s *RedisSnapshotter) PublishOpenAlerts(ctx context.Context, shipmentID string, alerts []domain.Alert) error {
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	payload, err := json.Marshal(alerts)
	if err != nil {
		return fmt.Errorf("failed to marshal open-alert snapshot: %w", err)
	}
	if err := s.cache.Set(ctx, openAlertsKey(shipmentID), payload, snapshotTTL); err != nil {
		return fmt.Errorf("failed to publish open-alert snapshot: %w", err)
	}
	return nil
}

// cachedStats reads back the published stats view, or cache.ErrCacheMiss.
func (s *RedisSnapshotter) cachedStats(ctx context.Context, shipmentID string) (*domain.StatsView, error) {
	raw, err := s.cache.Get(ctx, statsKey(shipmentID))
	if err != nil {
		return nil, err
	}
	var view domain.StatsView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats snapshot: %w", err)
	}
	return &view, nil
}
