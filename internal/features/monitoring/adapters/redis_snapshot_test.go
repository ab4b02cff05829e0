package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldchain-monitor/internal/core/cache"
	"coldchain-monitor/internal/features/monitoring/domain"
)

func newTestSnapshotter(t *testing.T) *RedisSnapshotter {
	t.Helper()

	mr := miniredis.RunT(t)
	adapter, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	return NewRedisSnapshotter(adapter)
}

func TestRedisSnapshotter_StatsRoundTrip(t *testing.T) {
	snap := newTestSnapshotter(t)
	ctx := context.Background()

	agg := domain.NewStats("ship-1")
	agg.Observe(testReading("ship-1", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), -19.0))
	view := agg.View()

	require.NoError(t, snap.PublishStats(ctx, &view))

	cached, err := snap.cachedStats(ctx, "ship-1")
	require.NoError(t, err)
	assert.Equal(t, view.Count, cached.Count)
	assert.Equal(t, view.Min, cached.Min)
}

func TestRedisSnapshotter_StatsMiss(t *testing.T) {
	snap := newTestSnapshotter(t)

	_, err := snap.cachedStats(context.Background(), "missing")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestRedisSnapshotter_OpenAlerts(t *testing.T) {
	snap := newTestSnapshotter(t)
	ctx := context.Background()

	r := testReading("ship-1", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), -15.0)
	alerts := []domain.Alert{*domain.NewAlert(domain.MetricTemperature, domain.SeverityCritical, r)}

	require.NoError(t, snap.PublishOpenAlerts(ctx, "ship-1", alerts))

	// Clearing pushes an empty set, not a deletion, so pollers see the
	// resolution immediately.
	require.NoError(t, snap.PublishOpenAlerts(ctx, "ship-1", nil))
}
