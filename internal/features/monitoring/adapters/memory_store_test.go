package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldchain-monitor/internal/features/monitoring/domain"
)

func testReading(shipmentID string, ts time.Time, temp float64) *domain.Reading {
	humidity := 45.0
	return &domain.Reading{
		ID:          uuid.NewString(),
		ShipmentID:  shipmentID,
		DeviceID:    "sensor-1",
		Temperature: temp,
		Humidity:    &humidity,
		Source:      domain.SourceDevice,
		Timestamp:   ts,
		IngestedAt:  time.Now().UTC(),
	}
}

func TestMemoryStore_InsertReading_Dedup(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	r := testReading("ship-1", ts, -19.0)
	stored, created, err := store.InsertReading(ctx, r)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, r.ID, stored.ID)

	dup := testReading("ship-1", ts, -19.0)
	stored2, created2, err := store.InsertReading(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, r.ID, stored2.ID, "duplicate tuple resolves to the first stored reading")

	list, total, err := store.ListReadings(ctx, "ship-1", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}

func TestMemoryStore_InsertReading_DedupWithoutHumidity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	r := testReading("ship-1", ts, -19.0)
	r.Humidity = nil
	_, created, err := store.InsertReading(ctx, r)
	require.NoError(t, err)
	assert.True(t, created)

	dup := testReading("ship-1", ts, -19.0)
	dup.Humidity = nil
	stored, created, err := store.InsertReading(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, r.ID, stored.ID)
}

func TestMemoryStore_ListReadings_OutOfOrderInsertion(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, _, err := store.InsertReading(ctx, testReading("ship-1", base, -19.0))
	require.NoError(t, err)
	_, _, err = store.InsertReading(ctx, testReading("ship-1", base.Add(10*time.Minute), -18.5))
	require.NoError(t, err)

	// Arrives last but belongs between the other two.
	late := testReading("ship-1", base.Add(5*time.Minute), -17.0)
	_, _, err = store.InsertReading(ctx, late)
	require.NoError(t, err)

	list, total, err := store.ListReadings(ctx, "ship-1", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, list, 3)
	assert.Equal(t, -19.0, list[0].Temperature)
	assert.Equal(t, -17.0, list[1].Temperature)
	assert.Equal(t, -18.5, list[2].Temperature)
}

func TestMemoryStore_ListReadings_Pagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, _, err := store.InsertReading(ctx, testReading("ship-1", base.Add(time.Duration(i)*time.Minute), float64(i)))
		require.NoError(t, err)
	}

	page2, total, err := store.ListReadings(ctx, "ship-1", 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page2, 2)
	assert.Equal(t, 2.0, page2[0].Temperature)

	empty, total, err := store.ListReadings(ctx, "ship-1", 4, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Empty(t, empty)
}

func TestMemoryStore_ListReadingsSince(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		_, _, err := store.InsertReading(ctx, testReading("ship-1", base.Add(time.Duration(i)*time.Hour), float64(i)))
		require.NoError(t, err)
	}

	recent, err := store.ListReadingsSince(ctx, "ship-1", base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 2.0, recent[0].Temperature)
}

func TestMemoryStore_Alerts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	r := testReading("ship-1", ts, -15.0)
	a := domain.NewAlert(domain.MetricTemperature, domain.SeverityWarning, r)
	require.NoError(t, store.SaveAlert(ctx, a))

	open, err := store.OpenAlertsByShipment(ctx, "ship-1")
	require.NoError(t, err)
	require.Len(t, open, 1)

	clearing := testReading("ship-1", ts.Add(time.Hour), -19.0)
	a.Resolve(clearing, "temperature back in range")
	require.NoError(t, store.SaveAlert(ctx, a))

	open, err = store.OpenAlertsByShipment(ctx, "ship-1")
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := store.ListAlerts(ctx, "ship-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.AlertResolved, all[0].Status)

	n, err := store.CountAlertsOpenedSince(ctx, "ship-1", ts.Add(-time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = store.CountAlertsOpenedSince(ctx, "ship-1", ts.Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestMemoryStore_OpenAlerts_Global(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	r1 := testReading("ship-1", base.Add(time.Minute), -15.0)
	r2 := testReading("ship-2", base, -14.0)
	require.NoError(t, store.SaveAlert(ctx, domain.NewAlert(domain.MetricTemperature, domain.SeverityWarning, r1)))
	require.NoError(t, store.SaveAlert(ctx, domain.NewAlert(domain.MetricTemperature, domain.SeverityCritical, r2)))

	open, err := store.OpenAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "ship-2", open[0].ShipmentID, "oldest open alert first")
}

func TestMemoryStore_Stats(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	s, err := store.GetStats(ctx, "ship-1")
	require.NoError(t, err)
	assert.Nil(t, s)

	agg := domain.NewStats("ship-1")
	agg.Observe(testReading("ship-1", time.Now().UTC(), -19.0))
	require.NoError(t, store.SaveStats(ctx, agg))

	s, err = store.GetStats(ctx, "ship-1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.EqualValues(t, 1, s.Count)
}
