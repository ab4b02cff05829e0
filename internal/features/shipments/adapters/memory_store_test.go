package adapters

import (
	"context"
	"testing"
	"time"

	"coldchain-monitor/internal/features/shipments/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShipment(t *testing.T) *domain.Shipment {
	t.Helper()
	s, err := domain.NewShipment("frozen", "Bangkok", "Phuket", nil, nil)
	require.NoError(t, err)
	return s
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	s := newShipment(t)

	require.NoError(t, store.CreateShipment(ctx, s))

	got, err := store.GetShipment(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, domain.StatusCreated, got.Status)

	// Returned value is a copy; mutating it must not leak into the store.
	got.Status = domain.StatusDelivered
	again, err := store.GetShipment(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, again.Status)
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.GetShipment(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrShipmentNotFound)
}

func TestMemoryStore_DuplicateCreate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	s := newShipment(t)

	require.NoError(t, store.CreateShipment(ctx, s))
	assert.Error(t, store.CreateShipment(ctx, s))
}

func TestMemoryStore_UpdateStatus(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	s := newShipment(t)
	require.NoError(t, store.CreateShipment(ctx, s))

	now := time.Now().UTC()
	require.NoError(t, store.UpdateShipmentStatus(ctx, s.ID, domain.StatusProcessing, now))

	got, err := store.GetShipment(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)
	assert.Equal(t, now, got.UpdatedAt)

	assert.ErrorIs(t, store.UpdateShipmentStatus(ctx, "missing", domain.StatusProcessing, now), domain.ErrShipmentNotFound)
}

func TestMemoryStore_AppendEvent_SequencesIncrease(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		stored, err := store.AppendEvent(ctx, &domain.TimelineEvent{
			ID:         "e",
			ShipmentID: "ship-1",
			Status:     domain.StatusInTransit,
			Timestamp:  time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(i), stored.Sequence)
	}

	// Sequences are per shipment.
	stored, err := store.AppendEvent(ctx, &domain.TimelineEvent{
		ID:         "e",
		ShipmentID: "ship-2",
		Status:     domain.StatusCreated,
		Timestamp:  time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Sequence)
}

func TestMemoryStore_ListEvents_OrderedByTimestampThenSequence(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Appended out of timestamp order; the tie pair shares a timestamp.
	for _, ts := range []time.Time{base.Add(10 * time.Minute), base, base.Add(5 * time.Minute), base.Add(5 * time.Minute)} {
		_, err := store.AppendEvent(ctx, &domain.TimelineEvent{
			ShipmentID: "ship-1",
			Status:     domain.StatusInTransit,
			Timestamp:  ts,
		})
		require.NoError(t, err)
	}

	events, err := store.ListEvents(ctx, "ship-1")
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, base, events[0].Timestamp)
	assert.Equal(t, base.Add(5*time.Minute), events[1].Timestamp)
	assert.Equal(t, base.Add(5*time.Minute), events[2].Timestamp)
	assert.Equal(t, base.Add(10*time.Minute), events[3].Timestamp)
	// Timestamp tie broken by arrival sequence.
	assert.Less(t, events[1].Sequence, events[2].Sequence)
}
