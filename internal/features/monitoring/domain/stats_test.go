package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sample(id string, temp float64, ts time.Time) *Reading {
	return &Reading{ID: id, ShipmentID: "s1", Temperature: temp, Timestamp: ts}
}

func TestStats_Observe(t *testing.T) {
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	s := NewStats("s1")

	s.Observe(sample("r1", -19.0, base))
	s.Observe(sample("r2", -17.5, base.Add(time.Minute)))
	s.Observe(sample("r3", -21.0, base.Add(2*time.Minute)))

	v := s.View()
	assert.Equal(t, int64(3), v.Count)
	assert.Equal(t, -21.0, v.Min)
	assert.Equal(t, -17.5, v.Max)
	assert.InDelta(t, -19.2, v.Avg, 1e-9)
}

func TestStats_MinMaxTieGoesToEarliestTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	s := NewStats("s1")

	// The later-arriving duplicate minimum carries an EARLIER timestamp
	// (out-of-order device delivery); it must win the tie.
	s.Observe(sample("late", -20.0, base.Add(10*time.Minute)))
	s.Observe(sample("early", -20.0, base))

	assert.Equal(t, "early", s.MinReadingID)
	assert.Equal(t, base, s.MinAt)
	assert.Equal(t, "early", s.MaxReadingID)
}

func TestStats_AlertCount(t *testing.T) {
	s := NewStats("s1")
	s.ObserveAlertOpened()
	s.ObserveAlertOpened()

	assert.Equal(t, int64(2), s.View().AlertCount)
}

func TestStats_EmptyView(t *testing.T) {
	v := NewStats("s1").View()
	assert.Zero(t, v.Count)
	assert.Zero(t, v.Min)
	assert.Zero(t, v.Max)
	assert.Zero(t, v.Avg)
}
