package domain

import (
	"testing"

	policydomain "coldchain-monitor/internal/features/policy/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{"created to processing", StatusCreated, StatusProcessing, true},
		{"created to picked_up skips processing", StatusCreated, StatusPickedUp, false},
		{"processing to picked_up", StatusProcessing, StatusPickedUp, true},
		{"picked_up to in_transit", StatusPickedUp, StatusInTransit, true},
		{"picked_up to delivered", StatusPickedUp, StatusDelivered, true},
		{"in_transit repeats", StatusInTransit, StatusInTransit, true},
		{"in_transit to at_risk", StatusInTransit, StatusAtRisk, true},
		{"at_risk back to in_transit", StatusAtRisk, StatusInTransit, true},
		{"at_risk to delivered", StatusAtRisk, StatusDelivered, true},
		{"in_transit to delivered", StatusInTransit, StatusDelivered, true},
		{"created to delivered", StatusCreated, StatusDelivered, false},
		{"processing to at_risk", StatusProcessing, StatusAtRisk, false},
		{"cancel from created", StatusCreated, StatusCancelled, true},
		{"cancel from at_risk", StatusAtRisk, StatusCancelled, true},
		{"no event after delivered", StatusDelivered, StatusInTransit, false},
		{"no cancel after delivered", StatusDelivered, StatusCancelled, false},
		{"no event after cancelled", StatusCancelled, StatusProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusInTransit.IsTerminal())
	assert.False(t, StatusAtRisk.IsTerminal())
}

func TestStatus_IsValid(t *testing.T) {
	assert.True(t, StatusAtRisk.IsValid())
	assert.False(t, Status("teleported").IsValid())
}

func TestNewShipment(t *testing.T) {
	override := &policydomain.Range{TempMin: -20, TempMax: -18, CriticalMargin: 2}

	s, err := NewShipment("frozen", "Bangkok", "Chiang Mai", nil, override)
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StatusCreated, s.Status)
	assert.Equal(t, override, s.RangeOverride)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestNewShipment_Invalid(t *testing.T) {
	_, err := NewShipment("", "Bangkok", "Chiang Mai", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidShipment)

	_, err = NewShipment("frozen", "", "Chiang Mai", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidShipment)
}
