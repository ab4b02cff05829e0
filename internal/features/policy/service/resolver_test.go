package service

import (
	"testing"

	"coldchain-monitor/internal/features/policy/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve_KnownCargoType(t *testing.T) {
	r := NewResolver()

	rng, err := r.Resolve("frozen", nil)
	require.NoError(t, err)
	assert.Equal(t, -25.0, rng.TempMin)
	assert.Equal(t, -18.0, rng.TempMax)
	assert.Equal(t, 3.0, rng.CriticalMargin)
}

func TestResolver_Resolve_NormalizesCargoType(t *testing.T) {
	r := NewResolver()

	rng, err := r.Resolve("  Pharma ", nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, rng.TempMin)
	assert.Equal(t, 8.0, rng.TempMax)
}

func TestResolver_Resolve_OverrideWins(t *testing.T) {
	r := NewResolver()
	override := &domain.Range{TempMin: -20, TempMax: -18, CriticalMargin: 2}

	rng, err := r.Resolve("frozen", override)
	require.NoError(t, err)
	assert.Equal(t, *override, rng)
}

func TestResolver_Resolve_OverrideForUnknownCargo(t *testing.T) {
	r := NewResolver()
	override := &domain.Range{TempMin: 0, TempMax: 5, CriticalMargin: 1}

	rng, err := r.Resolve("live_octopus", override)
	require.NoError(t, err)
	assert.Equal(t, *override, rng)
}

func TestResolver_Resolve_NotFound(t *testing.T) {
	r := NewResolver()

	_, err := r.Resolve("live_octopus", nil)
	assert.ErrorIs(t, err, domain.ErrPolicyNotFound)
}

func TestResolver_CustomDefaults(t *testing.T) {
	r := NewResolverWithDefaults(map[string]domain.Range{
		"test": {TempMin: 1, TempMax: 2, CriticalMargin: 0.5},
	})

	rng, err := r.Resolve("test", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, rng.CriticalMargin)

	_, err = r.Resolve("frozen", nil)
	assert.ErrorIs(t, err, domain.ErrPolicyNotFound)
}
