package service

import (
	"fmt"
	"strings"

	"coldchain-monitor/internal/features/policy/domain"
)

func f(v float64) *float64 { return &v }

// defaultRanges maps a cargo type to its acceptable range. An explicit
// per-shipment override always wins over this table.
var defaultRanges = map[string]domain.Range{
	"frozen": {
		TempMin: -25, TempMax: -18,
		CriticalMargin: 3,
	},
	"chilled": {
		TempMin: 0, TempMax: 4,
		HumidityMin: f(50), HumidityMax: f(90),
		CriticalMargin: 2,
	},
	"pharma": {
		TempMin: 2, TempMax: 8,
		HumidityMin: f(35), HumidityMax: f(60),
		CriticalMargin: 1,
	},
	"produce": {
		TempMin: 4, TempMax: 10,
		HumidityMin: f(80), HumidityMax: f(95),
		CriticalMargin: 2,
	},
	"ambient": {
		TempMin: 10, TempMax: 25,
		CriticalMargin: 5,
	},
}

// Resolver resolves the acceptable range for a shipment. It is a pure
// function of the shipment's cargo type and optional override; it keeps no
// state and performs no I/O.
type Resolver struct {
	defaults map[string]domain.Range
}

// NewResolver creates a Resolver backed by the built-in cargo-type table.
func NewResolver() *Resolver {
	return &Resolver{defaults: defaultRanges}
}

// NewResolverWithDefaults creates a Resolver with a custom defaults table.
func NewResolverWithDefaults(defaults map[string]domain.Range) *Resolver {
	return &Resolver{defaults: defaults}
}

// Resolve returns the range for the given cargo type, preferring the
// override when present. Returns ErrPolicyNotFound when neither the override
// nor a default exists.
func (r *Resolver) Resolve(cargoType string, override *domain.Range) (domain.Range, error) {
	if override != nil {
		return *override, nil
	}

	rng, ok := r.defaults[strings.ToLower(strings.TrimSpace(cargoType))]
	if !ok {
		return domain.Range{}, fmt.Errorf("%w: %q", domain.ErrPolicyNotFound, cargoType)
	}
	return rng, nil
}
