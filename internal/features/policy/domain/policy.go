package domain

import "errors"

// ErrPolicyNotFound is returned when no default range exists for a cargo type
// and the shipment carries no explicit override. Configuration gap: surfaced
// to the operator, never retried automatically.
var ErrPolicyNotFound = errors.New("no range policy for cargo type")

// Range is the acceptable temperature/humidity envelope for a shipment plus
// the critical-deviation margin. Humidity bounds are optional; nil means the
// metric is unconstrained.
type Range struct {
	// TempMin is the lower acceptable temperature bound in °C.
	TempMin float64 `json:"temp_min"`
	// TempMax is the upper acceptable temperature bound in °C.
	TempMax float64 `json:"temp_max"`
	// HumidityMin is the optional lower humidity bound in %.
	HumidityMin *float64 `json:"humidity_min,omitempty"`
	// HumidityMax is the optional upper humidity bound in %.
	HumidityMax *float64 `json:"humidity_max,omitempty"`
	// CriticalMargin is the deviation beyond the range that elevates a
	// warning to critical, in the metric's own unit.
	CriticalMargin float64 `json:"critical_margin"`
}

// TempDeviation returns how far v lies outside the temperature range.
// Zero means v is within bounds.
func (r Range) TempDeviation(v float64) float64 {
	switch {
	case v < r.TempMin:
		return r.TempMin - v
	case v > r.TempMax:
		return v - r.TempMax
	default:
		return 0
	}
}

// HumidityDeviation returns how far v lies outside the humidity bounds.
// Unconstrained sides contribute nothing.
func (r Range) HumidityDeviation(v float64) float64 {
	if r.HumidityMin != nil && v < *r.HumidityMin {
		return *r.HumidityMin - v
	}
	if r.HumidityMax != nil && v > *r.HumidityMax {
		return v - *r.HumidityMax
	}
	return 0
}

// ConstrainsHumidity reports whether the range bounds humidity at all.
func (r Range) ConstrainsHumidity() bool {
	return r.HumidityMin != nil || r.HumidityMax != nil
}
