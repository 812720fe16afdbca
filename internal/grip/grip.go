// Package grip maps weather conditions and track temperature to an
// effective tire friction coefficient for the speed-profile solver.
package grip

import (
	"math"
)

// Category identifies the track surface condition class.
type Category string

const (
	CategoryUnknown      Category = ""
	CategoryDry          Category = "dry"
	CategoryDamp         Category = "damp"
	CategoryIntermediate Category = "intermediate"
	CategoryWet          Category = "wet"
)

// Rainfall thresholds (mm/hr) used to derive a category when none is
// provided by the weather source.
const (
	RainfallWetThreshold          = 10.0
	RainfallIntermediateThreshold = 2.0
	RainfallDampThreshold         = 0.1
)

// Temperature model constants. Grip peaks at OptimalTrackTemp and falls off
// quadratically with deviation, never below TempFactorFloor of nominal.
const (
	OptimalTrackTemp      = 85.0
	TempFalloffScale      = 0.3
	TempFalloffRange      = 100.0
	TempFactorFloor       = 0.4
	TrackTempAirOffset    = 10.0
	NominalDryMu          = 1.40
	NominalDampMu         = 1.05
	NominalIntermediateMu = 0.90
	NominalWetMu          = 0.70
)

// WeatherCondition describes one race session's weather. TrackTemp may be
// NaN when the source does not report it; the track temperature is then
// derived from air temperature.
type WeatherCondition struct {
	AirTemp      float64
	TrackTemp    float64
	RainfallMmHr float64
	HumidityPct  float64
	WindSpeedMps float64
	Category     Category
}

// DefaultWeather returns ideal dry conditions: track at the grip optimum.
func DefaultWeather() WeatherCondition {
	return WeatherCondition{
		AirTemp:     25.0,
		TrackTemp:   OptimalTrackTemp,
		HumidityPct: 50,
		Category:    CategoryDry,
	}
}

// EffectiveTrackTemp returns the track temperature, deriving it as air
// temperature plus a fixed offset when the source did not report one.
func (w WeatherCondition) EffectiveTrackTemp() float64 {
	if math.IsNaN(w.TrackTemp) {
		return w.AirTemp + TrackTempAirOffset
	}
	return w.TrackTemp
}

// EffectiveCategory returns the explicit category when set, otherwise one
// derived from rainfall intensity.
func (w WeatherCondition) EffectiveCategory() Category {
	if w.Category != CategoryUnknown {
		return w.Category
	}
	switch {
	case w.RainfallMmHr > RainfallWetThreshold:
		return CategoryWet
	case w.RainfallMmHr > RainfallIntermediateThreshold:
		return CategoryIntermediate
	case w.RainfallMmHr > RainfallDampThreshold:
		return CategoryDamp
	default:
		return CategoryDry
	}
}

// nominalMu returns the absolute operating coefficient for a category at
// the reference dry grip of NominalDryMu.
func nominalMu(c Category) float64 {
	switch c {
	case CategoryWet:
		return NominalWetMu
	case CategoryIntermediate:
		return NominalIntermediateMu
	case CategoryDamp:
		return NominalDampMu
	default:
		return NominalDryMu
	}
}

// EffectiveMu computes the operating friction coefficient for the given
// weather and the vehicle's dry grip. The category nominal is scaled by the
// vehicle's dry grip relative to the reference compound, then reduced by a
// quadratic temperature penalty peaking at OptimalTrackTemp. The result is
// never above the category nominal and never zero for a positive baseMu.
func EffectiveMu(w WeatherCondition, baseMu float64) float64 {
	if baseMu <= 0 {
		return 0
	}
	mu := nominalMu(w.EffectiveCategory()) * baseMu / NominalDryMu
	return mu * tempFactor(w.EffectiveTrackTemp())
}

// tempFactor is the smooth grip penalty for track temperature deviation:
// 1.0 at the optimum, quadratic falloff, clamped to TempFactorFloor.
func tempFactor(trackTemp float64) float64 {
	d := (trackTemp - OptimalTrackTemp) / TempFalloffRange
	f := 1 - TempFalloffScale*d*d
	if f < TempFactorFloor {
		return TempFactorFloor
	}
	return f
}
