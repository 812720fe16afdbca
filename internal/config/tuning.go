// Package config loads optional tuning overrides from JSON. Every field
// is a pointer: omitted fields keep the compiled-in defaults, so partial
// configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/raceline.report/internal/solver"
	"github.com/banshee-data/raceline.report/internal/track"
)

// TuningConfig is the root of the tuning file. The sections mirror the
// pipeline: builder, solver, vehicle.
type TuningConfig struct {
	// Builder params
	MinValidSamples   *int     `json:"min_valid_samples,omitempty"`
	ResampleCount     *int     `json:"resample_count,omitempty"`
	LapCloseRadiusM   *float64 `json:"lap_close_radius_m,omitempty"`
	MinLapDistanceM   *float64 `json:"min_lap_distance_m,omitempty"`
	ClusterRadiusM    *float64 `json:"cluster_radius_m,omitempty"`
	SplineSmoothing   *float64 `json:"spline_smoothing,omitempty"`
	ControlPointCount *int     `json:"control_point_count,omitempty"`
	FlatTrack         *bool    `json:"flat_track,omitempty"`

	// Solver params
	LateralAdjustment *bool    `json:"lateral_adjustment,omitempty"`
	OffsetGain        *float64 `json:"offset_gain,omitempty"`
	TrackWidthM       *float64 `json:"track_width_m,omitempty"`

	// Vehicle params
	MassKg         *float64 `json:"mass_kg,omitempty"`
	DragCoeff      *float64 `json:"drag_coeff,omitempty"`
	FrontalAreaM2  *float64 `json:"frontal_area_m2,omitempty"`
	BaseTireGripMu *float64 `json:"base_tire_grip_mu,omitempty"`
	MaxLateralG    *float64 `json:"max_lateral_g,omitempty"`
	MaxBrakingG    *float64 `json:"max_braking_g,omitempty"`
	MaxPowerW      *float64 `json:"max_power_w,omitempty"`
	TopSpeedMps    *float64 `json:"top_speed_mps,omitempty"`
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that configured values are usable.
func (c *TuningConfig) Validate() error {
	if c.ResampleCount != nil && *c.ResampleCount < 8 {
		return fmt.Errorf("resample_count must be at least 8, got %d", *c.ResampleCount)
	}
	if c.LapCloseRadiusM != nil && *c.LapCloseRadiusM <= 0 {
		return fmt.Errorf("lap_close_radius_m must be positive, got %f", *c.LapCloseRadiusM)
	}
	if c.ClusterRadiusM != nil && *c.ClusterRadiusM <= 0 {
		return fmt.Errorf("cluster_radius_m must be positive, got %f", *c.ClusterRadiusM)
	}
	if c.MassKg != nil && *c.MassKg <= 0 {
		return fmt.Errorf("mass_kg must be positive, got %f", *c.MassKg)
	}
	if c.BaseTireGripMu != nil && *c.BaseTireGripMu <= 0 {
		return fmt.Errorf("base_tire_grip_mu must be positive, got %f", *c.BaseTireGripMu)
	}
	if c.TrackWidthM != nil && *c.TrackWidthM <= 0 {
		return fmt.Errorf("track_width_m must be positive, got %f", *c.TrackWidthM)
	}
	if c.TopSpeedMps != nil && *c.TopSpeedMps <= 0 {
		return fmt.Errorf("top_speed_mps must be positive, got %f", *c.TopSpeedMps)
	}
	return nil
}

// ApplyBuilder overlays configured builder fields onto cfg.
func (c *TuningConfig) ApplyBuilder(cfg track.BuilderConfig) track.BuilderConfig {
	if c.MinValidSamples != nil {
		cfg.MinValidSamples = *c.MinValidSamples
	}
	if c.ResampleCount != nil {
		cfg.ResampleCount = *c.ResampleCount
	}
	if c.LapCloseRadiusM != nil {
		cfg.LapCloseRadius = *c.LapCloseRadiusM
	}
	if c.MinLapDistanceM != nil {
		cfg.MinLapDistance = *c.MinLapDistanceM
	}
	if c.ClusterRadiusM != nil {
		cfg.ClusterRadius = *c.ClusterRadiusM
	}
	if c.SplineSmoothing != nil {
		cfg.SplineSmoothing = *c.SplineSmoothing
	}
	if c.ControlPointCount != nil {
		cfg.ControlPointCount = *c.ControlPointCount
	}
	if c.FlatTrack != nil {
		cfg.FlatTrack = *c.FlatTrack
	}
	return cfg
}

// ApplySolver overlays configured solver fields onto cfg.
func (c *TuningConfig) ApplySolver(cfg solver.Config) solver.Config {
	if c.LateralAdjustment != nil {
		cfg.LateralAdjustment = *c.LateralAdjustment
	}
	if c.OffsetGain != nil {
		cfg.OffsetGain = *c.OffsetGain
	}
	if c.TrackWidthM != nil {
		cfg.TrackWidthM = *c.TrackWidthM
	}
	return cfg
}

// ApplyVehicle overlays configured vehicle fields onto vp.
func (c *TuningConfig) ApplyVehicle(vp solver.VehicleProfile) solver.VehicleProfile {
	if c.MassKg != nil {
		vp.MassKg = *c.MassKg
	}
	if c.DragCoeff != nil {
		vp.DragCoeff = *c.DragCoeff
	}
	if c.FrontalAreaM2 != nil {
		vp.FrontalAreaM2 = *c.FrontalAreaM2
	}
	if c.BaseTireGripMu != nil {
		vp.BaseTireGripMu = *c.BaseTireGripMu
	}
	if c.MaxLateralG != nil {
		vp.MaxLateralG = *c.MaxLateralG
	}
	if c.MaxBrakingG != nil {
		vp.MaxBrakingG = *c.MaxBrakingG
	}
	if c.MaxPowerW != nil {
		vp.MaxPowerW = *c.MaxPowerW
	}
	if c.TopSpeedMps != nil {
		vp.TopSpeedMps = *c.TopSpeedMps
	}
	return vp
}
