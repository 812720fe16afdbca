package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/raceline.report/internal/solver"
	"github.com/banshee-data/raceline.report/internal/track"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTuningConfigPartialOverlay(t *testing.T) {
	path := writeConfig(t, `{
		"resample_count": 500,
		"cluster_radius_m": 4.5,
		"mass_kg": 900,
		"lateral_adjustment": true
	}`)
	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig: %v", err)
	}

	bc := cfg.ApplyBuilder(track.DefaultBuilderConfig())
	if bc.ResampleCount != 500 {
		t.Errorf("ResampleCount = %d, want 500", bc.ResampleCount)
	}
	if bc.ClusterRadius != 4.5 {
		t.Errorf("ClusterRadius = %v, want 4.5", bc.ClusterRadius)
	}
	// Omitted fields keep their defaults.
	if bc.LapCloseRadius != track.DefaultBuilderConfig().LapCloseRadius {
		t.Errorf("LapCloseRadius = %v, want default", bc.LapCloseRadius)
	}

	vp := cfg.ApplyVehicle(solver.DefaultVehicleProfile())
	if vp.MassKg != 900 {
		t.Errorf("MassKg = %v, want 900", vp.MassKg)
	}
	if vp.TopSpeedMps != solver.DefaultVehicleProfile().TopSpeedMps {
		t.Errorf("TopSpeedMps = %v, want default", vp.TopSpeedMps)
	}

	sc := cfg.ApplySolver(solver.DefaultConfig())
	if !sc.LateralAdjustment {
		t.Error("LateralAdjustment not applied")
	}
}

func TestLoadTuningConfigRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"tiny resample":  `{"resample_count": 4}`,
		"negative mass":  `{"mass_kg": -10}`,
		"zero grip":      `{"base_tire_grip_mu": 0}`,
		"zero width":     `{"track_width_m": 0}`,
		"zero top speed": `{"top_speed_mps": 0}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadTuningConfig(writeConfig(t, body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadTuningConfigRequiresJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuningConfig(path); err == nil {
		t.Error("expected extension error")
	}
}
