package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/raceline.report/internal/config"
	"github.com/banshee-data/raceline.report/internal/grip"
	"github.com/banshee-data/raceline.report/internal/report"
	"github.com/banshee-data/raceline.report/internal/session"
	"github.com/banshee-data/raceline.report/internal/session/store"
	"github.com/banshee-data/raceline.report/internal/solver"
	"github.com/banshee-data/raceline.report/internal/track"
	"github.com/banshee-data/raceline.report/internal/units"
)

// sampleJSON is the on-disk sample record. Speed and elevation are
// optional in most logger exports.
type sampleJSON struct {
	Timestamp  time.Time `json:"timestamp"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	SpeedMps   *float64  `json:"speed_mps,omitempty"`
	ElevationM *float64  `json:"elevation_m,omitempty"`
}

func loadSamples(path string) ([]track.RawGpsSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open samples: %w", err)
	}
	defer f.Close()

	var raw []sampleJSON
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}
	out := make([]track.RawGpsSample, len(raw))
	for i, s := range raw {
		out[i] = track.RawGpsSample{
			Timestamp:  s.Timestamp,
			Lat:        s.Lat,
			Lon:        s.Lon,
			SpeedMps:   s.SpeedMps,
			ElevationM: s.ElevationM,
		}
	}
	return out, nil
}

func handleBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	samplesPath := fs.String("samples", "", "GPS samples JSON file")
	dbPath := fs.String("db", "raceline.db", "snapshot database path")
	configPath := fs.String("config", "", "tuning config JSON file")
	startLat := fs.Float64("start-lat", math.NaN(), "start/finish line latitude")
	startLon := fs.Float64("start-lon", math.NaN(), "start/finish line longitude")
	fs.Parse(args)

	if *samplesPath == "" {
		log.Fatal("build: --samples is required")
	}
	samples, err := loadSamples(*samplesPath)
	if err != nil {
		log.Fatalf("build: %v", err)
	}

	opts := []session.Option{session.WithProgress(logStage)}
	opts = append(opts, tuningOptions(*configPath, *startLat, *startLon)...)
	sess := session.New(opts...)
	if err := sess.BuildTrack(samples); err != nil {
		log.Fatalf("build: %v", err)
	}
	printTrackSummary(sess)
	saveSnapshot(sess, *dbPath)
}

func handleSolve(args []string) {
	fs := flag.NewFlagSet("solve", flag.ExitOnError)
	samplesPath := fs.String("samples", "", "GPS samples JSON file")
	dbPath := fs.String("db", "raceline.db", "snapshot database path")
	outDir := fs.String("out", "", "output directory for plots and reports")
	speedUnit := fs.String("units", units.KMPH, "speed units: "+units.GetValidUnitsString())
	airTemp := fs.Float64("air-temp", 25, "air temperature in Celsius")
	trackTemp := fs.Float64("track-temp", math.NaN(), "track temperature in Celsius")
	rainfall := fs.Float64("rainfall", 0, "rainfall intensity in mm/hr")
	category := fs.String("category", "", "surface category: dry, damp, intermediate, wet")
	configPath := fs.String("config", "", "tuning config JSON file")
	startLat := fs.Float64("start-lat", math.NaN(), "start/finish line latitude")
	startLon := fs.Float64("start-lon", math.NaN(), "start/finish line longitude")
	fs.Parse(args)

	if *samplesPath == "" {
		log.Fatal("solve: --samples is required")
	}
	if !units.IsValid(*speedUnit) {
		log.Fatalf("solve: invalid units %q (valid: %s)", *speedUnit, units.GetValidUnitsString())
	}
	samples, err := loadSamples(*samplesPath)
	if err != nil {
		log.Fatalf("solve: %v", err)
	}

	weather := grip.WeatherCondition{
		AirTemp:      *airTemp,
		TrackTemp:    *trackTemp,
		RainfallMmHr: *rainfall,
		Category:     grip.Category(*category),
	}

	opts := []session.Option{
		session.WithProgress(logStage),
		session.WithWeather(weather),
	}
	opts = append(opts, tuningOptions(*configPath, *startLat, *startLon)...)
	sess := session.New(opts...)
	if err := sess.BuildTrack(samples); err != nil {
		log.Fatalf("solve: %v", err)
	}
	printTrackSummary(sess)

	if err := sess.RunSolver(context.Background()); err != nil {
		log.Fatalf("solve: %v", err)
	}
	line, err := sess.OptimalLine()
	if err != nil {
		log.Fatalf("solve: %v", err)
	}

	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, p := range line.Points {
		minV = math.Min(minV, p.TargetSpeed)
		maxV = math.Max(maxV, p.TargetSpeed)
	}
	fmt.Printf("Effective grip:  %.3f\n", line.Mu)
	fmt.Printf("Speed range:     %.1f - %.1f %s\n",
		units.ConvertSpeed(minV, *speedUnit),
		units.ConvertSpeed(maxV, *speedUnit), *speedUnit)
	fmt.Printf("Predicted lap:   %s\n", units.FormatLapTime(line.LapTimeSec))

	saveSnapshot(sess, *dbPath)
	if *outDir != "" {
		renderOutputs(sess, *outDir, *speedUnit)
	}
}

func handleReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	dbPath := fs.String("db", "raceline.db", "snapshot database path")
	sessionID := fs.String("session", "", "session ID (default: most recent save)")
	outDir := fs.String("out", "out", "output directory for plots and reports")
	speedUnit := fs.String("units", units.KMPH, "speed units: "+units.GetValidUnitsString())
	fs.Parse(args)

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("report: %v", err)
	}
	defer st.Close()

	var id uuid.UUID
	if *sessionID != "" {
		if id, err = uuid.Parse(*sessionID); err != nil {
			log.Fatalf("report: invalid session id: %v", err)
		}
	} else if id, err = st.LatestSessionID(); err != nil {
		log.Fatalf("report: %v", err)
	}

	snap, err := st.LoadLatest(id)
	if err != nil {
		log.Fatalf("report: %v", err)
	}
	sess := session.New()
	sess.Restore(snap)
	renderOutputs(sess, *outDir, *speedUnit)
}

// tuningOptions turns an optional config file plus an optional start/finish
// anchor into session options.
func tuningOptions(path string, startLat, startLon float64) []session.Option {
	bc := track.DefaultBuilderConfig()
	sc := solver.DefaultConfig()
	vp := solver.DefaultVehicleProfile()
	if path != "" {
		tc, err := config.LoadTuningConfig(path)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		bc = tc.ApplyBuilder(bc)
		sc = tc.ApplySolver(sc)
		vp = tc.ApplyVehicle(vp)
	}
	if !math.IsNaN(startLat) && !math.IsNaN(startLon) {
		bc.StartFinishLat = startLat
		bc.StartFinishLon = startLon
	}
	return []session.Option{
		session.WithBuilderConfig(bc),
		session.WithSolverConfig(sc),
		session.WithVehicle(vp),
	}
}

func logStage(stage string) {
	log.Printf("stage: %s", stage)
}

func printTrackSummary(sess *session.Session) {
	c, err := sess.Centerline()
	if err != nil {
		log.Fatalf("summary: %v", err)
	}
	corners := sess.Corners()
	fmt.Printf("Session:         %s\n", sess.ID())
	fmt.Printf("Track length:    %.0f m (%d points)\n", c.TotalLength, c.Len())
	fmt.Printf("Corners:         %d\n", len(corners))
}

func saveSnapshot(sess *session.Session, dbPath string) {
	st, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("snapshot: %v", err)
	}
	defer st.Close()

	if _, err := st.SaveSnapshot(sess.Snapshot()); err != nil {
		log.Fatalf("snapshot: %v", err)
	}
	log.Printf("snapshot saved to %s", dbPath)
}

func renderOutputs(sess *session.Session, outDir, speedUnit string) {
	c, err := sess.Centerline()
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	corners := sess.Corners()
	line, err := sess.OptimalLine()
	if err != nil {
		// A build-only session still gets a track map.
		line = nil
	}

	mapPath := filepath.Join(outDir, "track_map.png")
	if err := report.SaveTrackMapPNG(mapPath, c, line); err != nil {
		log.Fatalf("render: %v", err)
	}
	log.Printf("wrote %s", mapPath)

	if line != nil {
		speedPath := filepath.Join(outDir, "speed_profile.png")
		if err := report.SaveSpeedProfilePNG(speedPath, line, speedUnit); err != nil {
			log.Fatalf("render: %v", err)
		}
		log.Printf("wrote %s", speedPath)
	}

	htmlPath := filepath.Join(outDir, "report.html")
	if err := report.SaveHTMLReport(htmlPath, c, line, corners); err != nil {
		log.Fatalf("render: %v", err)
	}
	log.Printf("wrote %s", htmlPath)
}
