// Package session ties track geometry, grip conditions and the line
// solver together behind a single mutable aggregate with optimistic
// geometry versioning.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/raceline.report/internal/geom"
	"github.com/banshee-data/raceline.report/internal/grip"
	"github.com/banshee-data/raceline.report/internal/solver"
	"github.com/banshee-data/raceline.report/internal/track"
)

var (
	// ErrNoTrack is returned by operations that need geometry before a
	// successful BuildTrack.
	ErrNoTrack = errors.New("no track geometry loaded")

	// ErrNoLine is returned when no optimal line exists for the current
	// geometry version.
	ErrNoLine = errors.New("no optimal line for current geometry")

	// ErrStaleSolve reports that a solve completed against geometry
	// that changed while it ran. The result is discarded and any
	// previously published line is retained.
	ErrStaleSolve = errors.New("solve superseded by geometry edit")
)

// ProgressFunc receives coarse stage names as long-running operations
// advance: the builder stages, then "solve" and "done".
type ProgressFunc func(stage string)

// Session is the unit of interactive work on one track. All state is
// guarded by one mutex; the solver runs outside it so edits stay
// responsive during a solve.
type Session struct {
	mu sync.Mutex

	id      uuid.UUID
	weather grip.WeatherCondition
	vehicle solver.VehicleProfile

	builderCfg track.BuilderConfig
	solverCfg  solver.Config
	elevation  track.ElevationProvider
	progress   ProgressFunc

	geometryVersion uint64
	centerline      *geom.Centerline
	controls        *track.ControlSet
	corners         []track.Corner
	centerLat       float64
	centerLon       float64
	lapCount        int

	line        *solver.Result
	lineVersion uint64
}

type Option func(*Session)

func WithProgress(fn ProgressFunc) Option {
	return func(s *Session) { s.progress = fn }
}

func WithWeather(w grip.WeatherCondition) Option {
	return func(s *Session) { s.weather = w }
}

func WithVehicle(vp solver.VehicleProfile) Option {
	return func(s *Session) { s.vehicle = vp }
}

func WithBuilderConfig(cfg track.BuilderConfig) Option {
	return func(s *Session) { s.builderCfg = cfg }
}

func WithSolverConfig(cfg solver.Config) Option {
	return func(s *Session) { s.solverCfg = cfg }
}

func WithElevationProvider(p track.ElevationProvider) Option {
	return func(s *Session) { s.elevation = p }
}

func New(opts ...Option) *Session {
	s := &Session{
		id:         uuid.New(),
		weather:    grip.DefaultWeather(),
		vehicle:    solver.DefaultVehicleProfile(),
		builderCfg: track.DefaultBuilderConfig(),
		solverCfg:  solver.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) report(stage string) {
	if s.progress != nil {
		s.progress(stage)
	}
}

// ID returns the session's stable identity.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// GeometryVersion returns the current geometry version. It increments on
// every successful BuildTrack and ApplyControlPointEdit.
func (s *Session) GeometryVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geometryVersion
}

// BuildTrack reconstructs the centerline from raw GPS samples and makes
// it the session's geometry. On failure the previous geometry, controls
// and line are left untouched.
func (s *Session) BuildTrack(samples []track.RawGpsSample) error {
	s.mu.Lock()
	cfg := s.builderCfg
	elev := s.elevation
	s.mu.Unlock()

	opts := []track.BuilderOption{track.WithProgress(s.report)}
	if elev != nil {
		opts = append(opts, track.WithElevationProvider(elev))
	}
	res, err := track.NewBuilder(cfg, opts...).Build(samples)
	if err != nil {
		return fmt.Errorf("build track: %w", err)
	}

	s.mu.Lock()
	s.centerline = res.Centerline
	s.controls = res.Controls
	s.corners = res.Corners
	s.centerLat = res.CenterLat
	s.centerLon = res.CenterLon
	s.lapCount = res.LapCount
	s.geometryVersion++
	s.mu.Unlock()
	return nil
}

// Centerline returns the current geometry. Callers must treat it as
// read-only; edits go through ApplyControlPointEdit.
func (s *Session) Centerline() (*geom.Centerline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.centerline == nil {
		return nil, ErrNoTrack
	}
	return s.centerline, nil
}

// ControlPoints returns a copy of the current control set.
func (s *Session) ControlPoints() (*track.ControlSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controls == nil {
		return nil, ErrNoTrack
	}
	return s.controls.Clone(), nil
}

// Corners returns the detected corner list for the current geometry.
func (s *Session) Corners() []track.Corner {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]track.Corner, len(s.corners))
	copy(out, s.corners)
	return out
}

// ApplyControlPointEdit moves one control anchor and regenerates the
// dense centerline from the full anchor set. Point counts are preserved;
// the geometry version is bumped so in-flight solves become stale.
func (s *Session) ApplyControlPointEdit(index int, newX, newY float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controls == nil || s.centerline == nil {
		return ErrNoTrack
	}

	edited, err := s.controls.ApplyEdit(index, newX, newY)
	if err != nil {
		return fmt.Errorf("apply edit: %w", err)
	}
	center, err := track.RegenerateCenterline(edited, s.centerline)
	if err != nil {
		return fmt.Errorf("apply edit: %w", err)
	}

	s.controls = edited
	s.centerline = center
	s.corners = track.DetectCorners(center)
	s.geometryVersion++
	return nil
}

// SetWeather replaces the grip conditions. The published line, if any,
// was solved for the old conditions and is dropped.
func (s *Session) SetWeather(w grip.WeatherCondition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weather = w
	s.line = nil
}

// Weather returns the current grip conditions.
func (s *Session) Weather() grip.WeatherCondition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weather
}

// RunSolver computes the optimal line for the current geometry and
// weather. The solve runs outside the session lock; if the geometry
// version moves while it runs, the result is discarded, the previous
// line is retained and ErrStaleSolve is returned.
func (s *Session) RunSolver(ctx context.Context) error {
	s.mu.Lock()
	if s.centerline == nil {
		s.mu.Unlock()
		return ErrNoTrack
	}
	center := s.centerline
	startVersion := s.geometryVersion
	weather := s.weather
	vehicle := s.vehicle
	cfg := s.solverCfg
	s.mu.Unlock()

	s.report("solve")
	mu := grip.EffectiveMu(weather, vehicle.BaseTireGripMu)
	res, err := solver.New(vehicle, cfg).Solve(ctx, center, mu)
	if err != nil {
		return fmt.Errorf("run solver: %w", err)
	}

	s.mu.Lock()
	if s.geometryVersion != startVersion {
		s.mu.Unlock()
		log.Printf("session %s: discarding solve for geometry v%d (now v%d)",
			s.id, startVersion, s.geometryVersion)
		return ErrStaleSolve
	}
	s.line = res
	s.lineVersion = startVersion
	s.mu.Unlock()

	s.report("done")
	return nil
}

// OptimalLine returns the solved line when one exists for the current
// geometry version.
func (s *Session) OptimalLine() (*solver.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.line == nil || s.lineVersion != s.geometryVersion {
		return nil, ErrNoLine
	}
	return s.line, nil
}

// LapTime returns the predicted lap time of the current optimal line.
func (s *Session) LapTime() (float64, error) {
	line, err := s.OptimalLine()
	if err != nil {
		return 0, err
	}
	return line.LapTimeSec, nil
}
