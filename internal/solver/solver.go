// Package solver computes a speed-optimal racing line over a closed
// centerline using a friction-circle quasi-steady-state model.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/banshee-data/raceline.report/internal/geom"
)

// Physical and numerical constants for the speed solver.
const (
	Gravity    = 9.80665 // m/s^2
	AirDensity = 1.225   // kg/m^3, sea level

	// MinCurvature is the magnitude below which a point counts as
	// straight and is capped by vMax instead of the lateral limit.
	MinCurvature = 1e-6

	// ConvergenceTol ends the forward/backward iteration once the
	// largest per-point speed decrease falls below it.
	ConvergenceTol = 1e-6
	MaxIterations  = 32

	// A track shorter than MinTrackLength or sparser than
	// MinTrackPoints cannot support a meaningful solve.
	MinTrackLength = 10.0
	MinTrackPoints = 8

	// floorSpeed guards the power-limited acceleration term near
	// standstill.
	floorSpeed = 1.0
)

var (
	ErrDegenerateTrack = errors.New("track too short or too sparse to solve")
	ErrInvalidGrip     = errors.New("effective grip must be positive")
)

// LinePoint is one sample of the solved racing line. TargetSpeed is the
// quasi-steady-state speed the model sustains through the point.
type LinePoint struct {
	ArcLength   float64
	X           float64
	Y           float64
	Elevation   float64
	TargetSpeed float64
	Curvature   float64
}

// Config holds the optional line-shaping knobs. The default solve runs on
// the centerline itself; lateral adjustment shifts the path toward corner
// insides within a corridor before solving speeds.
type Config struct {
	LateralAdjustment bool
	// OffsetGain converts curvature (rad/m) to lateral offset meters.
	OffsetGain float64
	// TrackWidthM bounds the corridor; the offset magnitude never
	// exceeds 45% of it.
	TrackWidthM       float64
	OffsetSmoothSigma float64
}

func DefaultConfig() Config {
	return Config{
		LateralAdjustment: false,
		OffsetGain:        200,
		TrackWidthM:       12,
		OffsetSmoothSigma: 8,
	}
}

// Result is a complete solve: the line (closed, last point duplicates the
// first) plus the integrated lap time.
type Result struct {
	Points     []LinePoint
	LapTimeSec float64
	Iterations int
	Mu         float64
}

type Solver struct {
	vp  VehicleProfile
	cfg Config
}

func New(vp VehicleProfile, cfg Config) *Solver {
	return &Solver{vp: vp, cfg: cfg}
}

// Solve computes target speeds along the centerline for the given
// weather-effective grip coefficient. The context is checked between
// iterations so long solves can be cancelled cooperatively.
func (s *Solver) Solve(ctx context.Context, c *geom.Centerline, mu float64) (*Result, error) {
	if mu <= 0 {
		return nil, fmt.Errorf("%w: mu=%v", ErrInvalidGrip, mu)
	}
	if c == nil || c.Len()-1 < MinTrackPoints || c.TotalLength < MinTrackLength {
		return nil, fmt.Errorf("%w", ErrDegenerateTrack)
	}

	n := c.Len() - 1 // closing duplicate excluded from the ring
	ring := make([]geom.Point, n)
	elev := make([]float64, n)
	curv := make([]float64, n)
	for i := 0; i < n; i++ {
		ring[i] = geom.Point{X: c.Points[i].X, Y: c.Points[i].Y}
		elev[i] = c.Points[i].Elevation
		curv[i] = c.Points[i].Curvature
	}

	if s.cfg.LateralAdjustment {
		ring = s.offsetPath(ring, curv, c)
		curv = geom.EstimateCurvature(ring)
	}
	arcs := geom.ArcLengths(ring)
	total := arcs[n]

	vmax := s.maxStraightSpeed()
	v := make([]float64, n)
	aLat := math.Min(mu, s.vp.MaxLateralG) * Gravity
	for i := 0; i < n; i++ {
		k := math.Abs(curv[i])
		if k < MinCurvature {
			v[i] = vmax
			continue
		}
		v[i] = math.Min(vmax, math.Sqrt(aLat/k))
	}

	iters, err := s.iterate(ctx, v, arcs, mu)
	if err != nil {
		return nil, err
	}

	points := make([]LinePoint, n+1)
	for i := 0; i < n; i++ {
		points[i] = LinePoint{
			ArcLength:   arcs[i],
			X:           ring[i].X,
			Y:           ring[i].Y,
			Elevation:   elev[i],
			TargetSpeed: v[i],
			Curvature:   curv[i],
		}
	}
	points[n] = points[0]
	points[n].ArcLength = total

	res := &Result{
		Points:     points,
		LapTimeSec: lapTime(v, arcs),
		Iterations: iters,
		Mu:         mu,
	}
	log.Printf("solver: %d points, mu=%.3f, %d iterations, lap %.2fs", n, mu, iters, res.LapTimeSec)
	return res, nil
}

// iterate runs alternating forward (traction-limited) and backward
// (braking-limited) passes over the closed ring until speeds stop
// decreasing. Both passes wrap across the start/finish seam so the
// solution is independent of where the lap nominally begins.
func (s *Solver) iterate(ctx context.Context, v, arcs []float64, mu float64) (int, error) {
	n := len(v)
	ds := func(i int) float64 { return arcs[i+1] - arcs[i] }
	aBrake := math.Min(s.vp.MaxBrakingG, mu) * Gravity

	for iter := 1; iter <= MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return iter, err
		}
		maxDrop := 0.0

		// Forward: entry speed plus available drive must reach the
		// next point's speed. Two wraps let constraints propagate
		// across the seam within one pass.
		for step := 0; step < 2*n; step++ {
			i := step % n
			j := (i + 1) % n
			sp := math.Max(v[i], floorSpeed)
			aDrive := math.Min(s.vp.MaxPowerW/(s.vp.MassKg*sp), mu*Gravity)
			limit := math.Sqrt(v[i]*v[i] + 2*aDrive*ds(i))
			if v[j] > limit {
				maxDrop = math.Max(maxDrop, v[j]-limit)
				v[j] = limit
			}
		}

		// Backward: speed at a point must allow braking down to the
		// next point's speed.
		for step := 2*n - 1; step >= 0; step-- {
			i := step % n
			j := (i + 1) % n
			limit := math.Sqrt(v[j]*v[j] + 2*aBrake*ds(i))
			if v[i] > limit {
				maxDrop = math.Max(maxDrop, v[i]-limit)
				v[i] = limit
			}
		}

		if maxDrop < ConvergenceTol {
			return iter, nil
		}
	}
	return MaxIterations, nil
}

// maxStraightSpeed is the speed cap on straights: the lower of the
// declared top speed and the aero drag power balance.
func (s *Solver) maxStraightSpeed() float64 {
	limit := s.vp.TopSpeedMps
	cda := s.vp.DragCoeff * s.vp.FrontalAreaM2
	if cda > 0 && s.vp.MaxPowerW > 0 {
		vd := math.Cbrt(2 * s.vp.MaxPowerW / (AirDensity * cda))
		limit = math.Min(limit, vd)
	}
	return limit
}

// lapTime integrates ds/v trapezoidally around the closed ring.
func lapTime(v, arcs []float64) float64 {
	n := len(v)
	var t float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		mean := (v[i] + v[j]) / 2
		if mean < floorSpeed {
			mean = floorSpeed
		}
		t += (arcs[i+1] - arcs[i]) / mean
	}
	return t
}
