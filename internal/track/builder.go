// Package track reconstructs a closed race-track centerline from raw,
// possibly multi-lap GPS telemetry. The pipeline filters invalid samples,
// splits the recording into laps, averages near-coincident points across
// laps, fits a periodic smoothing spline, and attaches elevation from an
// external provider.
package track

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/banshee-data/raceline.report/internal/geom"
)

// ErrNoGpsData indicates the telemetry contained too few usable GPS fixes
// to reconstruct a track.
var ErrNoGpsData = errors.New("no usable GPS data")

// RawGpsSample is one GPS telemetry fix. Speed and elevation are optional;
// samples are expected in timestamp order and may span several laps.
type RawGpsSample struct {
	Timestamp  time.Time
	Lat        float64
	Lon        float64
	SpeedMps   *float64
	ElevationM *float64
}

// ElevationProvider supplies terrain elevation for a coordinate. The
// builder treats it as best effort: individual failures are interpolated
// over and total failure degrades to a flat track.
type ElevationProvider interface {
	ElevationFor(lat, lon float64) (float64, error)
}

// BuilderConfig holds the tuning parameters for track reconstruction.
type BuilderConfig struct {
	MinValidSamples   int     // minimum usable fixes before giving up
	ResampleCount     int     // canonical centerline resolution
	LapCloseRadius    float64 // meters from start that closes a lap
	MinLapDistance    float64 // meters travelled before a lap may close
	ClusterRadius     float64 // cross-lap dedup radius in meters
	SplineSmoothing   float64 // Gaussian sigma (samples) before spline fit
	ControlPointCount int     // sparse editing handles derived per track
	ElevationStride   int     // provider lookups every Nth centerline point
	ElevationSigma    float64 // circular smoothing sigma for elevations
	FlatTrack         bool    // skip elevation entirely
	StartFinishLat    float64 // start/finish anchor latitude, NaN = unset
	StartFinishLon    float64 // start/finish anchor longitude, NaN = unset
}

// DefaultBuilderConfig returns the builder defaults.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		MinValidSamples:   20,
		ResampleCount:     1000,
		LapCloseRadius:    25,
		MinLapDistance:    500,
		ClusterRadius:     6,
		SplineSmoothing:   3,
		ControlPointCount: 48,
		ElevationStride:   4,
		ElevationSigma:    5,
		StartFinishLat:    math.NaN(),
		StartFinishLon:    math.NaN(),
	}
}

// Builder converts raw GPS samples into a closed centerline.
type Builder struct {
	cfg      BuilderConfig
	elev     ElevationProvider
	progress func(stage string)
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithElevationProvider attaches an elevation source. Without one the
// builder falls back to sample elevations, then to a flat track.
func WithElevationProvider(p ElevationProvider) BuilderOption {
	return func(b *Builder) { b.elev = p }
}

// WithProgress attaches a coarse per-stage progress callback.
func WithProgress(fn func(stage string)) BuilderOption {
	return func(b *Builder) { b.progress = fn }
}

// NewBuilder creates a Builder with the given configuration.
func NewBuilder(cfg BuilderConfig, opts ...BuilderOption) *Builder {
	b := &Builder{cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result is the output of a successful build.
type Result struct {
	Centerline   *geom.Centerline
	Controls     *ControlSet
	Corners      []Corner
	CenterLat    float64
	CenterLon    float64
	LapCount     int
	ReferenceLap int
}

// projected is a GPS sample in the local meter frame, keeping its source
// coordinate for elevation lookups.
type projected struct {
	pt   geom.Point
	lat  float64
	lon  float64
	elev *float64
}

func (b *Builder) report(stage string) {
	if b.progress != nil {
		b.progress(stage)
	}
}

// Build runs the full reconstruction pipeline.
func (b *Builder) Build(samples []RawGpsSample) (*Result, error) {
	b.report("filter")
	valid := filterSamples(samples)
	if len(valid) < b.cfg.MinValidSamples {
		return nil, fmt.Errorf("%w: %d valid of %d samples, need %d",
			ErrNoGpsData, len(valid), len(samples), b.cfg.MinValidSamples)
	}

	centerLat, centerLon := boundsCenter(valid)
	proj := make([]projected, len(valid))
	pts := make([]geom.Point, len(valid))
	for i, s := range valid {
		p := geom.ProjectLocal(s.Lat, s.Lon, centerLat, centerLon)
		proj[i] = projected{pt: p, lat: s.Lat, lon: s.Lon, elev: s.ElevationM}
		pts[i] = p
	}

	b.report("laps")
	index := geom.BuildSpatialIndex(pts)
	laps := detectLaps(pts, index, b.cfg.LapCloseRadius, b.cfg.MinLapDistance)
	ref := selectReferenceLap(pts, laps)

	b.report("dedup")
	cleaned := clusterAverage(pts, index, laps[ref], b.cfg.ClusterRadius)

	b.report("spline")
	spline, err := geom.FitClosedSpline(cleaned, b.cfg.SplineSmoothing)
	if err != nil {
		return nil, fmt.Errorf("centerline fit: %w", err)
	}
	ring := spline.Resample(b.cfg.ResampleCount)
	center := assembleCenterline(ring, nil)

	b.report("elevation")
	if err := b.mergeElevation(center, proj, centerLat, centerLon); err != nil {
		return nil, err
	}

	if !math.IsNaN(b.cfg.StartFinishLat) && !math.IsNaN(b.cfg.StartFinishLon) {
		sf := geom.ProjectLocal(b.cfg.StartFinishLat, b.cfg.StartFinishLon, centerLat, centerLon)
		center = AnchorStartFinish(center, sf)
	}

	b.report("controls")
	controls := DeriveControlPoints(center, b.cfg.ControlPointCount)
	corners := DetectCorners(center)

	return &Result{
		Centerline:   center,
		Controls:     controls,
		Corners:      corners,
		CenterLat:    centerLat,
		CenterLon:    centerLon,
		LapCount:     len(laps),
		ReferenceLap: ref,
	}, nil
}

// filterSamples drops fixes with missing or out-of-range coordinates. An
// exact (0,0) fix is GPS cold-start noise, not a place on a race track.
func filterSamples(samples []RawGpsSample) []RawGpsSample {
	out := make([]RawGpsSample, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Lat) || math.IsNaN(s.Lon) {
			continue
		}
		if s.Lat < -90 || s.Lat > 90 || s.Lon < -180 || s.Lon > 180 {
			continue
		}
		if s.Lat == 0 && s.Lon == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// boundsCenter returns the midpoint of the sample bounding box, used as
// the flat-earth projection origin.
func boundsCenter(samples []RawGpsSample) (lat, lon float64) {
	minLat, maxLat := samples[0].Lat, samples[0].Lat
	minLon, maxLon := samples[0].Lon, samples[0].Lon
	for _, s := range samples[1:] {
		minLat = math.Min(minLat, s.Lat)
		maxLat = math.Max(maxLat, s.Lat)
		minLon = math.Min(minLon, s.Lon)
		maxLon = math.Max(maxLon, s.Lon)
	}
	return (minLat + maxLat) / 2, (minLon + maxLon) / 2
}

// assembleCenterline turns a resampled open ring into a closed centerline
// with arc length, curvature and heading per point. The ring's first point
// is duplicated at the end so the closure invariant holds structurally.
// elevations, when non-nil, must match the ring length.
func assembleCenterline(ring []geom.Point, elevations []float64) *geom.Centerline {
	arcs := geom.ArcLengths(ring)
	curv := geom.EstimateCurvature(ring)
	head := geom.Headings(ring)

	points := make([]geom.TrackPoint, len(ring)+1)
	for i, p := range ring {
		points[i] = geom.TrackPoint{
			ArcLength: arcs[i],
			X:         p.X,
			Y:         p.Y,
			Curvature: curv[i],
			Heading:   head[i],
		}
		if elevations != nil {
			points[i].Elevation = elevations[i]
		}
	}
	closing := points[0]
	closing.ArcLength = arcs[len(ring)]
	points[len(ring)] = closing

	return &geom.Centerline{Points: points, TotalLength: arcs[len(ring)]}
}

// AnchorStartFinish rotates a closed centerline so index 0 is the point
// nearest the given local coordinate, rebasing arc length to start there.
// The geometry itself is unchanged; only the seam moves.
func AnchorStartFinish(c *geom.Centerline, sf geom.Point) *geom.Centerline {
	n := c.Len() - 1 // closing duplicate excluded
	if n < 1 {
		return c
	}
	best, bestD := 0, math.Inf(1)
	for i := 0; i < n; i++ {
		d := geom.Dist(geom.Point{X: c.Points[i].X, Y: c.Points[i].Y}, sf)
		if d < bestD {
			best, bestD = i, d
		}
	}
	if best == 0 {
		return c
	}
	ring := make([]geom.Point, n)
	elev := make([]float64, n)
	for i := 0; i < n; i++ {
		p := c.Points[(best+i)%n]
		ring[i] = geom.Point{X: p.X, Y: p.Y}
		elev[i] = p.Elevation
	}
	return assembleCenterline(ring, elev)
}

// mergeElevation attaches elevation to every centerline point, preferring
// the provider, then raw sample elevations, then a flat track. Per-point
// provider failures are bridged by linear interpolation; only a total
// failure degrades the whole track to flat, with a warning rather than an
// error.
func (b *Builder) mergeElevation(c *geom.Centerline, proj []projected, centerLat, centerLon float64) error {
	n := c.Len() - 1 // closing duplicate excluded
	if b.cfg.FlatTrack {
		return nil
	}

	elev := make([]float64, n)
	for i := range elev {
		elev[i] = math.NaN()
	}

	switch {
	case b.elev != nil:
		stride := b.cfg.ElevationStride
		if stride < 1 {
			stride = 1
		}
		ok := 0
		for i := 0; i < n; i += stride {
			lat, lon := geom.UnprojectLocal(geom.Point{X: c.Points[i].X, Y: c.Points[i].Y}, centerLat, centerLon)
			v, err := b.elev.ElevationFor(lat, lon)
			if err != nil {
				continue // bridged below
			}
			elev[i] = v
			ok++
		}
		if ok == 0 {
			log.Printf("track: elevation provider returned no data; using flat track")
			return nil
		}
	case hasSampleElevations(proj):
		samplePts := make([]geom.Point, len(proj))
		for i, p := range proj {
			samplePts[i] = p.pt
		}
		sampleIdx := geom.BuildSpatialIndex(samplePts)
		for i := 0; i < n; i++ {
			near, _ := sampleIdx.Nearest(geom.Point{X: c.Points[i].X, Y: c.Points[i].Y})
			if near >= 0 && proj[near].elev != nil {
				elev[i] = *proj[near].elev
			}
		}
	default:
		return nil // flat track, nothing to merge
	}

	interpolateGapsCircular(elev)
	elev = geom.GaussianSmoothCircular(elev, b.cfg.ElevationSigma)
	normalizeMinZero(elev)

	for i := 0; i < n; i++ {
		c.Points[i].Elevation = elev[i]
	}
	c.Points[n].Elevation = elev[0]
	return nil
}

func hasSampleElevations(proj []projected) bool {
	for _, p := range proj {
		if p.elev != nil {
			return true
		}
	}
	return false
}

// interpolateGapsCircular fills NaN runs by linear interpolation between
// the nearest valid neighbours, wrapping around the ring.
func interpolateGapsCircular(vals []float64) {
	n := len(vals)
	if n == 0 {
		return
	}
	valid := make([]int, 0, n)
	for i, v := range vals {
		if !math.IsNaN(v) {
			valid = append(valid, i)
		}
	}
	if len(valid) == 0 {
		for i := range vals {
			vals[i] = 0
		}
		return
	}
	if len(valid) == 1 {
		for i := range vals {
			vals[i] = vals[valid[0]]
		}
		return
	}
	for k, start := range valid {
		end := valid[(k+1)%len(valid)]
		gap := ((end - start) + n) % n
		if gap <= 1 {
			continue
		}
		for step := 1; step < gap; step++ {
			i := (start + step) % n
			t := float64(step) / float64(gap)
			vals[i] = vals[start] + (vals[end]-vals[start])*t
		}
	}
}

// normalizeMinZero shifts elevations so the lowest point sits at zero.
func normalizeMinZero(vals []float64) {
	if len(vals) == 0 {
		return
	}
	min := vals[0]
	for _, v := range vals[1:] {
		min = math.Min(min, v)
	}
	for i := range vals {
		vals[i] -= min
	}
}
