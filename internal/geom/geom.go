// Package geom provides the shared geometric primitives for track
// reconstruction: flat-earth projection, periodic spline fitting and
// resampling, discrete curvature estimation, and a kd-tree based
// nearest-neighbour index.
package geom

import (
	"math"
)

// EarthRadiusMeters is the spherical earth radius used by the local
// flat-earth projection.
const EarthRadiusMeters = 6378137.0

// CloseTolerance is the maximum gap in meters between the first and last
// point of a closed centerline.
const CloseTolerance = 1e-6

// Point is a 2D position in local track coordinates (meters).
type Point struct {
	X float64
	Y float64
}

// TrackPoint is one sample of a closed centerline. ArcLength is the
// cumulative distance from the start/finish point; Heading is the travel
// direction in radians; Curvature is signed, positive for left turns.
type TrackPoint struct {
	ArcLength float64
	X         float64
	Y         float64
	Elevation float64
	Curvature float64
	Heading   float64
}

// Centerline is a closed ordered sequence of track points. The first and
// last points coincide within CloseTolerance and the last point's ArcLength
// equals TotalLength.
type Centerline struct {
	Points      []TrackPoint
	TotalLength float64
}

// Len returns the number of points on the centerline.
func (c *Centerline) Len() int { return len(c.Points) }

// XYs returns the centerline coordinates as a flat point slice.
func (c *Centerline) XYs() []Point {
	pts := make([]Point, len(c.Points))
	for i, p := range c.Points {
		pts[i] = Point{X: p.X, Y: p.Y}
	}
	return pts
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// ProjectLocal converts latitude/longitude to a local flat-earth Cartesian
// frame centred on (centerLat, centerLon). One unit equals one meter.
func ProjectLocal(lat, lon, centerLat, centerLon float64) Point {
	dLat := (lat - centerLat) * math.Pi / 180
	dLon := (lon - centerLon) * math.Pi / 180
	latRad := centerLat * math.Pi / 180
	return Point{
		X: EarthRadiusMeters * dLon * math.Cos(latRad),
		Y: EarthRadiusMeters * dLat,
	}
}

// UnprojectLocal is the inverse of ProjectLocal: it recovers the
// latitude/longitude of a local point relative to the projection centre.
func UnprojectLocal(p Point, centerLat, centerLon float64) (lat, lon float64) {
	latRad := centerLat * math.Pi / 180
	lat = centerLat + (p.Y/EarthRadiusMeters)*180/math.Pi
	lon = centerLon + (p.X/(EarthRadiusMeters*math.Cos(latRad)))*180/math.Pi
	return lat, lon
}

// GaussianSmoothCircular smooths vals with a Gaussian kernel of the given
// sigma (in samples), wrapping at the ends. Sigma <= 0 returns a copy of the
// input. Matches a periodic gaussian_filter1d with a 4-sigma truncated kernel.
func GaussianSmoothCircular(vals []float64, sigma float64) []float64 {
	n := len(vals)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if sigma <= 0 {
		copy(out, vals)
		return out
	}
	radius := int(math.Ceil(4 * sigma))
	if radius >= n {
		radius = n - 1
	}
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for k := -radius; k <= radius; k++ {
		w := math.Exp(-float64(k*k) / (2 * sigma * sigma))
		kernel[k+radius] = w
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	for i := 0; i < n; i++ {
		var acc float64
		for k := -radius; k <= radius; k++ {
			j := ((i+k)%n + n) % n
			acc += vals[j] * kernel[k+radius]
		}
		out[i] = acc
	}
	return out
}
