package geom

import (
	"math"
)

const (
	// MaxCurvature clamps curvature magnitude to a minimum turn radius of
	// one meter so near-duplicate points cannot produce singular values.
	MaxCurvature = 1.0
	// MinSegmentLength is the spacing below which neighbouring points are
	// treated as coincident and curvature reports zero.
	MinSegmentLength = 1e-9
	// DefaultCurvatureWindow is the moving-average window (in points)
	// applied to the raw curvature estimate to damp GPS noise.
	DefaultCurvatureWindow = 5
)

// EstimateCurvature computes signed curvature at each point of a closed
// point ring using discrete first and second derivatives with respect to
// arc length. Positive curvature is a left turn in the direction of travel.
// The result is smoothed with a circular moving average of
// DefaultCurvatureWindow points.
func EstimateCurvature(pts []Point) []float64 {
	return EstimateCurvatureWindow(pts, DefaultCurvatureWindow)
}

// EstimateCurvatureWindow is EstimateCurvature with an explicit smoothing
// window. A window of one or less disables smoothing.
func EstimateCurvatureWindow(pts []Point, window int) []float64 {
	n := len(pts)
	curv := make([]float64, n)
	if n < 3 {
		return curv
	}
	for i := 0; i < n; i++ {
		prev := pts[(i-1+n)%n]
		cur := pts[i]
		next := pts[(i+1)%n]

		ds1 := Dist(prev, cur)
		ds2 := Dist(cur, next)
		if ds1 < MinSegmentLength || ds2 < MinSegmentLength {
			curv[i] = 0
			continue
		}

		// Non-uniform central differences with respect to arc length.
		dx := (next.X - prev.X) / (ds1 + ds2)
		dy := (next.Y - prev.Y) / (ds1 + ds2)
		ddx := 2 * (ds1*(next.X-cur.X) - ds2*(cur.X-prev.X)) / (ds1 * ds2 * (ds1 + ds2))
		ddy := 2 * (ds1*(next.Y-cur.Y) - ds2*(cur.Y-prev.Y)) / (ds1 * ds2 * (ds1 + ds2))

		speed := math.Hypot(dx, dy)
		if speed < MinSegmentLength {
			curv[i] = 0
			continue
		}
		k := (dx*ddy - dy*ddx) / (speed * speed * speed)
		if k > MaxCurvature {
			k = MaxCurvature
		} else if k < -MaxCurvature {
			k = -MaxCurvature
		}
		curv[i] = k
	}
	return smoothCircular(curv, window)
}

// Headings returns the travel direction in radians at each point of a
// closed ring, from central differences.
func Headings(pts []Point) []float64 {
	n := len(pts)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	for i := 0; i < n; i++ {
		prev := pts[(i-1+n)%n]
		next := pts[(i+1)%n]
		out[i] = math.Atan2(next.Y-prev.Y, next.X-prev.X)
	}
	return out
}

// ArcLengths returns the cumulative Euclidean distance along the ring,
// including the closing distance back to the first point as the final
// entry. len(result) == len(pts)+1; the last value is the total length.
func ArcLengths(pts []Point) []float64 {
	out := make([]float64, len(pts)+1)
	for i := 1; i <= len(pts); i++ {
		out[i] = out[i-1] + Dist(pts[i-1], pts[i%len(pts)])
	}
	return out
}

// smoothCircular applies a centred moving average with wrap-around.
func smoothCircular(vals []float64, window int) []float64 {
	n := len(vals)
	if window <= 1 || n == 0 {
		return vals
	}
	half := window / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for k := -half; k <= half; k++ {
			sum += vals[((i+k)%n+n)%n]
		}
		out[i] = sum / float64(2*half+1)
	}
	return out
}
