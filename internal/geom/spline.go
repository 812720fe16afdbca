package geom

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrInsufficientPoints indicates too few distinct points remained to fit a
// closed cubic spline.
var ErrInsufficientPoints = errors.New("insufficient distinct points for closed spline")

// MinPointSpacing is the deduplication threshold in meters. Consecutive
// points closer than this collapse to one before spline fitting.
const MinPointSpacing = 0.1

// MinSplinePoints is the minimum number of distinct points a periodic cubic
// spline needs.
const MinSplinePoints = 4

// ClosedSpline is a periodic cubic spline through an ordered ring of 2D
// points, parametrised by cumulative chord length.
type ClosedSpline struct {
	xs, ys []float64 // distinct ring points
	ts     []float64 // knot parameters, len n+1, ts[n] = period
	mx, my []float64 // second derivatives at knots, len n
}

// FitClosedSpline fits a periodic smoothing spline through an ordered point
// ring. The smoothing argument is a circular Gaussian sigma in samples
// applied to the coordinates before interpolation; zero disables it.
// Near-coincident consecutive points (closer than MinPointSpacing) are
// deduplicated first; fewer than MinSplinePoints distinct survivors is an
// error.
func FitClosedSpline(pts []Point, smoothing float64) (*ClosedSpline, error) {
	distinct := dedupRing(pts)
	if len(distinct) < MinSplinePoints {
		return nil, fmt.Errorf("%w: %d distinct of %d input points, need %d",
			ErrInsufficientPoints, len(distinct), len(pts), MinSplinePoints)
	}

	n := len(distinct)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range distinct {
		xs[i] = p.X
		ys[i] = p.Y
	}
	if smoothing > 0 {
		xs = GaussianSmoothCircular(xs, smoothing)
		ys = GaussianSmoothCircular(ys, smoothing)
	}

	// Chord-length knots. The final interval closes the ring.
	ts := make([]float64, n+1)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		ts[i+1] = ts[i] + math.Hypot(xs[j]-xs[i], ys[j]-ys[i])
	}

	s := &ClosedSpline{xs: xs, ys: ys, ts: ts}
	var err error
	if s.mx, err = solveCyclic(ts, xs); err != nil {
		return nil, fmt.Errorf("periodic spline x solve: %w", err)
	}
	if s.my, err = solveCyclic(ts, ys); err != nil {
		return nil, fmt.Errorf("periodic spline y solve: %w", err)
	}
	return s, nil
}

// dedupRing removes consecutive points closer than MinPointSpacing,
// treating the sequence as a ring (the last survivor must also clear the
// first point).
func dedupRing(pts []Point) []Point {
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if len(out) == 0 || Dist(out[len(out)-1], p) >= MinPointSpacing {
			out = append(out, p)
		}
	}
	for len(out) > 1 && Dist(out[len(out)-1], out[0]) < MinPointSpacing {
		out = out[:len(out)-1]
	}
	return out
}

// solveCyclic computes natural cubic spline second derivatives for a
// periodic knot sequence by solving the cyclic tridiagonal system directly.
func solveCyclic(ts, vals []float64) ([]float64, error) {
	n := len(vals)
	h := func(i int) float64 { return ts[i+1] - ts[i] }
	val := func(i int) float64 { return vals[((i%n)+n)%n] }

	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		prev := (i - 1 + n) % n
		next := (i + 1) % n
		hp := h(prev)
		hi := h(i)
		a.Set(i, prev, a.At(i, prev)+hp/6)
		a.Set(i, i, a.At(i, i)+(hp+hi)/3)
		a.Set(i, next, a.At(i, next)+hi/6)
		b.SetVec(i, (val(i+1)-val(i))/hi-(val(i)-val(i-1))/hp)
	}

	var m mat.VecDense
	if err := m.SolveVec(a, b); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = m.AtVec(i)
	}
	return out, nil
}

// Period returns the total chord-length parameter of the closed curve.
func (s *ClosedSpline) Period() float64 { return s.ts[len(s.ts)-1] }

// segment locates the knot interval containing the wrapped parameter t and
// returns the segment index plus the wrapped parameter.
func (s *ClosedSpline) segment(t float64) (int, float64) {
	period := s.Period()
	t = math.Mod(t, period)
	if t < 0 {
		t += period
	}
	i := sort.SearchFloat64s(s.ts, t)
	if i > 0 && (i >= len(s.ts) || s.ts[i] != t) {
		i--
	}
	if i >= len(s.xs) {
		i = len(s.xs) - 1
	}
	return i, t
}

// At evaluates the spline position at parameter t (wrapped to the period).
func (s *ClosedSpline) At(t float64) Point {
	i, t := s.segment(t)
	j := (i + 1) % len(s.xs)
	h := s.ts[i+1] - s.ts[i]
	u := s.ts[i+1] - t
	v := t - s.ts[i]
	x := s.mx[i]*u*u*u/(6*h) + s.mx[j]*v*v*v/(6*h) +
		(s.xs[i]-s.mx[i]*h*h/6)*u/h + (s.xs[j]-s.mx[j]*h*h/6)*v/h
	y := s.my[i]*u*u*u/(6*h) + s.my[j]*v*v*v/(6*h) +
		(s.ys[i]-s.my[i]*h*h/6)*u/h + (s.ys[j]-s.my[j]*h*h/6)*v/h
	return Point{X: x, Y: y}
}

// Resample returns count points spaced equally by arc length around the
// closed curve, starting at parameter zero. The closing duplicate of the
// first point is not included.
func (s *ClosedSpline) Resample(count int) []Point {
	if count < 2 {
		return []Point{s.At(0)}
	}

	// Dense parameter sweep to build an arc-length table, then invert it.
	dense := 8 * count
	if min := 4 * len(s.xs); dense < min {
		dense = min
	}
	period := s.Period()
	arc := make([]float64, dense+1)
	prev := s.At(0)
	for k := 1; k <= dense; k++ {
		p := s.At(float64(k) * period / float64(dense))
		arc[k] = arc[k-1] + Dist(prev, p)
		prev = p
	}
	total := arc[dense]

	out := make([]Point, count)
	k := 0
	for i := 0; i < count; i++ {
		target := float64(i) * total / float64(count)
		for k < dense && arc[k+1] < target {
			k++
		}
		// Linear interpolation of the parameter inside the dense step.
		t0 := float64(k) * period / float64(dense)
		t1 := float64(k+1) * period / float64(dense)
		var t float64
		if arc[k+1] > arc[k] {
			t = t0 + (t1-t0)*(target-arc[k])/(arc[k+1]-arc[k])
		} else {
			t = t0
		}
		out[i] = s.At(t)
	}
	return out
}
