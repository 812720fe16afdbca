// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/raceline.report/internal/geom"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertInDelta fails the test unless got is within delta of want.
func AssertInDelta(t *testing.T, got, want, delta float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > delta {
		t.Errorf("value = %v, want %v +- %v", got, want, delta)
	}
}

// CircleRing returns n points on a counter-clockwise circle of the given
// radius centred on the origin, without a closing duplicate.
func CircleRing(n int, radius float64) []geom.Point {
	pts := make([]geom.Point, n)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = geom.Point{X: radius * math.Cos(theta), Y: radius * math.Sin(theta)}
	}
	return pts
}

// StadiumRing returns points on a stadium outline (two straights of the
// given length joined by semicircles of the given radius), walked
// counter-clockwise at roughly ds spacing starting mid-straight.
func StadiumRing(straight, radius, ds float64) []geom.Point {
	segLens := []float64{
		straight / 2,
		math.Pi * radius,
		straight,
		math.Pi * radius,
		straight / 2,
	}
	total := 0.0
	for _, l := range segLens {
		total += l
	}
	n := int(total / ds)
	pts := make([]geom.Point, 0, n)
	for i := 0; i < n; i++ {
		s := total * float64(i) / float64(n)
		switch {
		case s < segLens[0]:
			pts = append(pts, geom.Point{X: s, Y: -radius})
		case s < segLens[0]+segLens[1]:
			theta := -math.Pi/2 + (s-segLens[0])/radius
			pts = append(pts, geom.Point{
				X: straight/2 + radius*math.Cos(theta),
				Y: radius * math.Sin(theta),
			})
		case s < segLens[0]+segLens[1]+segLens[2]:
			d := s - segLens[0] - segLens[1]
			pts = append(pts, geom.Point{X: straight/2 - d, Y: radius})
		case s < segLens[0]+segLens[1]+segLens[2]+segLens[3]:
			theta := math.Pi/2 + (s-segLens[0]-segLens[1]-segLens[2])/radius
			pts = append(pts, geom.Point{
				X: -straight/2 + radius*math.Cos(theta),
				Y: radius * math.Sin(theta),
			})
		default:
			d := s - total + segLens[4]
			pts = append(pts, geom.Point{X: -straight/2 + d, Y: -radius})
		}
	}
	return pts
}

// Centerline assembles a closed centerline (arc length, curvature,
// heading, closing duplicate) from an open ring of points.
func Centerline(ring []geom.Point) *geom.Centerline {
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
	}
	closing := points[0]
	closing.ArcLength = arcs[len(ring)]
	points[len(ring)] = closing
	return &geom.Centerline{Points: points, TotalLength: arcs[len(ring)]}
}

// CircleCenterline is CircleRing plus assembly into a closed centerline.
func CircleCenterline(n int, radius float64) *geom.Centerline {
	return Centerline(CircleRing(n, radius))
}

// StadiumCenterline is StadiumRing plus assembly into a closed centerline.
func StadiumCenterline(straight, radius, ds float64) *geom.Centerline {
	return Centerline(StadiumRing(straight, radius, ds))
}
