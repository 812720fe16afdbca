package track

import (
	"math"
	"testing"

	"github.com/banshee-data/raceline.report/internal/geom"
)

// stadiumRing walks a stadium outline (two straights joined by two
// semicircles of the given radius) counter-clockwise at roughly ds point
// spacing, starting mid-straight.
func stadiumRing(straight, radius, ds float64) []geom.Point {
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

func TestDetectCornersStadium(t *testing.T) {
	c := assembleCenterline(stadiumRing(200, 40, 2), nil)
	corners := DetectCorners(c)
	if len(corners) != 2 {
		t.Fatalf("detected %d corners, want 2: %+v", len(corners), corners)
	}
	for i, corner := range corners {
		if corner.Number != i+1 {
			t.Errorf("corner %d numbered %d", i, corner.Number)
		}
		if corner.Direction != "L" {
			t.Errorf("corner %d direction %q, want L on a CCW loop", i, corner.Direction)
		}
		// Each semicircle turns through ~pi radians.
		if math.Abs(corner.AngleRad-math.Pi) > 0.4 {
			t.Errorf("corner %d angle %v, want ~pi", i, corner.AngleRad)
		}
		if corner.EndS <= corner.StartS {
			t.Errorf("corner %d: end %v before start %v", i, corner.EndS, corner.StartS)
		}
		if corner.ApexS < corner.StartS || corner.ApexS > corner.EndS {
			t.Errorf("corner %d: apex %v outside [%v,%v]", i, corner.ApexS, corner.StartS, corner.EndS)
		}
	}
}

func TestDetectCornersClockwiseDirection(t *testing.T) {
	ring := stadiumRing(200, 40, 2)
	// Reverse the walk so curvature flips sign.
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
	c := assembleCenterline(ring, nil)
	corners := DetectCorners(c)
	if len(corners) != 2 {
		t.Fatalf("detected %d corners, want 2", len(corners))
	}
	for i, corner := range corners {
		if corner.Direction != "R" {
			t.Errorf("corner %d direction %q, want R on a CW loop", i, corner.Direction)
		}
	}
}

func TestDetectCornersIgnoresGentleCurvature(t *testing.T) {
	// A huge circle bends everywhere but below the corner threshold.
	c := assembleCenterline(circleRing(600, 500), nil)
	if corners := DetectCorners(c); len(corners) != 0 {
		t.Errorf("detected %d corners on a near-straight loop, want 0", len(corners))
	}
}
