package testutil

import (
	"math"
	"testing"
)

func TestCircleCenterlineInvariants(t *testing.T) {
	c := CircleCenterline(360, 50)
	if c.Len() != 361 {
		t.Fatalf("length = %d, want 361", c.Len())
	}
	first, last := c.Points[0], c.Points[c.Len()-1]
	if first.X != last.X || first.Y != last.Y {
		t.Error("centerline not closed")
	}
	if last.ArcLength != c.TotalLength {
		t.Errorf("last arc length %v != total %v", last.ArcLength, c.TotalLength)
	}
	want := 2 * math.Pi * 50
	AssertInDelta(t, c.TotalLength, want, 0.01*want)
}

func TestStadiumCenterlineMixesStraightAndCurve(t *testing.T) {
	c := StadiumCenterline(200, 40, 2)
	var straight, curved int
	for i := 0; i < c.Len()-1; i++ {
		if math.Abs(c.Points[i].Curvature) > 0.01 {
			curved++
		} else if math.Abs(c.Points[i].Curvature) < 0.001 {
			straight++
		}
	}
	if straight == 0 || curved == 0 {
		t.Fatalf("straight=%d curved=%d, want both populated", straight, curved)
	}
}
