package track

import (
	"math"
	"math/rand"
	"testing"

	"github.com/banshee-data/raceline.report/internal/geom"
)

// lapCircle lays out laps*perLap points around a circle. jitter perturbs
// the angular spacing of the given lap only, leaving the others uniform.
func lapCircle(perLap, laps int, radius float64, jitterLap int, jitter float64, seed int64) []geom.Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]geom.Point, 0, perLap*laps)
	for lap := 0; lap < laps; lap++ {
		for i := 0; i < perLap; i++ {
			theta := 2 * math.Pi * float64(i) / float64(perLap)
			if lap == jitterLap && i > 0 {
				theta += jitter * rng.Float64() / float64(perLap)
			}
			pts = append(pts, geom.Point{
				X: radius * math.Cos(theta),
				Y: radius * math.Sin(theta),
			})
		}
	}
	return pts
}

func TestDetectLapsSplitsRepeatedCircuits(t *testing.T) {
	pts := lapCircle(200, 3, 100, -1, 0, 1)
	idx := geom.BuildSpatialIndex(pts)
	laps := detectLaps(pts, idx, 25, 500)
	if len(laps) != 3 {
		t.Fatalf("detected %d laps, want 3", len(laps))
	}
	for i, lr := range laps {
		if lr.End <= lr.Start {
			t.Fatalf("lap %d: empty range [%d,%d)", i, lr.Start, lr.End)
		}
		n := lr.End - lr.Start
		if n < 180 || n > 220 {
			t.Errorf("lap %d: %d samples, want ~200", i, n)
		}
	}
	if laps[0].Start != 0 {
		t.Errorf("first lap starts at %d, want 0", laps[0].Start)
	}
	if laps[len(laps)-1].End != len(pts) {
		t.Errorf("last lap ends at %d, want %d", laps[len(laps)-1].End, len(pts))
	}
}

func TestDetectLapsSinglePass(t *testing.T) {
	pts := lapCircle(200, 1, 100, -1, 0, 1)
	idx := geom.BuildSpatialIndex(pts)
	laps := detectLaps(pts, idx, 25, 500)
	if len(laps) != 1 {
		t.Fatalf("detected %d laps, want 1", len(laps))
	}
	if laps[0].Start != 0 || laps[0].End != len(pts) {
		t.Errorf("lap range [%d,%d), want [0,%d)", laps[0].Start, laps[0].End, len(pts))
	}
}

func TestDetectLapsDiscardsShortTail(t *testing.T) {
	pts := lapCircle(200, 2, 100, -1, 0, 1)
	// A short out-lap after the second crossing should not become a lap.
	pts = append(pts, pts[:20]...)
	idx := geom.BuildSpatialIndex(pts)
	laps := detectLaps(pts, idx, 25, 500)
	if len(laps) != 2 {
		t.Fatalf("detected %d laps, want 2 (tail discarded)", len(laps))
	}
}

func TestSelectReferenceLapPrefersUniformSpacing(t *testing.T) {
	// Lap 0 has jittered spacing; lap 1 is uniform and should win.
	pts := lapCircle(200, 2, 100, 0, 6, 2)
	idx := geom.BuildSpatialIndex(pts)
	laps := detectLaps(pts, idx, 25, 500)
	if len(laps) != 2 {
		t.Fatalf("detected %d laps, want 2", len(laps))
	}
	if got := selectReferenceLap(pts, laps); got != 1 {
		t.Errorf("reference lap = %d, want 1", got)
	}
}

func TestClusterAveragePullsTowardTrueLine(t *testing.T) {
	// Two laps offset radially by +-2m; the cluster centroid should land
	// near the true radius.
	perLap := 300
	var pts []geom.Point
	for _, dr := range []float64{2, -2} {
		for i := 0; i < perLap; i++ {
			theta := 2 * math.Pi * float64(i) / float64(perLap)
			pts = append(pts, geom.Point{
				X: (100 + dr) * math.Cos(theta),
				Y: (100 + dr) * math.Sin(theta),
			})
		}
	}
	idx := geom.BuildSpatialIndex(pts)
	ref := lapRange{Start: 0, End: perLap}
	avg := clusterAverage(pts, idx, ref, 6)
	if len(avg) != perLap {
		t.Fatalf("averaged %d points, want %d", len(avg), perLap)
	}
	for i, p := range avg {
		r := math.Hypot(p.X, p.Y)
		if math.Abs(r-100) > 0.5 {
			t.Fatalf("point %d: radius %v, want ~100", i, r)
		}
	}
}
