package track

import (
	"math"
	"sort"

	"github.com/banshee-data/raceline.report/internal/geom"
)

// lapRange is a half-open [Start, End) slice of the sample sequence
// covering one detected lap.
type lapRange struct {
	Start int
	End   int
}

// visitGroupGap is the maximum sample-index gap within one pass near the
// start point; larger gaps begin a new visit.
const visitGroupGap = 5

// detectLaps splits the recorded path into laps. A lap closes when the
// path re-enters closeRadius of the starting point after travelling at
// least minLapDistance. The near-start set comes from the spatial index so
// the split does not depend on sample ordering quirks; visits are grouped
// from consecutive index runs.
func detectLaps(pts []geom.Point, index *geom.SpatialIndex, closeRadius, minLapDistance float64) []lapRange {
	if len(pts) < 2 {
		return []lapRange{{Start: 0, End: len(pts)}}
	}

	cum := make([]float64, len(pts))
	for i := 1; i < len(pts); i++ {
		cum[i] = cum[i-1] + geom.Dist(pts[i-1], pts[i])
	}

	nearStart := index.Within(pts[0], closeRadius)
	sort.Ints(nearStart)

	var boundaries []int
	lastBoundary := 0
	visitStart := -1
	prev := -visitGroupGap - 1
	flush := func() {
		if visitStart < 0 {
			return
		}
		if cum[visitStart]-cum[lastBoundary] >= minLapDistance {
			boundaries = append(boundaries, visitStart)
			lastBoundary = visitStart
		}
		visitStart = -1
	}
	for _, i := range nearStart {
		if i-prev > visitGroupGap {
			flush()
			visitStart = i
		}
		prev = i
	}
	flush()

	if len(boundaries) == 0 {
		return []lapRange{{Start: 0, End: len(pts)}}
	}

	var laps []lapRange
	start := 0
	for _, b := range boundaries {
		laps = append(laps, lapRange{Start: start, End: b})
		start = b
	}
	// The tail after the final boundary is kept only if it amounts to a
	// full lap on its own; otherwise it is a partial lap and is dropped.
	if cum[len(pts)-1]-cum[start] >= minLapDistance {
		laps = append(laps, lapRange{Start: start, End: len(pts)})
	}
	if len(laps) == 0 {
		laps = []lapRange{{Start: 0, End: len(pts)}}
	}
	return laps
}

// selectReferenceLap picks the lap with the most consistent sample
// density, measured as the coefficient of variation of consecutive sample
// spacing. Ties go to the longer lap.
func selectReferenceLap(pts []geom.Point, laps []lapRange) int {
	best := 0
	bestCV := math.Inf(1)
	bestLen := 0.0
	for i, lap := range laps {
		cv, length := lapSpacingStats(pts, lap)
		const tie = 1e-3
		if cv < bestCV-tie || (math.Abs(cv-bestCV) <= tie && length > bestLen) {
			best = i
			bestCV = cv
			bestLen = length
		}
	}
	return best
}

// lapSpacingStats returns the coefficient of variation of consecutive
// sample spacing within a lap, and the lap's arc length.
func lapSpacingStats(pts []geom.Point, lap lapRange) (cv, length float64) {
	n := lap.End - lap.Start
	if n < 3 {
		return math.Inf(1), 0
	}
	var sum float64
	dists := make([]float64, 0, n-1)
	for i := lap.Start + 1; i < lap.End; i++ {
		d := geom.Dist(pts[i-1], pts[i])
		dists = append(dists, d)
		sum += d
	}
	mean := sum / float64(len(dists))
	if mean <= 0 {
		return math.Inf(1), 0
	}
	var varsum float64
	for _, d := range dists {
		varsum += (d - mean) * (d - mean)
	}
	std := math.Sqrt(varsum / float64(len(dists)))
	return std / mean, sum
}

// clusterAverage walks the reference lap and replaces each point with the
// centroid of all samples (any lap) within radius of it. Averaging across
// laps cancels per-lap GPS noise without requiring the laps to agree
// point for point.
func clusterAverage(pts []geom.Point, index *geom.SpatialIndex, ref lapRange, radius float64) []geom.Point {
	out := make([]geom.Point, 0, ref.End-ref.Start)
	for i := ref.Start; i < ref.End; i++ {
		members := index.Within(pts[i], radius)
		if len(members) == 0 {
			out = append(out, pts[i])
			continue
		}
		var sx, sy float64
		for _, m := range members {
			sx += pts[m].X
			sy += pts[m].Y
		}
		out = append(out, geom.Point{
			X: sx / float64(len(members)),
			Y: sy / float64(len(members)),
		})
	}
	return out
}
