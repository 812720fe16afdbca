package solver

import (
	"math"

	"github.com/banshee-data/raceline.report/internal/geom"
)

// corridorFraction bounds the lateral offset to a fraction of the track
// width so the line stays on the paved surface with margin.
const corridorFraction = 0.45

// offsetPath shifts each point toward the inside of its corner. Positive
// curvature is a left turn, so the shift goes along the left normal with
// sign opposite the curvature flipped inward. Offsets are smoothed
// circularly before application to avoid kinks at corner entry and exit.
func (s *Solver) offsetPath(ring []geom.Point, curv []float64, c *geom.Centerline) []geom.Point {
	n := len(ring)
	maxOffset := corridorFraction * s.cfg.TrackWidthM
	offsets := make([]float64, n)
	for i := 0; i < n; i++ {
		k := curv[i]
		if math.Abs(k) < MinCurvature {
			continue
		}
		mag := math.Min(math.Abs(k)*s.cfg.OffsetGain, maxOffset)
		if k > 0 {
			offsets[i] = mag
		} else {
			offsets[i] = -mag
		}
	}
	smoothed := geom.GaussianSmoothCircular(offsets, s.cfg.OffsetSmoothSigma)

	out := make([]geom.Point, n)
	for i := 0; i < n; i++ {
		h := c.Points[i].Heading
		// Left normal of the direction of travel.
		nx, ny := -math.Sin(h), math.Cos(h)
		out[i] = geom.Point{
			X: ring[i].X + smoothed[i]*nx,
			Y: ring[i].Y + smoothed[i]*ny,
		}
	}
	return out
}
