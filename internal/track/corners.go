package track

import (
	"math"

	"github.com/banshee-data/raceline.report/internal/geom"
)

// Corner describes one detected turn on the centerline, bounded by arc
// length with the apex at peak curvature.
type Corner struct {
	Number    int
	StartS    float64
	EndS      float64
	ApexS     float64
	Direction string // "L" or "R"
	AngleRad  float64
}

// Corner detection thresholds. Hysteresis between the on and off
// curvature thresholds avoids chattering on noisy sections; short or
// shallow segments are discarded and nearby same-direction segments merge.
const (
	cornerOnCurvature  = 0.006 // rad/m
	cornerOffCurvature = 0.004
	cornerMinAngle     = 0.12 // rad, ~7 degrees
	cornerMinLength    = 8.0  // meters
	cornerMergeGap     = 25.0 // meters between same-direction segments
)

// DetectCorners segments the centerline curvature into numbered turns.
func DetectCorners(c *geom.Centerline) []Corner {
	n := c.Len() - 1
	if n < 5 {
		return nil
	}

	var raw []Corner
	inCorner := false
	var startIdx, apexIdx int
	var apexCurv, angle float64

	for i := 0; i < n; i++ {
		p := c.Points[i]
		ac := math.Abs(p.Curvature)
		if !inCorner && ac > cornerOnCurvature {
			inCorner = true
			startIdx = i
			apexIdx = i
			apexCurv = p.Curvature
			angle = 0
		}
		if !inCorner {
			continue
		}
		if ac > math.Abs(apexCurv) {
			apexCurv = p.Curvature
			apexIdx = i
		}
		if i > startIdx {
			ds := p.ArcLength - c.Points[i-1].ArcLength
			angle += p.Curvature * ds
		}
		if ac < cornerOffCurvature || i == n-1 {
			length := p.ArcLength - c.Points[startIdx].ArcLength
			if math.Abs(angle) >= cornerMinAngle && length >= cornerMinLength {
				dir := "L"
				if angle < 0 {
					dir = "R"
				}
				raw = append(raw, Corner{
					StartS:    c.Points[startIdx].ArcLength,
					EndS:      p.ArcLength,
					ApexS:     c.Points[apexIdx].ArcLength,
					Direction: dir,
					AngleRad:  angle,
				})
			}
			inCorner = false
		}
	}

	merged := mergeCorners(raw)
	for i := range merged {
		merged[i].Number = i + 1
	}
	return merged
}

// mergeCorners joins same-direction segments separated by less than
// cornerMergeGap so shallow multi-apex bends count once.
func mergeCorners(raw []Corner) []Corner {
	var out []Corner
	for _, c := range raw {
		if len(out) == 0 {
			out = append(out, c)
			continue
		}
		last := &out[len(out)-1]
		if c.Direction == last.Direction && c.StartS-last.EndS < cornerMergeGap {
			if math.Abs(c.AngleRad) > math.Abs(last.AngleRad) {
				last.ApexS = c.ApexS
			}
			last.EndS = c.EndS
			last.AngleRad += c.AngleRad
			continue
		}
		out = append(out, c)
	}
	return out
}
