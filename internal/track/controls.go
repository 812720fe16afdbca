package track

import (
	"fmt"
	"sort"

	"github.com/banshee-data/raceline.report/internal/geom"
)

// ControlPoint is a sparse, user-editable anchor on the centerline. Edits
// move anchors; the dense centerline is regenerated from the full anchor
// sequence, so the point counts never change.
type ControlPoint struct {
	Index int
	X     float64
	Y     float64
}

// ControlSet is the ordered control points of one centerline plus the
// mapping from control index to the nearest dense centerline index.
type ControlSet struct {
	Points        []ControlPoint
	CenterIndices []int
	// Resolution is the dense point count regeneration must reproduce.
	Resolution int
}

// Clone returns a deep copy of the control set.
func (cs *ControlSet) Clone() *ControlSet {
	out := &ControlSet{
		Points:        make([]ControlPoint, len(cs.Points)),
		CenterIndices: make([]int, len(cs.CenterIndices)),
		Resolution:    cs.Resolution,
	}
	copy(out.Points, cs.Points)
	copy(out.CenterIndices, cs.CenterIndices)
	return out
}

// DeriveControlPoints subsamples the centerline at fixed arc-length
// intervals into count editing handles, recording for each handle the
// nearest dense centerline index.
func DeriveControlPoints(c *geom.Centerline, count int) *ControlSet {
	if count < geom.MinSplinePoints {
		count = geom.MinSplinePoints
	}
	n := c.Len() - 1 // closing duplicate excluded
	cs := &ControlSet{
		Points:        make([]ControlPoint, count),
		CenterIndices: make([]int, count),
		Resolution:    n,
	}
	for i := 0; i < count; i++ {
		target := float64(i) * c.TotalLength / float64(count)
		idx := sort.Search(n, func(j int) bool { return c.Points[j].ArcLength >= target })
		if idx > 0 && (idx >= n || c.Points[idx].ArcLength-target > target-c.Points[idx-1].ArcLength) {
			idx--
		}
		cs.Points[i] = ControlPoint{Index: i, X: c.Points[idx].X, Y: c.Points[idx].Y}
		cs.CenterIndices[i] = idx
	}
	return cs
}

// ApplyEdit returns a copy of the control set with one anchor moved. The
// control point count is never changed by an edit.
func (cs *ControlSet) ApplyEdit(index int, newX, newY float64) (*ControlSet, error) {
	if index < 0 || index >= len(cs.Points) {
		return nil, fmt.Errorf("control point index %d out of range [0,%d)", index, len(cs.Points))
	}
	out := cs.Clone()
	out.Points[index].X = newX
	out.Points[index].Y = newY
	return out, nil
}

// RegenerateCenterline rebuilds the dense centerline from the full control
// point sequence. It is a pure function of the control set: the spline is
// re-fitted through every anchor (not patched around the edited one) and
// resampled at the set's recorded resolution, so edits perturb geometry
// without ever changing point counts. Elevations are carried over from the
// previous centerline by nearest-neighbour lookup.
func RegenerateCenterline(cs *ControlSet, prev *geom.Centerline) (*geom.Centerline, error) {
	anchors := make([]geom.Point, len(cs.Points))
	for i, cp := range cs.Points {
		anchors[i] = geom.Point{X: cp.X, Y: cp.Y}
	}
	spline, err := geom.FitClosedSpline(anchors, 0)
	if err != nil {
		return nil, fmt.Errorf("control point refit: %w", err)
	}
	ring := spline.Resample(cs.Resolution)
	center := assembleCenterline(ring, nil)

	if prev != nil && prev.Len() > 1 {
		prevIdx := geom.BuildSpatialIndex(prev.XYs()[:prev.Len()-1])
		for i := 0; i < center.Len()-1; i++ {
			near, _ := prevIdx.Nearest(geom.Point{X: center.Points[i].X, Y: center.Points[i].Y})
			if near >= 0 {
				center.Points[i].Elevation = prev.Points[near].Elevation
			}
		}
		center.Points[center.Len()-1].Elevation = center.Points[0].Elevation
	}
	return center, nil
}
