package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// IndexedPoint is a 2D point carrying its position in the source slice so
// nearest-neighbour queries can report which input point matched.
type IndexedPoint struct {
	X, Y float64
	Idx  int
}

// Compare returns the signed distance of p from the plane through q along
// dimension d.
func (p IndexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(IndexedPoint)
	switch d {
	case 0:
		return p.X - q.X
	default:
		return p.Y - q.Y
	}
}

// Dims returns the number of dimensions described by the point.
func (p IndexedPoint) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between p and c.
func (p IndexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(IndexedPoint)
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// indexedPoints implements kdtree.Interface over a slice of IndexedPoint.
type indexedPoints []IndexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Pivot(d kdtree.Dim) int                { return plane{indexedPoints: p, Dim: d}.Pivot() }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane is a helper for partitioning indexedPoints along one dimension.
type plane struct {
	kdtree.Dim
	indexedPoints
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.indexedPoints[i].X < p.indexedPoints[j].X
	default:
		return p.indexedPoints[i].Y < p.indexedPoints[j].Y
	}
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.indexedPoints = p.indexedPoints[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

// SpatialIndex is a kd-tree over 2D points supporting nearest-neighbour and
// fixed-radius queries. It is used for lap deduplication and for mapping
// control points back onto the dense centerline.
type SpatialIndex struct {
	tree *kdtree.Tree
}

// BuildSpatialIndex constructs a kd-tree over the given points. The index
// keeps the original slice positions so queries can be related back to the
// input.
func BuildSpatialIndex(pts []Point) *SpatialIndex {
	data := make(indexedPoints, len(pts))
	for i, p := range pts {
		data[i] = IndexedPoint{X: p.X, Y: p.Y, Idx: i}
	}
	return &SpatialIndex{tree: kdtree.New(data, false)}
}

// Nearest returns the index of the closest input point to the query and
// its Euclidean distance. An empty index reports (-1, +Inf).
func (s *SpatialIndex) Nearest(q Point) (int, float64) {
	if s.tree == nil || s.tree.Len() == 0 {
		return -1, math.Inf(1)
	}
	got, d2 := s.tree.Nearest(IndexedPoint{X: q.X, Y: q.Y, Idx: -1})
	if got == nil {
		return -1, math.Inf(1)
	}
	return got.(IndexedPoint).Idx, math.Sqrt(d2)
}

// Within returns the indices of all input points within radius of the
// query, in no particular order.
func (s *SpatialIndex) Within(q Point, radius float64) []int {
	if s.tree == nil || s.tree.Len() == 0 || radius <= 0 {
		return nil
	}
	keep := kdtree.NewDistKeeper(radius * radius)
	s.tree.NearestSet(keep, IndexedPoint{X: q.X, Y: q.Y, Idx: -1})
	var out []int
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		out = append(out, c.Comparable.(IndexedPoint).Idx)
	}
	return out
}
