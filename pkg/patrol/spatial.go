package patrol

import (
	"cmp"
	"image"
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
)

// pointSize is the side length of the degenerate rectangle stored for each
// vertex; rtreego rejects zero-length sides.
const pointSize = 1e-9

// vertexEntry wraps a vertex position for R-tree storage.
type vertexEntry struct {
	id   int
	x, y float64
	bbox rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *vertexEntry) Bounds() rtreego.Rect { return e.bbox }

// spatialIndex answers nearest-vertex queries over vertex positions.
type spatialIndex struct {
	tree *rtreego.Rtree
	size int
}

func newSpatialIndex(positions []image.Point) *spatialIndex {
	tree := rtreego.NewTree(2, 25, 50)
	idx := &spatialIndex{tree: tree}
	for i, p := range positions {
		x, y := float64(p.X), float64(p.Y)
		bbox, err := rtreego.NewRect(rtreego.Point{x, y}, []float64{pointSize, pointSize})
		if err != nil {
			continue
		}
		tree.Insert(&vertexEntry{id: i, x: x, y: y, bbox: bbox})
		idx.size++
	}
	return idx
}

type hit struct {
	id   int
	dist float64
}

// nearest returns up to k vertex ids ordered by Euclidean distance to (x, y),
// ties broken by lower id.
func (s *spatialIndex) nearest(x, y float64, k int) []int {
	k = min(k, s.size)
	if k <= 0 {
		return nil
	}
	q := rtreego.Point{x, y}

	// The tree returns some k nearest entries, but which of several
	// equidistant entries it picks is unspecified. Collect everything within
	// the k-th distance and order it ourselves.
	var radius float64
	for _, obj := range s.tree.NearestNeighbors(k, q) {
		e, ok := obj.(*vertexEntry)
		if !ok || e == nil {
			continue
		}
		radius = max(radius, dist2(e.x, e.y, x, y))
	}

	r := math.Sqrt(radius) + pointSize
	box, err := rtreego.NewRect(rtreego.Point{x - r, y - r}, []float64{2 * r, 2 * r})
	if err != nil {
		return nil
	}
	var hits []hit
	for _, obj := range s.tree.SearchIntersect(box) {
		e := obj.(*vertexEntry)
		if d := dist2(e.x, e.y, x, y); d <= radius {
			hits = append(hits, hit{id: e.id, dist: d})
		}
	}
	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	out := make([]int, 0, k)
	for _, h := range hits[:min(k, len(hits))] {
		out = append(out, h.id)
	}
	return out
}

// Nearest returns the ids of the k vertices closest to (x, y) by Euclidean
// distance, nearest first. Ties are broken by lower id. Fewer than k ids are
// returned when the graph is smaller than k.
//
// The R-tree behind Nearest is built on the first call and reflects vertex
// positions at that time. Nearest is safe for concurrent use.
func (g *Graph) Nearest(x, y float64, k int) []int {
	g.indexOnce.Do(func() {
		g.index = newSpatialIndex(g.Positions())
	})
	return g.index.nearest(x, y, k)
}

func dist2(ax, ay, bx, by float64) float64 {
	dx, dy := ax-bx, ay-by
	return dx*dx + dy*dy
}
