package connect

import (
	"fmt"
	"image"

	"github.com/matzehuels/patrolgraph/pkg/distance"
	"github.com/matzehuels/patrolgraph/pkg/patrol"
)

// Cycle connects vertices along a closed nearest-neighbour tour.
type Cycle struct{}

// Name returns "cycle".
func (Cycle) Name() string { return NameCycle }

// Connect links consecutive vertices of [Tour] and closes the loop back to
// vertex 0. With three or more vertices every vertex ends up with exactly
// two neighbours; two vertices share one edge and a single vertex has none.
func (c Cycle) Connect(positions []image.Point, dist *distance.Matrix) (*patrol.Graph, error) {
	g, err := newGraph(c.Name(), positions, dist)
	if err != nil {
		return nil, err
	}
	tour, err := Tour(dist)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(tour); i++ {
		link(g, tour[i-1], tour[i])
	}
	if len(tour) > 2 {
		link(g, tour[len(tour)-1], tour[0])
	}
	return g, nil
}

// Tour returns a nearest-neighbour visiting order starting at vertex 0.
// Each step moves to the closest unvisited vertex, preferring the lower id
// on ties. Unreachable vertices are never chosen; if every unvisited vertex
// is unreachable from the current one the tour fails with
// [distance.ErrDisconnected].
func Tour(dist *distance.Matrix) ([]int, error) {
	n := dist.Len()
	if n == 0 {
		return nil, nil
	}
	visited := make([]bool, n)
	tour := make([]int, 1, n)
	visited[0] = true

	cur := 0
	for len(tour) < n {
		next, best := -1, 0
		for v := 0; v < n; v++ {
			if visited[v] {
				continue
			}
			d := dist.Raw(cur, v)
			if d == distance.Unreachable {
				continue
			}
			if next < 0 || d < best {
				next, best = v, d
			}
		}
		if next < 0 {
			return tour, fmt.Errorf("tour stuck at vertex %d after %d of %d: %w", cur, len(tour), n, distance.ErrDisconnected)
		}
		visited[next] = true
		tour = append(tour, next)
		cur = next
	}
	return tour, nil
}
