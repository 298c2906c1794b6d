package connect

import (
	"cmp"
	"image"
	"math"
	"slices"

	"github.com/zyedidia/generic/mapset"

	"github.com/matzehuels/patrolgraph/pkg/distance"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/patrol"
)

// ReverseKNN links u and v whenever u is among the K nearest vertices of v.
// Islands left by this local rule are merged afterwards by repeatedly adding
// the shortest edge between two different islands.
type ReverseKNN struct {
	// K is the neighbour count; zero means DefaultK.
	K int
}

// Name returns "rknn".
func (ReverseKNN) Name() string { return NameReverseKNN }

// Connect builds the reverse-kNN graph and merges its islands. The result
// always has a single connected component. The number of merge edges is
// recorded in the graph metadata under "island_merges".
func (r ReverseKNN) Connect(positions []image.Point, dist *distance.Matrix) (*patrol.Graph, error) {
	k := r.K
	if k == 0 {
		k = DefaultK
	}
	if err := perrors.ValidatePositive("k", k); err != nil {
		return nil, err
	}
	g, err := newGraph(r.Name(), positions, dist)
	if err != nil {
		return nil, err
	}

	for v := range positions {
		for _, u := range nearest(dist, v, k) {
			link(g, u, v)
		}
	}

	merges := mergeIslands(g, positions, dist)
	g.Meta()["k"] = k
	g.Meta()["island_merges"] = merges
	return g, nil
}

// nearest returns up to k vertices closest to v by walking distance,
// excluding v and unreachable vertices. Ties go to the lower id.
func nearest(dist *distance.Matrix, v, k int) []int {
	type cand struct{ id, d int }
	var cands []cand
	for u := 0; u < dist.Len(); u++ {
		if u == v {
			continue
		}
		if d := dist.Raw(v, u); d != distance.Unreachable {
			cands = append(cands, cand{u, d})
		}
	}
	slices.SortFunc(cands, func(a, b cand) int {
		if c := cmp.Compare(a.d, b.d); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	out := make([]int, 0, min(k, len(cands)))
	for _, c := range cands[:min(k, len(cands))] {
		out = append(out, c.id)
	}
	return out
}

// bridge is a candidate edge joining two islands. Walkable bridges always
// beat bridges between unreachable vertices, which are ranked by Euclidean
// distance.
type bridge struct {
	u, v        int
	unreachable bool
	length      float64
}

func (b bridge) less(o bridge) bool {
	if b.unreachable != o.unreachable {
		return !b.unreachable
	}
	if b.length != o.length {
		return b.length < o.length
	}
	if b.u != o.u {
		return b.u < o.u
	}
	return b.v < o.v
}

// mergeIslands joins the components of g until one remains and returns the
// number of edges added.
func mergeIslands(g *patrol.Graph, positions []image.Point, dist *distance.Matrix) int {
	comps := g.Components()
	if len(comps) <= 1 {
		return 0
	}

	owner := make([]int, len(positions))
	islands := make(map[int]mapset.Set[int], len(comps))
	for label, comp := range comps {
		island := mapset.New[int]()
		for _, v := range comp {
			island.Put(v)
			owner[v] = label
		}
		islands[label] = island
	}

	merges := 0
	for len(islands) > 1 {
		best, found := bridge{}, false
		for u := range positions {
			for v := u + 1; v < len(positions); v++ {
				if owner[u] == owner[v] {
					continue
				}
				cand := bridge{u: u, v: v}
				if d := dist.Raw(u, v); d == distance.Unreachable {
					cand.unreachable = true
					cand.length = euclidean(positions[u], positions[v])
				} else {
					cand.length = float64(d)
				}
				if !found || cand.less(best) {
					best, found = cand, true
				}
			}
		}

		link(g, best.u, best.v)
		merges++

		keep, drop := owner[best.u], owner[best.v]
		if islands[drop].Size() > islands[keep].Size() {
			keep, drop = drop, keep
		}
		into := islands[keep]
		islands[drop].Each(func(v int) {
			into.Put(v)
			owner[v] = keep
		})
		delete(islands, drop)
	}
	return merges
}

func euclidean(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
