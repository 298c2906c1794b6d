// Package guard places guards on an occupancy map so that every free tile is
// seen by at least one of them.
//
// Place solves the art-gallery coverage problem approximately with the
// classic greedy maximum-coverage heuristic: repeatedly pick the uncovered
// tile whose visibility set covers the most still-uncovered tiles. The
// result is within a logarithmic factor of optimal, which is adequate for
// patrol graphs.
package guard

import (
	"fmt"
	"sort"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/visibility"
)

// ErrCoverageImpossible is returned when tiles remain uncovered but no
// candidate covers any of them. This only happens with inconsistent
// visibility data, e.g. a free tile with an empty visibility set.
var ErrCoverageImpossible = perrors.New(perrors.ErrCodeCoverageImpossible, "no guard can cover the remaining tiles")

// Guard is a selected tile and the tiles it newly covered when chosen.
type Guard struct {
	Index   int // row-major tile index
	X, Y    int
	Covered int // tiles first covered by this guard
	Visible int // size of its full visibility set
}

// Place selects guards from vis until every origin of vis is covered.
//
// Candidates are considered in a fixed order (visibility set size
// descending, then row-major index), and ties on coverage go to the
// earlier candidate, so the result is deterministic. Only tiles that are
// still uncovered are eligible in each round.
func Place(vis *visibility.Map) ([]Guard, error) {
	origins := vis.Origins()
	if len(origins) == 0 {
		return nil, nil
	}

	uncovered := blank(vis)
	for _, i := range origins {
		uncovered.SetBit(i)
	}

	type candidate struct {
		index int
		set   *bitmap.Bitmap
		size  int
	}
	cands := make([]candidate, len(origins))
	for k, i := range origins {
		s := vis.AtIndex(i)
		cands[k] = candidate{index: i, set: s, size: s.Count()}
	}
	sort.SliceStable(cands, func(a, b int) bool {
		if cands[a].size != cands[b].size {
			return cands[a].size > cands[b].size
		}
		return cands[a].index < cands[b].index
	})

	var guards []Guard
	for uncovered.Any() {
		best, bestCover := -1, 0
		for k, c := range cands {
			// Sorted by size: nothing further can beat bestCover.
			if c.size <= bestCover {
				break
			}
			if !uncovered.Test(c.index) {
				continue
			}
			if n := c.set.IntersectionCount(uncovered); n > bestCover {
				best, bestCover = k, n
			}
		}
		if best < 0 {
			return guards, fmt.Errorf("%d tiles uncovered after %d guards: %w",
				uncovered.Count(), len(guards), ErrCoverageImpossible)
		}

		c := cands[best]
		x, y := vis.Coords(c.index)
		guards = append(guards, Guard{Index: c.index, X: x, Y: y, Covered: bestCover, Visible: c.size})
		uncovered.ExceptWith(c.set)
	}
	return guards, nil
}

// Coverage returns the union of the visibility sets of guards.
func Coverage(vis *visibility.Map, guards []Guard) *bitmap.Bitmap {
	out := blank(vis)
	for _, g := range guards {
		if s := vis.AtIndex(g.Index); s != nil {
			out.UnionWith(s)
		}
	}
	return out
}

// blank returns an empty bitmap shaped and offset like the sets of vis.
func blank(vis *visibility.Map) *bitmap.Bitmap {
	var ox, oy int
	if o := vis.Origins(); len(o) > 0 {
		s := vis.AtIndex(o[0])
		ox, oy = s.OffsetX, s.OffsetY
	}
	b, err := bitmap.NewWithOffset(vis.Width, vis.Height, ox, oy)
	if err != nil {
		panic(err)
	}
	return b
}
