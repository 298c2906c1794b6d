package visibility

import (
	"github.com/matzehuels/patrolgraph/pkg/bitmap"
)

// Map holds the visibility set of every free tile of one occupancy map.
// Sets are indexed by the row-major index of their origin tile; wall tiles
// have no set.
//
// A Map returned by Compute or Cache is shared and must be treated as
// read-only.
type Map struct {
	Width       int
	Height      int
	Algorithm   Algorithm
	MaxDistance float64

	sets []*bitmap.Bitmap
}

// NewMap returns an empty Map for a width x height occupancy map. Sets are
// added with Put. Compute is the usual way to obtain a Map; NewMap serves
// importers and tests.
func NewMap(width, height int, algo Algorithm, maxDistance float64) *Map {
	return &Map{
		Width:       width,
		Height:      height,
		Algorithm:   algo,
		MaxDistance: maxDistance,
		sets:        make([]*bitmap.Bitmap, width*height),
	}
}

// Put records set as the visibility set of the tile with row-major index
// i. It panics if i is out of range.
func (m *Map) Put(i int, set *bitmap.Bitmap) {
	m.sets[i] = set
}

// At returns the visibility set of tile (x, y), or nil for walls and
// coordinates outside the map.
func (m *Map) At(x, y int) *bitmap.Bitmap {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return nil
	}
	return m.sets[y*m.Width+x]
}

// AtIndex returns the visibility set of the tile with row-major index i, or
// nil if the tile is a wall or i is out of range.
func (m *Map) AtIndex(i int) *bitmap.Bitmap {
	if i < 0 || i >= len(m.sets) {
		return nil
	}
	return m.sets[i]
}

// Origins returns the indices of all tiles that have a visibility set, in
// ascending order.
func (m *Map) Origins() []int {
	out := make([]int, 0, len(m.sets))
	for i, s := range m.sets {
		if s != nil {
			out = append(out, i)
		}
	}
	return out
}

// Len returns the number of origins.
func (m *Map) Len() int {
	n := 0
	for _, s := range m.sets {
		if s != nil {
			n++
		}
	}
	return n
}

// Coords converts a row-major index into tile coordinates.
func (m *Map) Coords(i int) (x, y int) { return i % m.Width, i / m.Width }

// TotalVisible returns the sum of all visibility set sizes.
func (m *Map) TotalVisible() int {
	n := 0
	for _, s := range m.sets {
		if s != nil {
			n += s.Count()
		}
	}
	return n
}

// Compare returns, in ascending order, the origin indices whose visibility
// sets differ between a and b. An origin present in only one of the maps
// counts as a difference. Maps of different sizes differ everywhere.
func Compare(a, b *Map) []int {
	n := max(len(a.sets), len(b.sets))
	var diff []int
	for i := 0; i < n; i++ {
		if a.Width != b.Width || a.Height != b.Height {
			diff = append(diff, i)
			continue
		}
		sa, sb := a.AtIndex(i), b.AtIndex(i)
		switch {
		case sa == nil && sb == nil:
		case sa == nil || sb == nil || !sa.Equal(sb):
			diff = append(diff, i)
		}
	}
	return diff
}
