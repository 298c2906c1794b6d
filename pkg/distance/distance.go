// Package distance computes walking distances between tiles of an
// occupancy map.
//
// A [Matrix] holds the shortest 4- or 8-connected path length, in steps,
// between every pair of a given set of free tiles. It is built with one
// breadth-first search per source tile. Pairs without a path are stored as
// [Unreachable]; [Matrix.Between] reports them as [ErrDisconnected] so
// callers cannot mistake them for a distance.
package distance

import (
	"context"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
)

// Unreachable marks a pair of tiles with no walking path between them.
const Unreachable = -1

// ErrDisconnected is returned when a distance is requested between tiles
// that are not connected.
var ErrDisconnected = perrors.New(perrors.ErrCodeDisconnected, "tiles are not connected")

// Connectivity selects which neighbouring tiles a walker can step to.
type Connectivity int

const (
	// Conn4 steps north, east, south and west.
	Conn4 Connectivity = iota
	// Conn8 also steps diagonally.
	Conn8
)

func (c Connectivity) offsets() [][2]int {
	if c == Conn8 {
		return [][2]int{{0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}}
	}
	return [][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
}

// String returns "conn4" or "conn8".
func (c Connectivity) String() string {
	if c == Conn8 {
		return "conn8"
	}
	return "conn4"
}

// Matrix is a symmetric table of walking distances between points.
type Matrix struct {
	n int
	d []int
}

// Compute builds the distance matrix between points over the free tiles of
// walls. Every point must be a free tile.
func Compute(ctx context.Context, walls *bitmap.Bitmap, points []image.Point, conn Connectivity) (*Matrix, error) {
	targets := make(map[int][]int, len(points)) // tile index -> point indices
	for i, p := range points {
		wall, err := walls.Get(p.X, p.Y)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		if wall {
			return nil, perrors.New(perrors.ErrCodeInvalidInput, "point %d at (%d,%d) is a wall", i, p.X, p.Y)
		}
		t := walls.Index(p.X, p.Y)
		targets[t] = append(targets[t], i)
	}

	n := len(points)
	m := &Matrix{n: n, d: make([]int, n*n)}
	for i := range m.d {
		m.d[i] = Unreachable
	}
	for i := range n {
		m.d[i*n+i] = 0
	}

	dist := make([]int, walls.Len())
	for i, p := range points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bfs(walls, walls.Index(p.X, p.Y), conn, dist)
		for tile, js := range targets {
			if dist[tile] < 0 {
				continue
			}
			for _, j := range js {
				if j > i {
					m.d[i*n+j] = dist[tile]
					m.d[j*n+i] = dist[tile]
				}
			}
		}
	}
	return m, nil
}

// FromRows builds a Matrix from explicit rows. rows must be square and
// symmetric with zeros on the diagonal; Unreachable marks missing paths.
func FromRows(rows [][]int) (*Matrix, error) {
	n := len(rows)
	m := &Matrix{n: n, d: make([]int, n*n)}
	for i, row := range rows {
		if len(row) != n {
			return nil, perrors.New(perrors.ErrCodeInvalidInput, "row %d has %d entries, want %d", i, len(row), n)
		}
		for j, v := range row {
			if v < Unreachable {
				return nil, perrors.New(perrors.ErrCodeInvalidInput, "negative distance %d at (%d,%d)", v, i, j)
			}
			if (i == j && v != 0) || (j < i && rows[j][i] != v) {
				return nil, perrors.New(perrors.ErrCodeInvalidInput, "matrix not symmetric with zero diagonal at (%d,%d)", i, j)
			}
			m.d[i*n+j] = v
		}
	}
	return m, nil
}

// bfs fills dist with step counts from the tile with index src; tiles not
// reached get -1.
func bfs(walls *bitmap.Bitmap, src int, conn Connectivity, dist []int) {
	for i := range dist {
		dist[i] = -1
	}
	offsets := conn.offsets()
	dist[src] = 0
	queue := []int{src}
	for qi := 0; qi < len(queue); qi++ {
		u := queue[qi]
		ux, uy := walls.Coords(u)
		for _, o := range offsets {
			vx, vy := ux+o[0], uy+o[1]
			if !walls.InBounds(vx, vy) {
				continue
			}
			v := walls.Index(vx, vy)
			if dist[v] >= 0 || walls.Test(v) {
				continue
			}
			dist[v] = dist[u] + 1
			queue = append(queue, v)
		}
	}
}

// Len returns the number of points.
func (m *Matrix) Len() int { return m.n }

// Raw returns the stored distance between points i and j, which is
// Unreachable for disconnected pairs. It panics if i or j is out of range.
func (m *Matrix) Raw(i, j int) int {
	if i < 0 || j < 0 || i >= m.n || j >= m.n {
		panic(fmt.Errorf("distance index (%d,%d) in %d points: %w", i, j, m.n, bitmap.ErrOutOfBounds))
	}
	return m.d[i*m.n+j]
}

// Between returns the walking distance between points i and j.
func (m *Matrix) Between(i, j int) (int, error) {
	if i < 0 || j < 0 || i >= m.n || j >= m.n {
		return 0, fmt.Errorf("distance index (%d,%d) in %d points: %w", i, j, m.n, bitmap.ErrOutOfBounds)
	}
	d := m.d[i*m.n+j]
	if d == Unreachable {
		return 0, fmt.Errorf("points %d and %d: %w", i, j, ErrDisconnected)
	}
	return d, nil
}

// Reachable reports whether points i and j are connected.
func (m *Matrix) Reachable(i, j int) bool { return m.Raw(i, j) != Unreachable }

// Pairs returns the distances of all reachable pairs i < j.
func (m *Matrix) Pairs() []float64 {
	out := make([]float64, 0, m.n*(m.n-1)/2)
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			if d := m.d[i*m.n+j]; d != Unreachable {
				out = append(out, float64(d))
			}
		}
	}
	return out
}

// Std returns the population standard deviation of all reachable pairwise
// distances, or 0 when there are fewer than two such pairs.
func (m *Matrix) Std() float64 {
	xs := m.Pairs()
	if len(xs) < 2 {
		return 0
	}
	_, variance := stat.MeanVariance(xs, nil)
	n := float64(len(xs))
	return math.Sqrt(variance * (n - 1) / n)
}

// Max returns the largest reachable pairwise distance.
func (m *Matrix) Max() int {
	best := 0
	for _, d := range m.d {
		best = max(best, d)
	}
	return best
}
