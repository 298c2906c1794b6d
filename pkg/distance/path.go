package distance

import (
	"fmt"
	"image"
	"slices"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
)

// Path returns a shortest walking route from one free tile to another,
// both endpoints included. Among equal-length routes the one found first
// by the breadth-first search (neighbours in N, E, S, W order) wins.
func Path(walls *bitmap.Bitmap, from, to image.Point, conn Connectivity) ([]image.Point, error) {
	for _, p := range []image.Point{from, to} {
		wall, err := walls.Get(p.X, p.Y)
		if err != nil {
			return nil, err
		}
		if wall {
			return nil, perrors.New(perrors.ErrCodeInvalidInput, "(%d,%d) is a wall", p.X, p.Y)
		}
	}

	src, dst := walls.Index(from.X, from.Y), walls.Index(to.X, to.Y)
	parent := make([]int, walls.Len())
	for i := range parent {
		parent[i] = -1
	}
	parent[src] = src
	offsets := conn.offsets()
	queue := []int{src}
	for qi := 0; qi < len(queue) && parent[dst] < 0; qi++ {
		u := queue[qi]
		ux, uy := walls.Coords(u)
		for _, o := range offsets {
			vx, vy := ux+o[0], uy+o[1]
			if !walls.InBounds(vx, vy) {
				continue
			}
			v := walls.Index(vx, vy)
			if parent[v] >= 0 || walls.Test(v) {
				continue
			}
			parent[v] = u
			queue = append(queue, v)
		}
	}
	if parent[dst] < 0 {
		return nil, fmt.Errorf("(%d,%d) to (%d,%d): %w", from.X, from.Y, to.X, to.Y, ErrDisconnected)
	}

	var path []image.Point
	for v := dst; ; v = parent[v] {
		x, y := walls.Coords(v)
		path = append(path, image.Pt(x, y))
		if v == src {
			break
		}
	}
	slices.Reverse(path)
	return path, nil
}
