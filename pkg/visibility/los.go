package visibility

import "github.com/matzehuels/patrolgraph/pkg/bitmap"

// LineOfSight reports whether tiles (ax, ay) and (bx, by) can see each other
// through walls. maxDistance limits the Euclidean distance between the two
// tile centres; zero disables the limit. A tile always sees itself.
//
// Both endpoints must lie inside walls; the walk panics with
// bitmap.ErrOutOfBounds otherwise.
func LineOfSight(walls *bitmap.Bitmap, ax, ay, bx, by int, maxDistance float64) bool {
	if ax == bx && ay == by {
		return true
	}
	if maxDistance > 0 {
		dx, dy := float64(ax-bx), float64(ay-by)
		if dx*dx+dy*dy > maxDistance*maxDistance {
			return false
		}
	}
	if walls.Index(bx, by) < walls.Index(ax, ay) {
		ax, ay, bx, by = bx, by, ax, ay
	}
	return clearLine(walls, ax, ay, bx, by)
}

// clearLine walks the Bresenham line from (x0, y0) to (x1, y1) and reports
// whether every cell strictly between the endpoints is free.
func clearLine(walls *bitmap.Bitmap, x0, y0, x1, y1 int) bool {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy

	x, y := x0, y0
	for {
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
		if x == x1 && y == y1 {
			return true
		}
		if walls.Has(x, y) {
			return false
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
