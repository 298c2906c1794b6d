package bitmap

import "math/bits"

type rect struct{ x0, y0, x1, y1 int } // world coords, half-open

func (b *Bitmap) bounds() rect {
	return rect{b.OffsetX, b.OffsetY, b.OffsetX + b.Width, b.OffsetY + b.Height}
}

func overlap(a, b rect) rect {
	r := rect{max(a.x0, b.x0), max(a.y0, b.y0), min(a.x1, b.x1), min(a.y1, b.y1)}
	if r.x1 < r.x0 {
		r.x1 = r.x0
	}
	if r.y1 < r.y0 {
		r.y1 = r.y0
	}
	return r
}

// worldTest reports the bit at world coordinate (wx, wy); the caller
// guarantees it lies inside b.
func (b *Bitmap) worldTest(wx, wy int) bool {
	return b.test((wy-b.OffsetY)*b.Width + (wx - b.OffsetX))
}

func (b *Bitmap) worldSet(wx, wy int, v bool) {
	i := (wy-b.OffsetY)*b.Width + (wx - b.OffsetX)
	if v {
		b.words[i/wordBits] |= 1 << uint(i%wordBits)
	} else {
		b.words[i/wordBits] &^= 1 << uint(i%wordBits)
	}
}

// Intersection returns a new bitmap holding a AND b over the rectangle
// where the two overlap in world coordinates. The result is sized to the
// overlap and offset to its corner; if the operands do not overlap the
// result is empty (0x0).
func Intersection(a, b *Bitmap) *Bitmap {
	if a.sameShape(b) {
		c := a.Clone()
		for i := range c.words {
			c.words[i] &= b.words[i]
		}
		return c
	}
	r := overlap(a.bounds(), b.bounds())
	c := alloc(r.x1-r.x0, r.y1-r.y0, r.x0, r.y0)
	for wy := r.y0; wy < r.y1; wy++ {
		for wx := r.x0; wx < r.x1; wx++ {
			if a.worldTest(wx, wy) && b.worldTest(wx, wy) {
				c.worldSet(wx, wy, true)
			}
		}
	}
	return c
}

// Union returns a new bitmap holding a OR b, sized to the bounding
// rectangle of both operands.
func Union(a, b *Bitmap) *Bitmap {
	if a.sameShape(b) {
		c := a.Clone()
		for i := range c.words {
			c.words[i] |= b.words[i]
		}
		return c
	}
	ra, rb := a.bounds(), b.bounds()
	r := rect{min(ra.x0, rb.x0), min(ra.y0, rb.y0), max(ra.x1, rb.x1), max(ra.y1, rb.y1)}
	c := alloc(r.x1-r.x0, r.y1-r.y0, r.x0, r.y0)
	c.UnionWith(a)
	c.UnionWith(b)
	return c
}

// ExceptWith clears every bit of b that is set in o (b AND NOT o). Only the
// overlapping rectangle is affected.
func (b *Bitmap) ExceptWith(o *Bitmap) {
	if b.sameShape(o) {
		for i := range b.words {
			b.words[i] &^= o.words[i]
		}
		return
	}
	r := overlap(b.bounds(), o.bounds())
	for wy := r.y0; wy < r.y1; wy++ {
		for wx := r.x0; wx < r.x1; wx++ {
			if o.worldTest(wx, wy) {
				b.worldSet(wx, wy, false)
			}
		}
	}
}

// UnionWith sets every bit of b that is set in o. Bits of o outside b are
// ignored.
func (b *Bitmap) UnionWith(o *Bitmap) {
	if b.sameShape(o) {
		for i := range b.words {
			b.words[i] |= o.words[i]
		}
		return
	}
	r := overlap(b.bounds(), o.bounds())
	for wy := r.y0; wy < r.y1; wy++ {
		for wx := r.x0; wx < r.x1; wx++ {
			if o.worldTest(wx, wy) {
				b.worldSet(wx, wy, true)
			}
		}
	}
}

// IntersectionCount returns |b AND o| without allocating. Operands of
// different shapes are aligned on world coordinates.
func (b *Bitmap) IntersectionCount(o *Bitmap) int {
	if !b.sameShape(o) {
		return Intersection(b, o).Count()
	}
	n := 0
	for i, w := range b.words {
		n += bits.OnesCount64(w & o.words[i])
	}
	return n
}
