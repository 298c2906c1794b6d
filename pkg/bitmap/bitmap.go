package bitmap

import (
	"fmt"
	"math/bits"

	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
)

// ErrOutOfBounds is returned (or panicked with, for unchecked helpers) when a
// coordinate or index lies outside the bitmap.
var ErrOutOfBounds = perrors.New(perrors.ErrCodeOutOfBounds, "coordinate out of bounds")

const wordBits = 64

// Bitmap is a fixed-size grid of bits packed row-major into 64-bit words.
//
// The zero value is an empty 0x0 bitmap. Width and Height must not be
// modified after construction.
type Bitmap struct {
	Width   int
	Height  int
	OffsetX int // world x of tile (0,0)
	OffsetY int // world y of tile (0,0)

	words []uint64
}

// New creates a cleared bitmap of the given size with a zero offset.
func New(width, height int) (*Bitmap, error) {
	return NewWithOffset(width, height, 0, 0)
}

// NewWithOffset creates a cleared bitmap whose tile (0,0) sits at world
// coordinate (offsetX, offsetY).
func NewWithOffset(width, height, offsetX, offsetY int) (*Bitmap, error) {
	if err := perrors.ValidateMapDimensions(width, height); err != nil {
		return nil, err
	}
	return alloc(width, height, offsetX, offsetY), nil
}

// MustNew is like New but panics on invalid dimensions.
func MustNew(width, height int) *Bitmap {
	b, err := New(width, height)
	if err != nil {
		panic(err)
	}
	return b
}

// alloc skips validation so that empty results of set operations can be
// represented.
func alloc(width, height, offsetX, offsetY int) *Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	n := width * height
	return &Bitmap{
		Width:   width,
		Height:  height,
		OffsetX: offsetX,
		OffsetY: offsetY,
		words:   make([]uint64, (n+wordBits-1)/wordBits),
	}
}

// Len returns the number of tiles, Width*Height.
func (b *Bitmap) Len() int { return b.Width * b.Height }

// InBounds reports whether (x, y) is a valid tile coordinate.
func (b *Bitmap) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// Index converts a tile coordinate into its row-major bit index. It does not
// check bounds.
func (b *Bitmap) Index(x, y int) int { return y*b.Width + x }

// Coords converts a row-major bit index back into a tile coordinate.
func (b *Bitmap) Coords(i int) (x, y int) { return i % b.Width, i / b.Width }

func (b *Bitmap) boundsErr(x, y int) error {
	return fmt.Errorf("(%d,%d) in %dx%d bitmap: %w", x, y, b.Width, b.Height, ErrOutOfBounds)
}

// Set marks the tile at (x, y).
func (b *Bitmap) Set(x, y int) error {
	if !b.InBounds(x, y) {
		return b.boundsErr(x, y)
	}
	i := b.Index(x, y)
	b.words[i/wordBits] |= 1 << uint(i%wordBits)
	return nil
}

// Unset clears the tile at (x, y).
func (b *Bitmap) Unset(x, y int) error {
	if !b.InBounds(x, y) {
		return b.boundsErr(x, y)
	}
	i := b.Index(x, y)
	b.words[i/wordBits] &^= 1 << uint(i%wordBits)
	return nil
}

// Get reports whether the tile at (x, y) is set.
func (b *Bitmap) Get(x, y int) (bool, error) {
	if !b.InBounds(x, y) {
		return false, b.boundsErr(x, y)
	}
	return b.test(b.Index(x, y)), nil
}

// Has is the unchecked form of Get. It panics if (x, y) is out of bounds.
func (b *Bitmap) Has(x, y int) bool {
	if !b.InBounds(x, y) {
		panic(b.boundsErr(x, y))
	}
	return b.test(b.Index(x, y))
}

// Test reports whether bit i is set. It panics if i is out of range.
func (b *Bitmap) Test(i int) bool {
	b.checkIndex(i)
	return b.test(i)
}

// SetBit sets bit i. It panics if i is out of range.
func (b *Bitmap) SetBit(i int) {
	b.checkIndex(i)
	b.words[i/wordBits] |= 1 << uint(i%wordBits)
}

// ClearBit clears bit i. It panics if i is out of range.
func (b *Bitmap) ClearBit(i int) {
	b.checkIndex(i)
	b.words[i/wordBits] &^= 1 << uint(i%wordBits)
}

func (b *Bitmap) checkIndex(i int) {
	if i < 0 || i >= b.Len() {
		panic(fmt.Errorf("index %d in %dx%d bitmap: %w", i, b.Width, b.Height, ErrOutOfBounds))
	}
}

func (b *Bitmap) test(i int) bool {
	return b.words[i/wordBits]&(1<<uint(i%wordBits)) != 0
}

// Count returns the number of set bits.
func (b *Bitmap) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Free returns the number of unset tiles. For an occupancy map this is the
// number of walkable tiles.
func (b *Bitmap) Free() int { return b.Len() - b.Count() }

// Any reports whether at least one bit is set.
func (b *Bitmap) Any() bool {
	for _, w := range b.words {
		if w != 0 {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of b.
func (b *Bitmap) Clone() *Bitmap {
	c := &Bitmap{
		Width:   b.Width,
		Height:  b.Height,
		OffsetX: b.OffsetX,
		OffsetY: b.OffsetY,
		words:   make([]uint64, len(b.words)),
	}
	copy(c.words, b.words)
	return c
}

// Reset clears every bit.
func (b *Bitmap) Reset() {
	clear(b.words)
}

// ForEach calls fn for every set bit in row-major order.
func (b *Bitmap) ForEach(fn func(x, y int)) {
	b.ForEachIndex(func(i int) {
		fn(i%b.Width, i/b.Width)
	})
}

// ForEachIndex calls fn with the row-major index of every set bit, in
// ascending order.
func (b *Bitmap) ForEachIndex(fn func(i int)) {
	for wi, w := range b.words {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			fn(wi*wordBits + tz)
			w &= w - 1
		}
	}
}

// Indices returns the row-major indices of all set bits in ascending order.
func (b *Bitmap) Indices() []int {
	out := make([]int, 0, b.Count())
	b.ForEachIndex(func(i int) { out = append(out, i) })
	return out
}

// Not returns the complement of b. The offset is preserved.
func (b *Bitmap) Not() *Bitmap {
	c := b.Clone()
	for i := range c.words {
		c.words[i] = ^c.words[i]
	}
	c.maskTail()
	return c
}

// maskTail zeroes the padding bits of the last word.
func (b *Bitmap) maskTail() {
	if r := b.Len() % wordBits; r != 0 && len(b.words) > 0 {
		b.words[len(b.words)-1] &= (1 << uint(r)) - 1
	}
}

// Equal reports whether a and b have the same shape, offset and contents.
func (b *Bitmap) Equal(o *Bitmap) bool {
	if !b.sameShape(o) {
		return false
	}
	for i, w := range b.words {
		if o.words[i] != w {
			return false
		}
	}
	return true
}

func (b *Bitmap) sameShape(o *Bitmap) bool {
	return b.Width == o.Width && b.Height == o.Height &&
		b.OffsetX == o.OffsetX && b.OffsetY == o.OffsetY
}
