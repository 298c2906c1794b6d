// Package bitmap provides a bit-packed two-dimensional boolean grid used to
// represent occupancy maps and visibility sets.
//
// # Overview
//
// A [Bitmap] stores one bit per tile in row-major order inside a []uint64
// slice. For occupancy maps a set bit means the tile is a wall; for
// visibility sets a set bit means the tile is visible from some origin. The
// dimensions are fixed at construction.
//
// Every bitmap also carries an origin offset ([Bitmap.OffsetX],
// [Bitmap.OffsetY]): the world coordinate of tile (0,0). Set operations
// between bitmaps of different shapes ([Intersection], [Bitmap.ExceptWith],
// [Bitmap.UnionWith]) align the operands on world coordinates and act on the
// overlapping rectangle only.
//
// # Checked and Unchecked Access
//
// The coordinate API ([Bitmap.Set], [Bitmap.Unset], [Bitmap.Get]) validates
// its arguments and returns an error wrapping [ErrOutOfBounds]. The
// index-based helpers used in hot loops ([Bitmap.Has], [Bitmap.Test],
// [Bitmap.SetBit], [Bitmap.ClearBit]) skip the error return and panic with
// the same error instead: an out-of-range index there is a programming error.
//
// # Word-Level Operations
//
// [Bitmap.Count], [Bitmap.Any], [Bitmap.ExceptWith] and friends operate on
// whole words when both operands share a shape, using [math/bits] for
// popcounts. Bits past Width*Height in the last word are always zero.
//
// # Encoding
//
// [Parse] and [Bitmap.String] convert to and from an ASCII form ('#' wall,
// '.' free). [Bitmap.MarshalBinary] produces a compact binary form and
// [Bitmap.Hash] a SHA-256 content hash used as a cache key.
package bitmap
