package bitmap

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
)

// Tile characters accepted by Parse.
const (
	WallChars = "#X1"
	FreeChars = ". 0"
)

var binaryMagic = [4]byte{'P', 'G', 'B', 'M'}

const binaryVersion = 1

// Parse builds an occupancy bitmap from ASCII rows. Row 0 is y=0. Wall
// tiles ('#', 'X', '1') become set bits; free tiles ('.', ' ', '0') stay
// clear. All rows must have the same length.
func Parse(rows []string) (*Bitmap, error) {
	if len(rows) == 0 {
		return nil, perrors.New(perrors.ErrCodeInvalidMap, "map has no rows")
	}
	width := len(rows[0])
	b, err := New(width, len(rows))
	if err != nil {
		return nil, err
	}
	for y, row := range rows {
		if len(row) != width {
			return nil, perrors.New(perrors.ErrCodeInvalidMap,
				"row %d has %d tiles, want %d", y, len(row), width)
		}
		for x := 0; x < width; x++ {
			c := row[x]
			switch {
			case strings.IndexByte(WallChars, c) >= 0:
				b.SetBit(b.Index(x, y))
			case strings.IndexByte(FreeChars, c) >= 0:
			default:
				return nil, perrors.New(perrors.ErrCodeInvalidMap,
					"unexpected tile %q at (%d,%d)", c, x, y)
			}
		}
	}
	return b, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// examples.
func MustParse(rows ...string) *Bitmap {
	b, err := Parse(rows)
	if err != nil {
		panic(err)
	}
	return b
}

// String renders the bitmap with '#' for set tiles and '.' for clear ones,
// one line per row.
func (b *Bitmap) String() string {
	var sb strings.Builder
	sb.Grow((b.Width + 1) * b.Height)
	for y := 0; y < b.Height; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < b.Width; x++ {
			if b.test(b.Index(x, y)) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
	}
	return sb.String()
}

// Hash returns a hex-encoded SHA-256 digest of the dimensions, offset and
// contents. Bitmaps at different offsets hash differently because sets
// derived from them are aligned by world coordinates.
func (b *Bitmap) Hash() string {
	h := sha256.New()
	var hdr [32]byte
	binary.LittleEndian.PutUint64(hdr[0:], uint64(b.Width))
	binary.LittleEndian.PutUint64(hdr[8:], uint64(b.Height))
	binary.LittleEndian.PutUint64(hdr[16:], uint64(int64(b.OffsetX)))
	binary.LittleEndian.PutUint64(hdr[24:], uint64(int64(b.OffsetY)))
	h.Write(hdr[:])
	var buf [8]byte
	for _, w := range b.words {
		binary.LittleEndian.PutUint64(buf[:], w)
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MarshalBinary encodes the bitmap as a magic header, version byte, four
// signed varints (width, height, offsetX, offsetY) and the raw words.
func (b *Bitmap) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 5+4*binary.MaxVarintLen64+8*len(b.words))
	out = append(out, binaryMagic[:]...)
	out = append(out, binaryVersion)
	for _, v := range []int{b.Width, b.Height, b.OffsetX, b.OffsetY} {
		out = binary.AppendVarint(out, int64(v))
	}
	for _, w := range b.words {
		out = binary.LittleEndian.AppendUint64(out, w)
	}
	return out, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary into b.
func (b *Bitmap) UnmarshalBinary(data []byte) error {
	_, err := b.decode(data)
	return err
}

// decode reads one bitmap from the front of data and returns the number of
// bytes consumed.
func (b *Bitmap) decode(data []byte) (int, error) {
	if len(data) < 5 || [4]byte(data[:4]) != binaryMagic {
		return 0, perrors.New(perrors.ErrCodeInvalidInput, "not a bitmap encoding")
	}
	if data[4] != binaryVersion {
		return 0, perrors.New(perrors.ErrCodeUnsupported, "bitmap encoding version %d", data[4])
	}
	pos := 5
	var hdr [4]int
	for i := range hdr {
		v, n := binary.Varint(data[pos:])
		if n <= 0 {
			return 0, perrors.New(perrors.ErrCodeInvalidInput, "truncated bitmap header")
		}
		hdr[i] = int(v)
		pos += n
	}
	if hdr[0] < 0 || hdr[1] < 0 || (hdr[0] > 0 && hdr[1] > perrors.MaxMapTiles/hdr[0]) {
		return 0, perrors.New(perrors.ErrCodeInvalidInput, "invalid bitmap dimensions %dx%d", hdr[0], hdr[1])
	}
	c := alloc(hdr[0], hdr[1], hdr[2], hdr[3])
	need := 8 * len(c.words)
	if len(data)-pos < need {
		return 0, perrors.New(perrors.ErrCodeInvalidInput,
			"truncated bitmap body: have %d bytes, want %d", len(data)-pos, need)
	}
	for i := range c.words {
		c.words[i] = binary.LittleEndian.Uint64(data[pos:])
		pos += 8
	}
	c.maskTail()
	*b = *c
	return pos, nil
}

// Decode reads one bitmap from the front of data, returning it along with
// the number of bytes consumed. It lets callers store several bitmaps
// back to back.
func Decode(data []byte) (*Bitmap, int, error) {
	b := &Bitmap{}
	n, err := b.decode(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode bitmap: %w", err)
	}
	return b, n, nil
}
