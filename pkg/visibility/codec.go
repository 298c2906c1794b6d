package visibility

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
)

var mapMagic = [4]byte{'P', 'G', 'V', 'M'}

const mapVersion = 1

// EncodeAll and DecodeAll are safe for concurrent use.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// MarshalBinary encodes m without compression.
//
// Layout: magic, version, varint width, varint height, varint-prefixed
// algorithm name, float64 max distance, varint origin count, then for each
// origin its varint index followed by the bitmap encoding of its set.
func (m *Map) MarshalBinary() ([]byte, error) {
	out := append([]byte(nil), mapMagic[:]...)
	out = append(out, mapVersion)
	out = binary.AppendUvarint(out, uint64(m.Width))
	out = binary.AppendUvarint(out, uint64(m.Height))
	out = binary.AppendUvarint(out, uint64(len(m.Algorithm)))
	out = append(out, m.Algorithm...)
	out = binary.LittleEndian.AppendUint64(out, math.Float64bits(m.MaxDistance))

	origins := m.Origins()
	out = binary.AppendUvarint(out, uint64(len(origins)))
	for _, i := range origins {
		out = binary.AppendUvarint(out, uint64(i))
		enc, err := m.sets[i].MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary into m.
func (m *Map) UnmarshalBinary(data []byte) error {
	r := reader{data: data}
	if len(data) < 5 || [4]byte(data[:4]) != mapMagic {
		return perrors.New(perrors.ErrCodeInvalidInput, "not a visibility map encoding")
	}
	if data[4] != mapVersion {
		return perrors.New(perrors.ErrCodeUnsupported, "visibility map encoding version %d", data[4])
	}
	r.pos = 5

	width, height := int(r.uvarint()), int(r.uvarint())
	algo := Algorithm(r.bytes(int(r.uvarint())))
	maxDist := math.Float64frombits(r.uint64())
	count := int(r.uvarint())
	if r.err != nil {
		return r.err
	}
	if width < 0 || height < 0 || (width > 0 && height > perrors.MaxMapTiles/width) {
		return perrors.New(perrors.ErrCodeInvalidInput, "invalid map dimensions %dx%d", width, height)
	}
	if count > width*height {
		return perrors.New(perrors.ErrCodeInvalidInput, "%d origins in a %dx%d map", count, width, height)
	}

	sets := make([]*bitmap.Bitmap, width*height)
	for k := 0; k < count; k++ {
		i := int(r.uvarint())
		if r.err != nil {
			return r.err
		}
		if i < 0 || i >= len(sets) {
			return perrors.New(perrors.ErrCodeInvalidInput, "origin index %d out of range", i)
		}
		b, n, err := bitmap.Decode(data[r.pos:])
		if err != nil {
			return fmt.Errorf("origin %d: %w", i, err)
		}
		r.pos += n
		sets[i] = b
	}

	*m = Map{Width: width, Height: height, Algorithm: algo, MaxDistance: maxDist, sets: sets}
	return nil
}

// Encode returns the zstd-compressed binary encoding of m.
func Encode(m *Map) ([]byte, error) {
	raw, err := m.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return encoder.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*Map, error) {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "decompress visibility map")
	}
	m := &Map{}
	if err := m.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return m, nil
}

type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) fail() {
	if r.err == nil {
		r.err = perrors.New(perrors.ErrCodeInvalidInput, "truncated visibility map at byte %d", r.pos)
	}
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		r.fail()
		return 0
	}
	r.pos += n
	return v
}

func (r *reader) uint64() uint64 {
	if r.err != nil || len(r.data)-r.pos < 8 {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil || n < 0 || len(r.data)-r.pos < n {
		r.fail()
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}
