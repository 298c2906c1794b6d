package io

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
)

// CommentPrefix starts a header comment line in an ASCII map.
const CommentPrefix = ";"

// ReadMap decodes an ASCII occupancy map from r.
//
// Each non-comment line is one row of tiles: '#', 'X' and '1' are walls,
// '.', ' ' and '0' are free. Lines starting with ';' are comments and may
// appear anywhere; a comment of the form
//
//	; offset <x> <y>
//
// sets the world coordinates of tile (0,0). Trailing blank lines and
// carriage returns are ignored. All rows must have the same width.
func ReadMap(r io.Reader) (*bitmap.Bitmap, error) {
	var (
		rows   []string
		ox, oy int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, CommentPrefix) {
			x, y, ok, err := parseOffset(line)
			if err != nil {
				return nil, perrors.Wrap(perrors.ErrCodeInvalidMap, err, "line %d", lineNo)
			}
			if ok {
				ox, oy = x, y
			}
			continue
		}
		rows = append(rows, line)
	}
	if err := sc.Err(); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeIO, err, "read map")
	}
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}

	b, err := bitmap.Parse(rows)
	if err != nil {
		return nil, err
	}
	b.OffsetX, b.OffsetY = ox, oy
	return b, nil
}

// LoadMap reads an ASCII occupancy map from the file at path.
func LoadMap(path string) (*bitmap.Bitmap, error) {
	if err := perrors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "map %s", path)
		}
		return nil, perrors.Wrap(perrors.ErrCodeIO, err, "open %s", path)
	}
	defer f.Close()

	b, err := ReadMap(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// WriteMap encodes b in the format read by [ReadMap]. A non-zero offset is
// written as a header comment.
func WriteMap(w io.Writer, b *bitmap.Bitmap) error {
	var sb strings.Builder
	if b.OffsetX != 0 || b.OffsetY != 0 {
		fmt.Fprintf(&sb, "%s offset %d %d\n", CommentPrefix, b.OffsetX, b.OffsetY)
	}
	if b.Len() > 0 {
		sb.WriteString(b.String())
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func parseOffset(line string) (x, y int, ok bool, err error) {
	fields := strings.Fields(strings.TrimPrefix(line, CommentPrefix))
	if len(fields) == 0 || fields[0] != "offset" {
		return 0, 0, false, nil
	}
	if len(fields) != 3 {
		return 0, 0, false, fmt.Errorf("offset needs two integers, got %q", line)
	}
	if x, err = strconv.Atoi(fields[1]); err != nil {
		return 0, 0, false, fmt.Errorf("offset x: %w", err)
	}
	if y, err = strconv.Atoi(fields[2]); err != nil {
		return 0, 0, false, fmt.Errorf("offset y: %w", err)
	}
	return x, y, true, nil
}
