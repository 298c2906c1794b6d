package visibility

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/observability"
)

// Algorithm selects how columns are scanned around an origin tile.
type Algorithm string

const (
	// Exhaustive scans every column of the map.
	Exhaustive Algorithm = "exhaustive"
	// FastBreakColumn stops scanning in a direction after the first column
	// without visible tiles. It may undercount.
	FastBreakColumn Algorithm = "fast"
)

// ValidAlgorithms lists the accepted Algorithm values.
var ValidAlgorithms = map[string]bool{
	string(Exhaustive):      true,
	string(FastBreakColumn): true,
}

// Options controls a visibility computation.
type Options struct {
	// MaxDistance bounds the sight range in tiles. Zero means unlimited.
	MaxDistance float64
	// Algorithm defaults to Exhaustive.
	Algorithm Algorithm
	// Workers bounds the number of tiles processed concurrently. Defaults
	// to runtime.GOMAXPROCS(0).
	Workers int
}

// Validate checks the options without modifying them.
func (o Options) Validate() error {
	if err := perrors.ValidateNonNegative("max distance", o.MaxDistance); err != nil {
		return err
	}
	if o.Algorithm != "" {
		if err := perrors.ValidateOneOf("algorithm", string(o.Algorithm), ValidAlgorithms); err != nil {
			return err
		}
	}
	if o.Workers < 0 {
		return perrors.New(perrors.ErrCodeInvalidOption, "workers must be >= 0, got %d", o.Workers)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.Algorithm == "" {
		o.Algorithm = Exhaustive
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Compute returns the visibility set of every free tile of walls.
//
// The context is checked before each tile; on cancellation the partial
// result is discarded and ctx.Err() is returned.
func Compute(ctx context.Context, walls *bitmap.Bitmap, opts Options) (m *Map, err error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	origins := walls.Not().Indices()
	hooks := observability.Visibility()
	hooks.OnComputeStart(ctx, string(opts.Algorithm), len(origins))
	start := time.Now()
	defer func() {
		hooks.OnComputeComplete(ctx, string(opts.Algorithm), len(origins), time.Since(start), err)
	}()

	sets := make([]*bitmap.Bitmap, walls.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, i := range origins {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			x, y := walls.Coords(i)
			sets[i] = scan(walls, x, y, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Map{
		Width:       walls.Width,
		Height:      walls.Height,
		Algorithm:   opts.Algorithm,
		MaxDistance: opts.MaxDistance,
		sets:        sets,
	}, nil
}

// ComputeFrom returns the visibility set of the single free tile (x, y).
func ComputeFrom(walls *bitmap.Bitmap, x, y int, opts Options) (*bitmap.Bitmap, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	wall, err := walls.Get(x, y)
	if err != nil {
		return nil, err
	}
	if wall {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "origin (%d,%d) is a wall", x, y)
	}
	return scan(walls, x, y, opts.withDefaults()), nil
}

// scan builds the visibility set of origin (ox, oy) column by column.
func scan(walls *bitmap.Bitmap, ox, oy int, opts Options) *bitmap.Bitmap {
	vis, err := bitmap.NewWithOffset(walls.Width, walls.Height, walls.OffsetX, walls.OffsetY)
	if err != nil {
		panic(fmt.Errorf("allocate visibility set: %w", err))
	}
	column := func(x int) int {
		n := 0
		for y := 0; y < walls.Height; y++ {
			i := walls.Index(x, y)
			if walls.Test(i) {
				continue
			}
			if LineOfSight(walls, ox, oy, x, y, opts.MaxDistance) {
				vis.SetBit(i)
				n++
			}
		}
		return n
	}

	breakEarly := opts.Algorithm == FastBreakColumn
	column(ox)
	for x := ox + 1; x < walls.Width; x++ {
		if column(x) == 0 && breakEarly {
			break
		}
	}
	for x := ox - 1; x >= 0; x-- {
		if column(x) == 0 && breakEarly {
			break
		}
	}
	return vis
}
