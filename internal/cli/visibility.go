package cli

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	pio "github.com/matzehuels/patrolgraph/pkg/io"
	"github.com/matzehuels/patrolgraph/pkg/visibility"
)

// Grid characters used by visibilityGrid.
const (
	gridWall    = '#'
	gridOrigin  = '@'
	gridSeen    = '*'
	gridHidden  = '.'
	gridOnlyA   = 'e' // seen by the exhaustive algorithm only
	gridOnlyB   = 'f' // seen by the fast algorithm only
	maxGridSide = 120
)

// visibilityCommand creates the visibility command.
func (c *CLI) visibilityCommand() *cobra.Command {
	var (
		origin  string
		compare bool
		opts    visibility.Options
		algo    string
	)

	cmd := &cobra.Command{
		Use:   "visibility [map.txt]",
		Short: "Show the tiles visible from one origin",
		Long: `Show the tiles visible from one origin tile.

Visible tiles are drawn as '*', the origin as '@'. With --compare both
visibility algorithms run and tiles seen by only one of them are marked
'e' (exhaustive) or 'f' (fast).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseOrigin(origin)
			if err != nil {
				return err
			}
			opts.Algorithm = visibility.Algorithm(algo)
			return c.runVisibility(cmd.Context(), args[0], p, opts, compare)
		},
	}

	cmd.Flags().StringVar(&origin, "origin", "", "origin tile as x,y (required)")
	cmd.Flags().BoolVar(&compare, "compare", false, "compare the exhaustive and fast algorithms")
	cmd.Flags().Float64Var(&opts.MaxDistance, "max-distance", 0, "sight range in tiles (0 = unlimited)")
	cmd.Flags().StringVar(&algo, "algorithm", string(visibility.Exhaustive), "visibility algorithm: exhaustive, fast")
	_ = cmd.MarkFlagRequired("origin")

	return cmd
}

func (c *CLI) runVisibility(ctx context.Context, input string, origin image.Point, opts visibility.Options, compare bool) error {
	logger := loggerFromContext(ctx)

	walls, err := pio.LoadMap(input)
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}

	if !compare {
		seen, err := visibility.ComputeFrom(walls, origin.X, origin.Y, opts)
		if err != nil {
			return err
		}
		printSuccess("%s tiles visible from (%d,%d)", StyleNumber.Render(strconv.Itoa(seen.Count())), origin.X, origin.Y)
		printGrid(walls, visibilityGrid(walls, origin, seen, nil))
		return nil
	}

	opts.Algorithm = visibility.Exhaustive
	exhaustive, err := visibility.ComputeFrom(walls, origin.X, origin.Y, opts)
	if err != nil {
		return err
	}
	opts.Algorithm = visibility.FastBreakColumn
	fast, err := visibility.ComputeFrom(walls, origin.X, origin.Y, opts)
	if err != nil {
		return err
	}
	logger.Debug("compared algorithms", "exhaustive", exhaustive.Count(), "fast", fast.Count())

	printKeyValue("exhaustive", strconv.Itoa(exhaustive.Count()))
	printKeyValue("fast", strconv.Itoa(fast.Count()))
	if exhaustive.Equal(fast) {
		printSuccess("Algorithms agree")
	} else {
		printWarning("Algorithms disagree on %d tiles", exhaustive.Count()+fast.Count()-2*exhaustive.IntersectionCount(fast))
	}
	printGrid(walls, visibilityGrid(walls, origin, exhaustive, fast))
	return nil
}

// parseOrigin parses "x,y".
func parseOrigin(s string) (image.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return image.Point{}, perrors.New(perrors.ErrCodeInvalidOption, "origin must be x,y, got %q", s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil {
		return image.Point{}, perrors.New(perrors.ErrCodeInvalidOption, "origin must be two integers, got %q", s)
	}
	return image.Pt(x, y), nil
}

// visibilityGrid draws walls, origin and the visibility set a. When b is
// set, tiles seen by only one of a and b are marked separately.
func visibilityGrid(walls *bitmap.Bitmap, origin image.Point, a, b *bitmap.Bitmap) string {
	var sb strings.Builder
	for y := range walls.Height {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := range walls.Width {
			i := walls.Index(x, y)
			inA := a.Test(i)
			inB := b == nil || b.Test(i)
			switch {
			case x == origin.X && y == origin.Y:
				sb.WriteByte(gridOrigin)
			case walls.Test(i):
				sb.WriteByte(gridWall)
			case inA && inB:
				sb.WriteByte(gridSeen)
			case inA:
				sb.WriteByte(gridOnlyA)
			case b != nil && b.Test(i):
				sb.WriteByte(gridOnlyB)
			default:
				sb.WriteByte(gridHidden)
			}
		}
	}
	return sb.String()
}

// printGrid prints a grid unless the map is too large to be readable.
func printGrid(walls *bitmap.Bitmap, grid string) {
	if walls.Width > maxGridSide || walls.Height > maxGridSide {
		printDetail("map is %dx%d, grid omitted", walls.Width, walls.Height)
		return
	}
	for _, line := range strings.Split(grid, "\n") {
		fmt.Println("  " + styleGridLine(line))
	}
}
