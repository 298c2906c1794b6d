package visibility

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
)

// seeAroundMap lets the bottom-left tile peek around the wall to (2,1).
var seeAroundMap = []string{
	"...",
	"##.",
	"...",
}

// discrepancyMap has a column next to the origin that blocks the fast
// variant while a tile further left is still visible.
var discrepancyMap = []string{
	".#.....",
	"..#....",
	".#.....",
}

func computeOrigin(t *testing.T, rows []string, x, y int, algo Algorithm) *bitmap.Bitmap {
	t.Helper()
	m, err := Compute(context.Background(), bitmap.MustParse(rows...), Options{Algorithm: algo})
	require.NoError(t, err)
	set := m.At(x, y)
	require.NotNil(t, set, "no visibility set for (%d,%d)", x, y)
	return set
}

func TestComputeSmallMaps(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		x, y int
		want int
	}{
		{"single tile", []string{"."}, 0, 0, 1},
		{"open 2x2", []string{"..", ".."}, 0, 0, 4},
		{"2x2 with wall", []string{"#.", ".."}, 1, 1, 3},
		{"see around walls", seeAroundMap, 0, 2, 4},
		{"closed room", []string{"#####", "#...#", "#####"}, 1, 1, 3},
	}

	for _, tt := range tests {
		for _, algo := range []Algorithm{Exhaustive, FastBreakColumn} {
			t.Run(tt.name+"/"+string(algo), func(t *testing.T) {
				got := computeOrigin(t, tt.rows, tt.x, tt.y, algo)
				assert.Equal(t, tt.want, got.Count())
			})
		}
	}
}

func TestSeeAroundWallsContents(t *testing.T) {
	got := computeOrigin(t, seeAroundMap, 0, 2, Exhaustive)
	assert.Equal(t, "...\n..#\n###", got.String())
}

func TestFastBreakColumnDiscrepancy(t *testing.T) {
	exhaustive := computeOrigin(t, discrepancyMap, 4, 2, Exhaustive)
	fast := computeOrigin(t, discrepancyMap, 4, 2, FastBreakColumn)

	assert.Equal(t, 15, exhaustive.Count())
	assert.Equal(t, 14, fast.Count())
	assert.True(t, exhaustive.Has(0, 1), "exhaustive scan should see (0,1)")
	assert.False(t, fast.Has(0, 1), "fast scan stops before column 0")

	missed := exhaustive.Clone()
	missed.ExceptWith(fast)
	assert.Equal(t, 1, missed.Count())
}

func TestCompareAlgorithms(t *testing.T) {
	walls := bitmap.MustParse(discrepancyMap...)
	ctx := context.Background()

	exhaustive, err := Compute(ctx, walls, Options{Algorithm: Exhaustive})
	require.NoError(t, err)
	fast, err := Compute(ctx, walls, Options{Algorithm: FastBreakColumn})
	require.NoError(t, err)

	assert.Equal(t, []int{3, 18}, Compare(exhaustive, fast))
	assert.Empty(t, Compare(exhaustive, exhaustive))
	assert.Equal(t, 226, exhaustive.TotalVisible())
}

func TestComputeInvariants(t *testing.T) {
	rows := []string{
		"#########",
		"#...#...#",
		"#.......#",
		"#...#...#",
		"#.#.....#",
		"#########",
	}
	walls := bitmap.MustParse(rows...)
	m, err := Compute(context.Background(), walls, Options{Workers: 3})
	require.NoError(t, err)

	assert.Equal(t, walls.Free(), m.Len())
	for _, i := range m.Origins() {
		set := m.AtIndex(i)
		require.True(t, set.Test(i), "tile %d missing from its own set", i)

		// Exhaustive visibility is symmetric.
		set.ForEachIndex(func(j int) {
			assert.True(t, m.AtIndex(j).Test(i), "%d sees %d but not the reverse", i, j)
		})

		// Walls are never visible.
		assert.Zero(t, set.IntersectionCount(walls))
	}
	assert.Nil(t, m.At(0, 0), "wall tiles have no set")
	assert.Nil(t, m.At(-1, 3))
}

func TestLineOfSightSymmetric(t *testing.T) {
	walls := bitmap.MustParse(
		"......",
		"..#...",
		"....#.",
		".#....",
	)
	for a := 0; a < walls.Len(); a++ {
		for b := 0; b < walls.Len(); b++ {
			ax, ay := walls.Coords(a)
			bx, by := walls.Coords(b)
			assert.Equal(t,
				LineOfSight(walls, ax, ay, bx, by, 0),
				LineOfSight(walls, bx, by, ax, ay, 0),
				"(%d,%d)-(%d,%d)", ax, ay, bx, by)
		}
	}
}

func TestMaxDistance(t *testing.T) {
	walls := bitmap.MustParse(".....")
	set, err := ComputeFrom(walls, 0, 0, Options{MaxDistance: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, set.Count())
	assert.False(t, LineOfSight(walls, 0, 0, 3, 0, 2.9))
	assert.True(t, LineOfSight(walls, 0, 0, 3, 0, 3))
}

func TestComputeFromErrors(t *testing.T) {
	walls := bitmap.MustParse("#.")

	_, err := ComputeFrom(walls, 0, 0, Options{})
	assert.True(t, perrors.Is(err, perrors.ErrCodeInvalidInput), "wall origin: %v", err)

	_, err = ComputeFrom(walls, 5, 0, Options{})
	assert.True(t, errors.Is(err, bitmap.ErrOutOfBounds), "outside origin: %v", err)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		ok   bool
	}{
		{"zero value", Options{}, true},
		{"fast", Options{Algorithm: FastBreakColumn, MaxDistance: 10}, true},
		{"unknown algorithm", Options{Algorithm: "raycast"}, false},
		{"negative distance", Options{MaxDistance: -1}, false},
		{"negative workers", Options{Workers: -2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, perrors.Is(err, perrors.ErrCodeInvalidOption), "got %v", err)
			}
		})
	}
}

func TestComputeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compute(ctx, bitmap.MustParse("....", "...."), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkCompute(b *testing.B) {
	walls := bitmap.MustNew(48, 48)
	for y := 8; y < 40; y += 8 {
		for x := 4; x < 44; x++ {
			if x%12 != 0 {
				_ = walls.Set(x, y)
			}
		}
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compute(ctx, walls, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}
