package connect

import (
	"image"

	"github.com/matzehuels/patrolgraph/pkg/distance"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/patrol"
)

// MaxAllPairsVertices is the default vertex limit of [AllPairs]. A complete
// graph on n vertices has n(n-1)/2 edges.
const MaxAllPairsVertices = 64

// AllPairs connects every vertex to every other vertex.
type AllPairs struct {
	// MaxVertices overrides MaxAllPairsVertices when positive.
	MaxVertices int
}

// Name returns "all-pairs".
func (AllPairs) Name() string { return NameAllPairs }

// Connect returns the complete graph over positions. It fails with
// TOO_MANY_VERTICES when the vertex count exceeds the limit.
func (a AllPairs) Connect(positions []image.Point, dist *distance.Matrix) (*patrol.Graph, error) {
	limit := a.MaxVertices
	if limit <= 0 {
		limit = MaxAllPairsVertices
	}
	if len(positions) > limit {
		return nil, perrors.New(perrors.ErrCodeTooManyVertices,
			"all-pairs supports at most %d vertices, got %d", limit, len(positions))
	}

	g, err := newGraph(a.Name(), positions, dist)
	if err != nil {
		return nil, err
	}
	for u := range positions {
		for v := u + 1; v < len(positions); v++ {
			link(g, u, v)
		}
	}
	return g, nil
}
