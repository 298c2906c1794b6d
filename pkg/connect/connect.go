// Package connect turns a set of guard positions into a connected patrol
// graph.
//
// Three strategies implement [Connector]:
//
//   - [AllPairs] links every pair of vertices. It is meant for small graphs
//     and refuses more than [MaxAllPairsVertices] vertices.
//   - [Cycle] builds a nearest-neighbour tour starting at vertex 0, so every
//     vertex has exactly two neighbours.
//   - [ReverseKNN] links each vertex to the vertices that count it among
//     their k nearest, then joins the resulting islands pairwise until one
//     component remains.
//
// All strategies measure closeness by walking distance from a
// [distance.Matrix] and break ties by the lower vertex id, so results are
// deterministic.
package connect

import (
	"image"
	"sort"
	"strings"

	"github.com/matzehuels/patrolgraph/pkg/distance"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/patrol"
)

// Connector names accepted by [ByName].
const (
	NameAllPairs   = "all-pairs"
	NameCycle      = "cycle"
	NameReverseKNN = "rknn"
)

// DefaultK is the neighbour count used by [ReverseKNN] when K is zero.
const DefaultK = 3

// ValidConnectors contains all connector names accepted by [ByName].
var ValidConnectors = map[string]bool{
	NameAllPairs:   true,
	NameCycle:      true,
	NameReverseKNN: true,
}

// Connector builds a patrol graph over vertices at the given positions.
// dist must hold the walking distance between every pair of positions, in
// the same order.
type Connector interface {
	Name() string
	Connect(positions []image.Point, dist *distance.Matrix) (*patrol.Graph, error)
}

// ByName returns the connector registered under name. k is used by
// [ReverseKNN] and ignored by the others.
func ByName(name string, k int) (Connector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameAllPairs, "allpairs", "all":
		return AllPairs{}, nil
	case NameCycle, "tour":
		return Cycle{}, nil
	case NameReverseKNN, "reverse-knn":
		return ReverseKNN{K: k}, nil
	}
	return nil, perrors.New(perrors.ErrCodeInvalidOption, "unknown connector %q (valid: %s)", name, validNames())
}

func validNames() string {
	names := make([]string, 0, len(ValidConnectors))
	for n := range ValidConnectors {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// newGraph checks that positions and dist agree and creates the edgeless
// graph every connector starts from.
func newGraph(name string, positions []image.Point, dist *distance.Matrix) (*patrol.Graph, error) {
	if dist == nil {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "%s: distance matrix is nil", name)
	}
	if dist.Len() != len(positions) {
		return nil, perrors.New(perrors.ErrCodeInvalidInput,
			"%s: %d positions but distance matrix covers %d", name, len(positions), dist.Len())
	}
	g := patrol.New(positions)
	g.Meta()["connector"] = name
	return g, nil
}

// link adds an edge the connector has already checked to be valid.
func link(g *patrol.Graph, u, v int) {
	if _, err := g.AddEdge(u, v); err != nil {
		panic(err)
	}
}
