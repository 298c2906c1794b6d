package patrol

import (
	"fmt"
	"image"
	"slices"
	"sync"

	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
)

var (
	// ErrUnknownVertex is returned when an operation references a vertex id
	// outside the graph's arena.
	ErrUnknownVertex = perrors.New(perrors.ErrCodeInvalidGraph, "unknown vertex")

	// ErrSelfLoop is returned by [Graph.AddEdge] when both endpoints are the
	// same vertex.
	ErrSelfLoop = perrors.New(perrors.ErrCodeInvalidGraph, "self loops are not allowed")

	// ErrAsymmetric is returned by [Graph.Validate] when u lists v as a
	// neighbour but v does not list u.
	ErrAsymmetric = perrors.New(perrors.ErrCodeInvalidGraph, "neighbour relation is not symmetric")

	// ErrNotConnected is returned by [Graph.Validate] when the graph has more
	// than one connected component.
	ErrNotConnected = perrors.New(perrors.ErrCodeInvalidGraph, "graph is not connected")
)

// DefaultWeight is the weight given to vertices created by [New].
const DefaultWeight = 1.0

// Metadata stores arbitrary key-value pairs attached to the graph, such as
// the connector that produced it or the hash of the source map.
type Metadata map[string]any

// Vertex is a patrol point. ID equals the vertex's index in the graph arena
// and never changes. Neighbors holds adjacent vertex ids, sorted ascending
// without duplicates.
type Vertex struct {
	ID       int
	Weight   float64
	Position image.Point

	// LastVisited is a tick owned by the consumer of the graph. The graph
	// never reads it.
	LastVisited int64

	Neighbors []int
}

// Graph is an undirected patrol graph stored as an arena of vertices.
//
// The zero value is an empty graph; use [New] to create one with vertices.
// Graph is not safe for concurrent mutation. Once built, concurrent reads
// are safe; [Graph.Visit] writes only the visited vertex's LastVisited.
type Graph struct {
	vertices []*Vertex
	edges    int
	meta     Metadata

	indexOnce sync.Once
	index     *spatialIndex // built by the first Nearest call
}

// New creates a graph with one vertex per position and no edges. Vertex i
// sits at positions[i] and has weight [DefaultWeight].
func New(positions []image.Point) *Graph {
	g := &Graph{
		vertices: make([]*Vertex, len(positions)),
		meta:     Metadata{},
	}
	for i, p := range positions {
		g.vertices[i] = &Vertex{ID: i, Weight: DefaultWeight, Position: p}
	}
	return g
}

// Meta returns the graph-level metadata map. It is never nil for graphs
// created by [New].
func (g *Graph) Meta() Metadata { return g.meta }

// Len returns the number of vertices.
func (g *Graph) Len() int { return len(g.vertices) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Vertices returns the vertex arena. The slice is shared with the graph and
// must not be modified.
func (g *Graph) Vertices() []*Vertex { return g.vertices }

// Vertex returns the vertex with the given id.
func (g *Graph) Vertex(id int) (*Vertex, bool) {
	if id < 0 || id >= len(g.vertices) {
		return nil, false
	}
	return g.vertices[id], true
}

// Neighbors returns the sorted neighbour ids of a vertex, or nil if the id is
// unknown. The returned slice must not be modified.
func (g *Graph) Neighbors(id int) []int {
	v, ok := g.Vertex(id)
	if !ok {
		return nil
	}
	return v.Neighbors
}

// Degree returns the number of neighbours of a vertex, or 0 if the id is
// unknown.
func (g *Graph) Degree(id int) int { return len(g.Neighbors(id)) }

// Positions returns the position of every vertex, indexed by id.
func (g *Graph) Positions() []image.Point {
	out := make([]image.Point, len(g.vertices))
	for i, v := range g.vertices {
		out[i] = v.Position
	}
	return out
}

// AddEdge connects u and v. Adding an edge that already exists is a no-op
// and reports false.
func (g *Graph) AddEdge(u, v int) (bool, error) {
	if _, ok := g.Vertex(u); !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownVertex, u)
	}
	if _, ok := g.Vertex(v); !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownVertex, v)
	}
	if u == v {
		return false, fmt.Errorf("%w: %d", ErrSelfLoop, u)
	}
	if !insertSorted(&g.vertices[u].Neighbors, v) {
		return false, nil
	}
	insertSorted(&g.vertices[v].Neighbors, u)
	g.edges++
	return true, nil
}

// HasEdge reports whether u and v are adjacent.
func (g *Graph) HasEdge(u, v int) bool {
	_, found := slices.BinarySearch(g.Neighbors(u), v)
	return found
}

// Edges returns every edge once as a pair (u, v) with u < v, sorted
// lexicographically.
func (g *Graph) Edges() [][2]int {
	out := make([][2]int, 0, g.edges)
	for _, v := range g.vertices {
		for _, n := range v.Neighbors {
			if v.ID < n {
				out = append(out, [2]int{v.ID, n})
			}
		}
	}
	return out
}

// Visit records tick as the last visit of a vertex.
func (g *Graph) Visit(id int, tick int64) error {
	v, ok := g.Vertex(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVertex, id)
	}
	v.LastVisited = tick
	return nil
}

// Components returns the connected components of the graph. Each component
// lists its vertex ids in ascending order; components are ordered by their
// smallest id.
func (g *Graph) Components() [][]int {
	seen := make([]bool, len(g.vertices))
	var comps [][]int
	var stack []int
	for start := range g.vertices {
		if seen[start] {
			continue
		}
		seen[start] = true
		stack = append(stack[:0], start)
		var comp []int
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, id)
			for _, n := range g.vertices[id].Neighbors {
				if !seen[n] {
					seen[n] = true
					stack = append(stack, n)
				}
			}
		}
		slices.Sort(comp)
		comps = append(comps, comp)
	}
	return comps
}

// Connected reports whether the graph forms a single connected component.
// An empty graph is connected.
func (g *Graph) Connected() bool { return len(g.Components()) <= 1 }

// Validate checks structural integrity and returns nil if the graph is a
// valid patrol graph:
//
//  1. Every vertex's ID matches its arena index
//  2. Neighbour lists are sorted, duplicate-free and reference known vertices
//     other than the vertex itself
//  3. The neighbour relation is symmetric
//  4. The graph has exactly one connected component (or no vertices)
func (g *Graph) Validate() error {
	edges := 0
	for i, v := range g.vertices {
		if v == nil || v.ID != i {
			return perrors.New(perrors.ErrCodeInvalidGraph, "vertex %d has a mismatched id", i)
		}
		for k, n := range v.Neighbors {
			if n < 0 || n >= len(g.vertices) {
				return fmt.Errorf("%w: %d lists %d", ErrUnknownVertex, i, n)
			}
			if n == i {
				return fmt.Errorf("%w: %d", ErrSelfLoop, i)
			}
			if k > 0 && v.Neighbors[k-1] >= n {
				return perrors.New(perrors.ErrCodeInvalidGraph, "neighbours of %d are not sorted and unique", i)
			}
		}
	}
	for _, v := range g.vertices {
		for _, n := range v.Neighbors {
			if !g.HasEdge(n, v.ID) {
				return fmt.Errorf("%w: %d-%d", ErrAsymmetric, v.ID, n)
			}
			if v.ID < n {
				edges++
			}
		}
	}
	if edges != g.edges {
		return perrors.New(perrors.ErrCodeInvalidGraph, "edge count %d does not match %d stored edges", g.edges, edges)
	}
	if comps := g.Components(); len(comps) > 1 {
		return fmt.Errorf("%w: %d components", ErrNotConnected, len(comps))
	}
	return nil
}

// Subgraph returns the graph induced by ids. Vertex i of the result
// corresponds to ids[i]; edges between selected vertices are kept, weights,
// visit ticks and metadata are copied.
func (g *Graph) Subgraph(ids []int) (*Graph, error) {
	local := make(map[int]int, len(ids))
	positions := make([]image.Point, len(ids))
	for i, id := range ids {
		v, ok := g.Vertex(id)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownVertex, id)
		}
		if _, dup := local[id]; dup {
			return nil, perrors.New(perrors.ErrCodeInvalidInput, "vertex %d selected twice", id)
		}
		local[id] = i
		positions[i] = v.Position
	}

	sub := New(positions)
	for k, v := range g.meta {
		sub.meta[k] = v
	}
	for i, id := range ids {
		src := g.vertices[id]
		sub.vertices[i].Weight = src.Weight
		sub.vertices[i].LastVisited = src.LastVisited
		for _, n := range src.Neighbors {
			if j, ok := local[n]; ok {
				_, _ = sub.AddEdge(i, j)
			}
		}
	}
	return sub, nil
}

// Partition is one part of a territory split: a set of vertex ids assigned
// to the same agent.
type Partition struct {
	ID        int   `json:"id"`
	VertexIDs []int `json:"vertices"`
}

// Assignment maps every vertex id to the ID of the partition containing it.
// Vertices not covered by any partition map to -1.
func Assignment(n int, parts []Partition) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = -1
	}
	for _, p := range parts {
		for _, id := range p.VertexIDs {
			if id >= 0 && id < n {
				out[id] = p.ID
			}
		}
	}
	return out
}

func insertSorted(s *[]int, v int) bool {
	i, found := slices.BinarySearch(*s, v)
	if found {
		return false
	}
	*s = slices.Insert(*s, i, v)
	return true
}
