package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	"github.com/matzehuels/patrolgraph/pkg/distance"
	"github.com/matzehuels/patrolgraph/pkg/patrol"
)

type document struct {
	Meta       patrol.Metadata    `json:"meta,omitempty"`
	Vertices   []vertex           `json:"vertices"`
	Edges      []edge             `json:"edges"`
	Partitions []patrol.Partition `json:"partitions,omitempty"`
}

type vertex struct {
	ID          int     `json:"id"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Weight      float64 `json:"weight"`
	LastVisited int64   `json:"last_visited,omitempty"`
	Partition   *int    `json:"partition,omitempty"`
}

type edge struct {
	From   int      `json:"from"`
	To     int      `json:"to"`
	Length int      `json:"length,omitempty"`
	Route  [][2]int `json:"route,omitempty"`
}

// ExportOptions controls what [WriteGraph] includes besides the graph.
type ExportOptions struct {
	// Partitions are written as a top-level list and as a per-vertex
	// partition id.
	Partitions []patrol.Partition

	// Walls, when set, is used to compute the walking route of every edge.
	// Routes are reported in tile coordinates together with their length
	// in steps.
	Walls *bitmap.Bitmap
}

// WriteGraph encodes a patrol graph as indented JSON and writes it to w.
// The output can be re-imported with [ReadGraph].
func WriteGraph(w io.Writer, g *patrol.Graph, opts ExportOptions) error {
	doc, err := newDocument(g, opts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// MarshalGraph returns the compact JSON encoding of a graph and its
// partitions.
func MarshalGraph(g *patrol.Graph, parts []patrol.Partition) ([]byte, error) {
	doc, err := newDocument(g, ExportOptions{Partitions: parts})
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// ExportGraph writes a patrol graph to a JSON file at path.
func ExportGraph(g *patrol.Graph, path string, opts ExportOptions) error {
	var buf bytes.Buffer
	if err := WriteGraph(&buf, g, opts); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}

func newDocument(g *patrol.Graph, opts ExportOptions) (*document, error) {
	assign := patrol.Assignment(g.Len(), opts.Partitions)
	doc := &document{
		Meta:       g.Meta(),
		Vertices:   make([]vertex, g.Len()),
		Edges:      make([]edge, 0, g.EdgeCount()),
		Partitions: opts.Partitions,
	}

	for i, v := range g.Vertices() {
		vx := vertex{
			ID:          v.ID,
			X:           v.Position.X,
			Y:           v.Position.Y,
			Weight:      v.Weight,
			LastVisited: v.LastVisited,
		}
		if assign[i] >= 0 {
			p := assign[i]
			vx.Partition = &p
		}
		doc.Vertices[i] = vx
	}

	for _, e := range g.Edges() {
		ed := edge{From: e[0], To: e[1]}
		if opts.Walls != nil {
			a, _ := g.Vertex(e[0])
			b, _ := g.Vertex(e[1])
			route, err := distance.Path(opts.Walls, a.Position, b.Position, distance.Conn4)
			if err == nil {
				ed.Length = len(route) - 1
				ed.Route = points(route)
			}
		}
		doc.Edges = append(doc.Edges, ed)
	}
	return doc, nil
}

func points(ps []image.Point) [][2]int {
	out := make([][2]int, len(ps))
	for i, p := range ps {
		out[i] = [2]int{p.X, p.Y}
	}
	return out
}

func writeFile(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
