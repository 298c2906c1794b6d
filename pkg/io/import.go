package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"

	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/patrol"
)

// ReadGraph decodes a JSON patrol graph from r.
//
// The input must be an object with "vertices" and "edges" arrays:
//
//	{
//	  "vertices": [{"id": 0, "x": 1, "y": 1, "weight": 1}, {"id": 1, "x": 5, "y": 1, "weight": 1}],
//	  "edges": [{"from": 0, "to": 1}]
//	}
//
// Vertex ids must be 0, 1, 2, ... in order. Optional "meta" and
// "partitions" fields are restored; per-vertex "partition" fields and edge
// routes are informational and ignored.
//
// ReadGraph returns an INVALID_GRAPH error if the JSON is malformed, ids
// are out of sequence, or an edge references an unknown vertex or is a self
// loop. It does not close r.
func ReadGraph(r io.Reader) (*patrol.Graph, []patrol.Partition, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, perrors.Wrap(perrors.ErrCodeInvalidGraph, err, "decode")
	}

	positions := make([]image.Point, len(doc.Vertices))
	for i, v := range doc.Vertices {
		if v.ID != i {
			return nil, nil, perrors.New(perrors.ErrCodeInvalidGraph, "vertex %d has id %d", i, v.ID)
		}
		positions[i] = image.Pt(v.X, v.Y)
	}

	g := patrol.New(positions)
	for k, v := range doc.Meta {
		g.Meta()[k] = v
	}
	for i, v := range doc.Vertices {
		g.Vertices()[i].Weight = v.Weight
		g.Vertices()[i].LastVisited = v.LastVisited
	}
	for _, e := range doc.Edges {
		if _, err := g.AddEdge(e.From, e.To); err != nil {
			return nil, nil, fmt.Errorf("edge %d-%d: %w", e.From, e.To, err)
		}
	}
	for _, p := range doc.Partitions {
		for _, id := range p.VertexIDs {
			if _, ok := g.Vertex(id); !ok {
				return nil, nil, perrors.New(perrors.ErrCodeInvalidGraph, "partition %d lists unknown vertex %d", p.ID, id)
			}
		}
	}
	return g, doc.Partitions, nil
}

// UnmarshalGraph decodes data produced by [MarshalGraph] or [WriteGraph].
func UnmarshalGraph(data []byte) (*patrol.Graph, []patrol.Partition, error) {
	return ReadGraph(bytes.NewReader(data))
}

// ImportGraph reads a JSON patrol graph from the file at path.
func ImportGraph(path string) (*patrol.Graph, []patrol.Partition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}
