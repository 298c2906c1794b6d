package io

import (
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/patrolgraph/pkg/patrol"
)

// GeoJSONOptions controls [WriteGeoJSON].
type GeoJSONOptions struct {
	// Partitions add a "partition" property to vertex features.
	Partitions []patrol.Partition
	// OffsetX and OffsetY are added to every coordinate, typically the
	// world offset of the source map.
	OffsetX, OffsetY int
}

// NewFeatureCollection converts a patrol graph into GeoJSON features:
// one Point per vertex (kind "vertex") followed by one LineString per edge
// (kind "edge"). Coordinates are tile coordinates with y growing
// downwards.
func NewFeatureCollection(g *patrol.Graph, opts GeoJSONOptions) *geojson.FeatureCollection {
	assign := patrol.Assignment(g.Len(), opts.Partitions)
	at := func(p orb.Point) orb.Point {
		return orb.Point{p[0] + float64(opts.OffsetX), p[1] + float64(opts.OffsetY)}
	}

	fc := geojson.NewFeatureCollection()
	for _, v := range g.Vertices() {
		f := geojson.NewFeature(at(orb.Point{float64(v.Position.X), float64(v.Position.Y)}))
		f.Properties["kind"] = "vertex"
		f.Properties["id"] = v.ID
		f.Properties["weight"] = v.Weight
		f.Properties["degree"] = len(v.Neighbors)
		if assign[v.ID] >= 0 {
			f.Properties["partition"] = assign[v.ID]
		}
		fc.Append(f)
	}
	for _, e := range g.Edges() {
		a, _ := g.Vertex(e[0])
		b, _ := g.Vertex(e[1])
		line := orb.LineString{
			at(orb.Point{float64(a.Position.X), float64(a.Position.Y)}),
			at(orb.Point{float64(b.Position.X), float64(b.Position.Y)}),
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "edge"
		f.Properties["from"] = e[0]
		f.Properties["to"] = e[1]
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON writes the graph as a GeoJSON FeatureCollection to w.
func WriteGeoJSON(w io.Writer, g *patrol.Graph, opts GeoJSONOptions) error {
	data, err := NewFeatureCollection(g, opts).MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ExportGeoJSON writes the graph as GeoJSON to the file at path.
func ExportGeoJSON(g *patrol.Graph, path string, opts GeoJSONOptions) error {
	data, err := NewFeatureCollection(g, opts).MarshalJSON()
	if err != nil {
		return err
	}
	return writeFile(path, data)
}
