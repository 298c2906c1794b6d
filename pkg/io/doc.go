// Package io reads occupancy maps and reads and writes patrol graphs.
//
// # Maps
//
// Maps are plain ASCII, one line per row of tiles:
//
//	; warehouse, ground floor
//	; offset 100 40
//	##########
//	#....#...#
//	#........#
//	##########
//
// '#', 'X' and '1' are walls; '.', ' ' and '0' are free. Lines starting with
// ';' are comments; "; offset x y" places tile (0,0) in world coordinates.
// Use [LoadMap] for files and [ReadMap] for any io.Reader.
//
// # Graph JSON
//
// [WriteGraph] and [ReadGraph] use a simple JSON document:
//
//	{
//	  "meta": {"connector": "rknn", "build_id": "..."},
//	  "vertices": [{"id": 0, "x": 1, "y": 1, "weight": 1, "partition": 0}],
//	  "edges": [{"from": 0, "to": 1, "length": 7, "route": [[1, 1], [2, 1]]}],
//	  "partitions": [{"id": 0, "vertices": [0, 1]}]
//	}
//
// Edge lengths and routes are written when [ExportOptions.Walls] is set.
// They are informational and ignored on import; everything else round-trips.
//
// # GeoJSON
//
// [WriteGeoJSON] exports the graph as a FeatureCollection of Points and
// LineStrings for GIS tooling.
package io
