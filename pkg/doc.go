// Package pkg provides the libraries behind patrolgraph.
//
// # Overview
//
// Patrolgraph turns a 2D occupancy map into a patrol graph: a small set of
// guard tiles that together see every free tile, linked into a connected
// graph and optionally split into territories for several agents. The pkg
// directory is organized into four areas:
//
//  1. Map and visibility: [bitmap], [visibility]
//  2. Graph synthesis: [guard], [distance], [connect], [partition], [patrol]
//  3. Orchestration: [pipeline], [cache], [observability]
//  4. Serialization and support: [io], [errors], [buildinfo]
//
// # Architecture
//
// The data flow through a build:
//
//	occupancy map (ASCII)
//	         ↓
//	    [io] LoadMap              → *bitmap.Bitmap
//	         ↓
//	    [visibility] Compute      → visibility set per free tile (cached)
//	         ↓
//	    [guard] Place             → greedy set cover
//	         ↓
//	    [distance] Compute        → all-pairs walking distances
//	         ↓
//	    [connect] Connector       → connected patrol graph
//	         ↓
//	    [partition] Spectral      → territories
//	         ↓
//	    [io] WriteGraph / WriteGeoJSON
//
// # Quick Start
//
// The [pipeline] package runs every stage with caching:
//
//	walls, _ := io.LoadMap("floor1.txt")
//	b := pipeline.NewBuilder(nil, pipeline.BuilderOptions{})
//	res, _ := b.Build(ctx, walls, pipeline.Options{Partitions: 3})
//	_ = io.ExportGraph(res.Graph, "floor1.graph.json", io.ExportOptions{Partitions: res.Partitions})
//
// The stages can also be called directly:
//
//	vis, _ := visibility.Compute(ctx, walls, visibility.Options{})
//	guards, _ := guard.Place(vis)
//	points := make([]image.Point, len(guards))
//	for i, g := range guards {
//	    points[i] = image.Pt(g.X, g.Y)
//	}
//	dist, _ := distance.Compute(ctx, walls, points, distance.Conn4)
//	conn, _ := connect.ByName("rknn", 3)
//	g, _ := conn.Connect(points, dist)
//	parts, _ := partition.Spectral(dist, 3)
//
// # Testing
//
//	go test ./pkg/...
//	go test -run Example ./pkg/...
//	go test -bench . ./pkg/bitmap ./pkg/visibility
package pkg
