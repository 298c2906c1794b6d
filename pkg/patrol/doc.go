// Package patrol provides the patrol graph: an undirected graph whose
// vertices are guard positions on an occupancy map and whose edges are the
// routes agents walk between them.
//
// # Overview
//
// Vertices live in an arena indexed by id. A vertex's ID equals its index in
// [Graph.Vertices] and neighbours are stored as sorted id lists, so the
// graph has no pointer cycles and copies cheaply. Edges are undirected:
// [Graph.AddEdge] updates both endpoints.
//
//	g := patrol.New([]image.Point{{1, 1}, {5, 1}, {5, 4}})
//	g.AddEdge(0, 1)
//	g.AddEdge(1, 2)
//
// Graphs produced by the connectors in package connect always form a single
// connected component. [Graph.Validate] checks this together with the
// symmetry of the neighbour relation.
//
// # Consumers
//
// Agents consuming the graph record visits with [Graph.Visit]; the graph
// itself never reads [Vertex.LastVisited]. [Graph.Nearest] finds the vertices
// closest to an arbitrary map position using an R-tree built on its first
// call. [Graph.Subgraph] extracts the territory of one [Partition].
//
// # Concurrency
//
// Graph instances are not safe for concurrent mutation. After construction
// the topology does not change, so concurrent readers are safe.
package patrol
