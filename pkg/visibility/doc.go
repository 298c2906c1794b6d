// Package visibility computes, for every free tile of an occupancy map, the
// set of tiles it can see.
//
// # Line of Sight
//
// Two tiles see each other when the discrete Bresenham line between their
// centres crosses no wall. The endpoints themselves are not tested. The line
// is always walked from the tile with the lower row-major index to the one
// with the higher index, so [LineOfSight] is symmetric even though Bresenham
// lines are not. An optional maximum distance (Euclidean, between tile
// centres) limits how far a tile can see; zero means unlimited.
//
// # Algorithms
//
// Tiles are scanned column by column: the origin's own column first, then
// the columns to its right moving outwards, then those to its left. Two
// variants exist:
//
//   - [Exhaustive] scans every column.
//   - [FastBreakColumn] stops scanning in a direction as soon as one column
//     contributes no visible tile.
//
// The fast variant can miss tiles: a column fully blocked by walls does not
// imply that the columns behind it are hidden. Both variants are kept and
// their outputs are allowed to differ; [Compare] reports where they do.
//
// # Parallelism
//
// [Compute] runs one task per free tile on an errgroup bounded by
// [Options.Workers]. Every task reads the shared wall bitmap and writes only
// its own slot of the result, so no locking is needed.
//
// # Caching
//
// [Cache] wraps [Compute] with persistence through a [cache.Cache] backend,
// keyed by the map content hash and the options. Concurrent misses for the
// same key are computed once. A key the cache recorded earlier in the
// process whose entry has disappeared from the backend is reported as
// [ErrCacheCorruption] instead of being recomputed.
package visibility
