package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	"github.com/matzehuels/patrolgraph/pkg/buildinfo"
	"github.com/matzehuels/patrolgraph/pkg/cache"
	"github.com/matzehuels/patrolgraph/pkg/connect"
	"github.com/matzehuels/patrolgraph/pkg/distance"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/guard"
	pio "github.com/matzehuels/patrolgraph/pkg/io"
	"github.com/matzehuels/patrolgraph/pkg/observability"
	"github.com/matzehuels/patrolgraph/pkg/partition"
	"github.com/matzehuels/patrolgraph/pkg/patrol"
	"github.com/matzehuels/patrolgraph/pkg/visibility"
)

// graphKeyType labels graph cache events for observability hooks.
const graphKeyType = "graph"

// Graph metadata keys written by Build.
const (
	MetaBuildID   = "build_id"
	MetaMapHash   = "map_hash"
	MetaAlgorithm = "algorithm"
	MetaVersion   = "patrolgraph_version"
)

// BuilderOptions configures NewBuilder.
type BuilderOptions struct {
	// Keyer derives cache keys. Defaults to cache.NewDefaultKeyer().
	Keyer cache.Keyer
	// Logger defaults to log.Default().
	Logger *log.Logger
	// ReuseVisibility keeps visibility and graph entries written by
	// earlier processes instead of invalidating them on the first build.
	ReuseVisibility bool
}

// Builder runs builds with caching.
//
// Visibility maps and graphs live under the same keyer. Unless
// ReuseVisibility is set, the first Build of a Builder invalidates both
// kinds of entries left by earlier processes before it looks anything up,
// so a graph is only served from the cache if this Builder built it. With
// ReuseVisibility, graphs are served for up to cache.TTLGraph.
//
// The Builder is stateless except for its caches and logger; it doesn't
// store build results. Multiple goroutines can safely use the same Builder
// with different options.
type Builder struct {
	// Visibility memoizes visibility maps. Nil computes them on every build.
	Visibility *visibility.Cache
	// Cache stores finished graphs.
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewBuilder creates a builder on top of backend. Visibility maps and
// finished graphs share the backend. If backend is nil, nothing is cached.
func NewBuilder(backend cache.Cache, opts BuilderOptions) *Builder {
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	b := &Builder{
		Cache:  backend,
		Keyer:  opts.Keyer,
		Logger: opts.Logger,
	}
	if backend == nil {
		b.Cache = cache.NewNullCache()
		return b
	}
	b.Visibility = visibility.NewCache(backend, visibility.CacheOptions{
		Keyer:         opts.Keyer,
		Logger:        opts.Logger,
		ReuseExisting: opts.ReuseVisibility,
	})
	return b
}

// Build runs every stage on walls and returns the patrol graph with its
// intermediate results.
//
// Errors are prefixed with the failing stage ("connect: ...") and keep the
// cause's error code.
func (b *Builder) Build(ctx context.Context, walls *bitmap.Bitmap, opts Options) (_ *Result, err error) {
	if walls == nil {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "no map")
	}
	b.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if walls.Free() == 0 {
		return nil, perrors.New(perrors.ErrCodeInvalidMap, "map has no free tiles")
	}

	start := time.Now()
	res := &Result{
		BuildID: uuid.NewString(),
		MapHash: walls.Hash(),
		Walls:   walls,
	}
	res.Stats.FreeTiles = walls.Free()
	defer func() {
		res.Stats.TotalTime = time.Since(start)
		observability.Build().OnBuildComplete(ctx, res.Stats.Guards, res.Stats.Edges, res.Stats.TotalTime, err)
	}()

	if b.Visibility != nil {
		if err := b.Visibility.Invalidate(ctx); err != nil {
			return nil, err
		}
	}
	key := b.Keyer.GraphKey(res.MapHash, opts.GraphKeyOpts())
	if !opts.Refresh && b.loadGraph(ctx, key, res, opts.Logger) {
		opts.Logger.Info("graph cache hit",
			"vertices", res.Graph.Len(),
			"edges", res.Graph.EdgeCount(),
			"build_id", res.BuildID)
		return res, nil
	}

	if err = b.run(ctx, res, opts); err != nil {
		return nil, err
	}
	b.storeGraph(ctx, key, res, opts.Logger)
	return res, nil
}

func (b *Builder) run(ctx context.Context, res *Result, opts Options) error {
	logger := opts.Logger

	err := stage(ctx, StageVisibility, &res.Stats.VisibilityTime, func() error {
		vis, hit, err := b.visibility(ctx, res.Walls, opts.VisibilityOptions())
		res.Visibility, res.CacheInfo.VisibilityHit = vis, hit
		return err
	})
	if err != nil {
		return err
	}
	logger.Info("computed visibility",
		"tiles", res.Stats.FreeTiles,
		"algorithm", opts.Algorithm,
		"cached", res.CacheInfo.VisibilityHit,
		"duration", res.Stats.VisibilityTime)

	err = stage(ctx, StageGuards, &res.Stats.GuardTime, func() error {
		var err error
		res.Guards, err = guard.Place(res.Visibility)
		return err
	})
	if err != nil {
		return err
	}
	res.Stats.Guards = len(res.Guards)
	logger.Info("placed guards", "guards", len(res.Guards), "duration", res.Stats.GuardTime)

	positions := make([]image.Point, len(res.Guards))
	for i, g := range res.Guards {
		positions[i] = image.Pt(g.X, g.Y)
	}

	err = stage(ctx, StageDistances, &res.Stats.DistanceTime, func() error {
		var err error
		res.Distances, err = distance.Compute(ctx, res.Walls, positions, distance.Conn4)
		return err
	})
	if err != nil {
		return err
	}
	logger.Debug("computed distances", "pairs", len(positions)*(len(positions)-1)/2, "duration", res.Stats.DistanceTime)

	err = stage(ctx, StageConnect, &res.Stats.ConnectTime, func() error {
		c, err := connect.ByName(opts.Connector, opts.K)
		if err != nil {
			return err
		}
		res.Graph, err = c.Connect(positions, res.Distances)
		return err
	})
	if err != nil {
		return err
	}
	res.Stats.Edges = res.Graph.EdgeCount()
	logger.Info("connected graph",
		"connector", opts.Connector,
		"edges", res.Stats.Edges,
		"duration", res.Stats.ConnectTime)

	if opts.WeightExpr != "" {
		err = stage(ctx, StageWeights, &res.Stats.WeightTime, func() error {
			w, err := CompileWeight(opts.WeightExpr)
			if err != nil {
				return err
			}
			return ApplyWeights(res.Graph, res.Visibility, w)
		})
		if err != nil {
			return err
		}
		logger.Debug("applied weights", "expr", opts.WeightExpr, "duration", res.Stats.WeightTime)
	}

	err = stage(ctx, StagePartition, &res.Stats.PartitionTime, func() error {
		var err error
		res.Partitions, err = partitionGraph(res.Distances, opts.Partitions)
		return err
	})
	if err != nil {
		return err
	}
	res.Stats.Partitions = len(res.Partitions)
	logger.Info("partitioned graph",
		"requested", opts.Partitions,
		"partitions", res.Stats.Partitions,
		"duration", res.Stats.PartitionTime)

	meta := res.Graph.Meta()
	meta[MetaBuildID] = res.BuildID
	meta[MetaMapHash] = res.MapHash
	meta[MetaAlgorithm] = opts.Algorithm
	meta[MetaVersion] = buildinfo.Get().Version
	return nil
}

// stage runs fn as one named build stage, reporting it to the build hooks
// and storing its duration in d.
func stage(ctx context.Context, name string, d *time.Duration, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return perrors.Wrap(perrors.ErrCodeCancelled, err, "%s", name)
	}
	hooks := observability.Build()
	hooks.OnStageStart(ctx, name)
	start := time.Now()
	err := fn()
	*d = time.Since(start)
	hooks.OnStageComplete(ctx, name, *d, err)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (b *Builder) visibility(ctx context.Context, walls *bitmap.Bitmap, opts visibility.Options) (*visibility.Map, bool, error) {
	if b.Visibility == nil {
		m, err := visibility.Compute(ctx, walls, opts)
		return m, false, err
	}
	return b.Visibility.Get(ctx, walls, opts)
}

// partitionGraph splits n or fewer territories off dist. When there are no
// more vertices than requested parts every vertex is its own territory.
func partitionGraph(dist *distance.Matrix, n int) ([]patrol.Partition, error) {
	if n > 1 && dist.Len() <= n {
		parts := make([]patrol.Partition, dist.Len())
		for i := range parts {
			parts[i] = patrol.Partition{ID: i, VertexIDs: []int{i}}
		}
		return parts, nil
	}
	return partition.Spectral(dist, n)
}

// loadGraph fills res from the graph cache and reports whether it did.
func (b *Builder) loadGraph(ctx context.Context, key string, res *Result, logger *log.Logger) bool {
	data, hit, err := b.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("graph cache lookup failed", "error", err)
		return false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, graphKeyType)
		return false
	}
	g, parts, err := pio.UnmarshalGraph(data)
	if err != nil {
		// Unreadable entries are rebuilt and overwritten.
		logger.Warn("discarding cached graph", "error", err)
		return false
	}
	observability.Cache().OnCacheHit(ctx, graphKeyType)

	if id, ok := g.Meta()[MetaBuildID].(string); ok {
		res.BuildID = id
	}
	res.Graph = g
	res.Partitions = parts
	res.CacheInfo.GraphHit = true
	res.Stats.Guards = g.Len()
	res.Stats.Edges = g.EdgeCount()
	res.Stats.Partitions = len(parts)
	return true
}

func (b *Builder) storeGraph(ctx context.Context, key string, res *Result, logger *log.Logger) {
	data, err := pio.MarshalGraph(res.Graph, res.Partitions)
	if err != nil {
		logger.Warn("encode graph for cache", "error", err)
		return
	}
	if err := b.Cache.Set(ctx, key, data, cache.TTLGraph); err != nil {
		logger.Warn("store graph in cache", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, graphKeyType, len(data))
}

// Close releases the builder's caches and their backend.
func (b *Builder) Close() error {
	if b.Visibility != nil {
		return b.Visibility.Close()
	}
	if b.Cache != nil {
		return b.Cache.Close()
	}
	return nil
}

// applyLogger sets the builder's logger on options if not already set.
func (b *Builder) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = b.Logger
	}
}
