// Package pipeline turns an occupancy map into a patrol graph.
//
// A [Builder] runs the stages in order:
//
//  1. Visibility: compute what every free tile can see
//  2. Guards: choose a small set of tiles that together see everything
//  3. Distances: walking distances between all guards
//  4. Connect: link guards into a patrol graph
//  5. Weights: assign vertex weights, optionally from an expression
//  6. Partition: split the graph into territories
//
// Both the CLI and tests drive builds through [Builder.Build], so defaults
// and validation live in one place: [Options].
//
// # Usage
//
//	b := pipeline.NewBuilder(backend, pipeline.BuilderOptions{Logger: logger})
//	defer b.Close()
//
//	res, err := b.Build(ctx, walls, pipeline.Options{
//	    MaxDistance: 12,
//	    Connector:   "rknn",
//	    Partitions:  3,
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Graph.Len(), "vertices in", len(res.Partitions), "partitions")
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	"github.com/matzehuels/patrolgraph/pkg/cache"
	"github.com/matzehuels/patrolgraph/pkg/connect"
	"github.com/matzehuels/patrolgraph/pkg/distance"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/guard"
	"github.com/matzehuels/patrolgraph/pkg/patrol"
	"github.com/matzehuels/patrolgraph/pkg/visibility"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Library Callers
// =============================================================================

const (
	// DefaultAlgorithm is the default visibility algorithm.
	DefaultAlgorithm = string(visibility.Exhaustive)

	// DefaultConnector is the default graph connector.
	DefaultConnector = connect.NameReverseKNN

	// DefaultK is the default neighbour count of the reverse-kNN connector.
	DefaultK = connect.DefaultK

	// DefaultPartitions is the default number of territories.
	DefaultPartitions = 1

	// MaxPartitions bounds the requested territory count.
	MaxPartitions = 1024
)

// Stage names reported to observability hooks and used in error messages.
const (
	StageVisibility = "visibility"
	StageGuards     = "guards"
	StageDistances  = "distances"
	StageConnect    = "connect"
	StageWeights    = "weights"
	StagePartition  = "partition"
)

// ValidAlgorithms is the set of supported visibility algorithms.
var ValidAlgorithms = visibility.ValidAlgorithms

// ValidConnectors is the set of supported connector names.
var ValidConnectors = connect.ValidConnectors

// =============================================================================
// Options - Build Configuration
// =============================================================================

// Options contains all configuration for a build. It supports JSON and TOML
// serialization so the CLI can load it from a config file.
type Options struct {
	// Visibility options
	MaxDistance float64 `json:"max_distance,omitempty" toml:"max_distance"`
	Algorithm   string  `json:"algorithm,omitempty" toml:"algorithm"`
	Workers     int     `json:"workers,omitempty" toml:"workers"`

	// Graph options
	Connector  string `json:"connector,omitempty" toml:"connector"`
	K          int    `json:"k,omitempty" toml:"k"`
	Partitions int    `json:"partitions,omitempty" toml:"partitions"`
	WeightExpr string `json:"weight_expr,omitempty" toml:"weight_expr"`

	// Refresh skips the graph cache lookup. The result is still stored.
	Refresh bool `json:"refresh,omitempty" toml:"refresh"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a build.
//
// On a graph cache hit only BuildID, MapHash, Walls, Graph, Partitions and
// the Stats counts are set; the intermediate stages did not run.
type Result struct {
	// BuildID identifies the build that produced Graph. Cache hits keep the
	// id of the original build.
	BuildID string

	// MapHash is the content hash of the input map.
	MapHash string

	Walls      *bitmap.Bitmap
	Visibility *visibility.Map
	Guards     []guard.Guard
	Distances  *distance.Matrix
	Graph      *patrol.Graph
	Partitions []patrol.Partition

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains build statistics.
type Stats struct {
	FreeTiles  int
	Guards     int
	Edges      int
	Partitions int

	VisibilityTime time.Duration
	GuardTime      time.Duration
	DistanceTime   time.Duration
	ConnectTime    time.Duration
	WeightTime     time.Duration
	PartitionTime  time.Duration
	TotalTime      time.Duration
}

// CacheInfo tracks cache hits for each build stage.
type CacheInfo struct {
	VisibilityHit bool // Whether the visibility map came from cache
	GraphHit      bool // Whether the whole graph came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks every field and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if o.Algorithm == "" {
		o.Algorithm = DefaultAlgorithm
	}
	if o.Connector == "" {
		o.Connector = DefaultConnector
	}
	if o.K == 0 {
		o.K = DefaultK
	}
	if o.Partitions == 0 {
		o.Partitions = DefaultPartitions
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	if err := perrors.ValidateNonNegative("max_distance", o.MaxDistance); err != nil {
		return err
	}
	if err := perrors.ValidateOneOf("algorithm", o.Algorithm, ValidAlgorithms); err != nil {
		return err
	}
	if o.Workers < 0 {
		return perrors.New(perrors.ErrCodeInvalidOption, "workers must be >= 0, got %d", o.Workers)
	}
	if err := perrors.ValidateOneOf("connector", o.Connector, ValidConnectors); err != nil {
		return err
	}
	if err := perrors.ValidatePositive("k", o.K); err != nil {
		return err
	}
	if err := perrors.ValidatePositive("partitions", o.Partitions); err != nil {
		return err
	}
	if o.Partitions > MaxPartitions {
		return perrors.New(perrors.ErrCodeInvalidOption, "partitions must be <= %d, got %d", MaxPartitions, o.Partitions)
	}
	if o.WeightExpr != "" {
		if _, err := CompileWeight(o.WeightExpr); err != nil {
			return err
		}
	}

	o.validated = true
	return nil
}

// VisibilityOptions returns the options of the visibility stage.
func (o *Options) VisibilityOptions() visibility.Options {
	return visibility.Options{
		MaxDistance: o.MaxDistance,
		Algorithm:   visibility.Algorithm(o.Algorithm),
		Workers:     o.Workers,
	}
}

// GraphKeyOpts returns cache key options for a full build result.
func (o *Options) GraphKeyOpts() cache.GraphKeyOpts {
	return cache.GraphKeyOpts{
		VisibilityKeyOpts: cache.VisibilityKeyOpts{
			MaxDistance: o.MaxDistance,
			Algorithm:   o.Algorithm,
		},
		Connector:  o.Connector,
		K:          o.K,
		Partitions: o.Partitions,
		WeightExpr: o.WeightExpr,
	}
}
