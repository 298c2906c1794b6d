package cli

import (
	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/pipeline"
)

// fileConfig is the layout of a --config file:
//
//	[build]
//	max_distance = 12
//	connector = "rknn"
//	k = 3
//	partitions = 4
//	weight_expr = "Visible / 10"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "cache.internal:6379"
//	namespace = "warehouse"
type fileConfig struct {
	Build pipeline.Options `toml:"build"`
	Cache cacheConfig      `toml:"cache"`
}

// cacheConfig selects and configures the cache backend.
type cacheConfig struct {
	Backend       string `toml:"backend"`   // file (default), redis or none
	Dir           string `toml:"dir"`       // file backend directory, defaults to cacheDir()
	Reuse         bool   `toml:"reuse"`     // keep visibility entries of earlier runs
	Namespace     string `toml:"namespace"` // key prefix when several map sets share a backend
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// loadConfig reads a TOML config file. An empty path yields the defaults.
// Unknown keys are rejected so typos do not go unnoticed.
func loadConfig(path string) (fileConfig, error) {
	cfg := fileConfig{Cache: cacheConfig{Backend: backendFile}}
	if path == "" {
		return cfg, nil
	}
	if err := perrors.ValidatePath(path); err != nil {
		return cfg, err
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, perrors.Wrap(perrors.ErrCodeInvalidOption, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, perrors.New(perrors.ErrCodeInvalidOption, "config %s: unknown key %q", path, undecoded[0].String())
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = backendFile
	}
	if err := perrors.ValidateOneOf("cache backend", cfg.Cache.Backend, validBackends); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// mergeOptions returns base with every option whose flag was set on the
// command line replaced by the value in flagged.
func mergeOptions(base, flagged pipeline.Options, flags *pflag.FlagSet) pipeline.Options {
	out := base
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("max-distance", func() { out.MaxDistance = flagged.MaxDistance })
	set("algorithm", func() { out.Algorithm = flagged.Algorithm })
	set("workers", func() { out.Workers = flagged.Workers })
	set("connector", func() { out.Connector = flagged.Connector })
	set("k", func() { out.K = flagged.K })
	set("partitions", func() { out.Partitions = flagged.Partitions })
	set("weight", func() { out.WeightExpr = flagged.WeightExpr })
	set("refresh", func() { out.Refresh = flagged.Refresh })
	return out
}

// bindOptionFlags registers the build option flags on flags, writing into
// opts.
func bindOptionFlags(flags *pflag.FlagSet, opts *pipeline.Options) {
	flags.Float64Var(&opts.MaxDistance, "max-distance", 0, "sight range in tiles (0 = unlimited)")
	flags.StringVar(&opts.Algorithm, "algorithm", pipeline.DefaultAlgorithm, "visibility algorithm: exhaustive, fast")
	flags.IntVar(&opts.Workers, "workers", 0, "parallel visibility workers (0 = all CPUs)")
	flags.StringVar(&opts.Connector, "connector", pipeline.DefaultConnector, "graph connector: rknn, cycle, all-pairs")
	flags.IntVar(&opts.K, "k", pipeline.DefaultK, "neighbours per vertex for the rknn connector")
	flags.IntVarP(&opts.Partitions, "partitions", "n", pipeline.DefaultPartitions, "number of patrol territories")
	flags.StringVar(&opts.WeightExpr, "weight", "", `vertex weight expression, e.g. "Visible / 10"`)
	flags.BoolVar(&opts.Refresh, "refresh", false, "ignore cached graphs")
}
