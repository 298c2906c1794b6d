// Package cli implements the patrolgraph command-line interface.
//
// # Commands
//
//   - build: turn an ASCII occupancy map into a patrol graph
//   - visibility: show what one tile can see, optionally comparing algorithms
//   - cache: inspect or clear the result cache
//   - completion: generate shell completion scripts
//
// # Configuration
//
// Build options come from flags and, with --config, from a TOML file. Flags
// given on the command line override values from the file. All commands
// support --verbose (-v) for debug-level logging and --metrics-file to dump
// Prometheus metrics when the command finishes.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/patrolgraph/pkg/buildinfo"
	"github.com/matzehuels/patrolgraph/pkg/cache"
	"github.com/matzehuels/patrolgraph/pkg/observability"
	"github.com/matzehuels/patrolgraph/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "patrolgraph"
)

// Cache backends selectable in the config file.
const (
	backendFile  = "file"
	backendRedis = "redis"
	backendNone  = "none"
)

var validBackends = map[string]bool{
	backendFile:  true,
	backendRedis: true,
	backendNone:  true,
}

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath  string
	metricsFile string
	metrics     *observability.PromHooks
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Patrolgraph plans patrol routes for occupancy maps",
		Long:         `Patrolgraph places guards that together see every free tile of a 2D occupancy map, links them into a patrol graph and splits the graph into territories for several agents.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			if c.metricsFile != "" {
				c.metrics = observability.NewPromHooks()
				observability.Register(c.metrics)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.writeMetrics()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "TOML config file with build and cache settings")
	root.PersistentFlags().StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.visibilityCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) writeMetrics() error {
	if c.metrics == nil {
		return nil
	}
	if err := c.metrics.WriteToTextfile(c.metricsFile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	c.Logger.Debug("wrote metrics", "path", c.metricsFile)
	return nil
}

// =============================================================================
// Builder Factory
// =============================================================================

// newBuilder creates a pipeline builder for CLI use.
func (c *CLI) newBuilder(ctx context.Context, cfg cacheConfig, noCache bool) (*pipeline.Builder, error) {
	backend, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewBuilder(backend, pipeline.BuilderOptions{
		Keyer:           newKeyer(cfg),
		Logger:          c.Logger,
		ReuseVisibility: cfg.Reuse,
	}), nil
}

// newKeyer scopes cache keys to the configured namespace.
func newKeyer(cfg cacheConfig) cache.Keyer {
	if cfg.Namespace == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, cfg.Namespace+":")
}

// newCache opens the configured backend. A nil cache means caching is off.
func newCache(ctx context.Context, cfg cacheConfig, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Backend == backendNone {
		return nil, nil
	}
	if cfg.Backend == backendRedis {
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	dir := cfg.Dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return nil, nil
		}
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/patrolgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
