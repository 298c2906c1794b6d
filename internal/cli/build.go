package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	pio "github.com/matzehuels/patrolgraph/pkg/io"
	"github.com/matzehuels/patrolgraph/pkg/pipeline"
)

// buildFlags holds the build command flags that are not pipeline options.
type buildFlags struct {
	output  string // graph JSON path, "-" for stdout
	geojson string // optional GeoJSON path
	routes  bool   // include walking routes in the JSON
	noCache bool
}

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var (
		flags buildFlags
		opts  pipeline.Options
	)

	cmd := &cobra.Command{
		Use:   "build [map.txt]",
		Short: "Build a patrol graph from an occupancy map",
		Long: `Build a patrol graph from an ASCII occupancy map.

The map is read one row per line: '#', 'X' or '1' for walls and '.', ' ' or
'0' for free tiles. Guards are placed so that together they see every free
tile, then linked into a connected patrol graph and optionally split into
territories with --partitions.

Visibility maps and finished graphs are cached locally; use --refresh to
rebuild the graph or --no-cache to bypass the cache entirely.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			merged := mergeOptions(cfg.Build, opts, cmd.Flags())
			return c.runBuild(cmd.Context(), args[0], merged, cfg.Cache, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output JSON file (default: <map>.graph.json, - for stdout)")
	cmd.Flags().StringVar(&flags.geojson, "geojson", "", "also write the graph as GeoJSON to this file")
	cmd.Flags().BoolVar(&flags.routes, "routes", false, "include the walking route of every edge")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	bindOptionFlags(cmd.Flags(), &opts)

	return cmd
}

// runBuild loads the map, runs the builder and writes the outputs.
func (c *CLI) runBuild(ctx context.Context, input string, opts pipeline.Options, cfg cacheConfig, flags buildFlags) error {
	logger := loggerFromContext(ctx)

	walls, err := pio.LoadMap(input)
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	logger.Debug("loaded map", "width", walls.Width, "height", walls.Height, "free", walls.Free())

	builder, err := c.newBuilder(ctx, cfg, flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize builder: %w", err)
	}
	defer builder.Close()

	opts.Logger = logger
	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Building patrol graph for %s...", filepath.Base(input)))
	spinner.Start()

	res, err := builder.Build(ctx, walls, opts)
	if err != nil {
		spinner.StopWithError("Build failed")
		return err
	}
	spinner.Stop()
	prog.done("Built patrol graph")
	logStages(logger, res.Stats)

	output := flags.output
	if output == "" {
		output = defaultOutput(input)
	}
	exportOpts := pio.ExportOptions{Partitions: res.Partitions}
	if flags.routes {
		exportOpts.Walls = walls
	}
	if output == "-" {
		if err := pio.WriteGraph(os.Stdout, res.Graph, exportOpts); err != nil {
			return fmt.Errorf("write graph: %w", err)
		}
	} else if err := pio.ExportGraph(res.Graph, output, exportOpts); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}

	if flags.geojson != "" {
		err := pio.ExportGeoJSON(res.Graph, flags.geojson, pio.GeoJSONOptions{
			Partitions: res.Partitions,
			OffsetX:    walls.OffsetX,
			OffsetY:    walls.OffsetY,
		})
		if err != nil {
			return fmt.Errorf("write geojson: %w", err)
		}
	}

	// Keep stdout clean for piping.
	if output == "-" {
		return nil
	}
	printSuccess("Patrol graph for %s", StyleHighlight.Render(input))
	printStats(res)
	if len(res.Partitions) > 1 {
		fmt.Println(partitionTable(res.Graph, res.Partitions))
	}
	printFile(output)
	if flags.geojson != "" {
		printFile(flags.geojson)
	}
	return nil
}

// defaultOutput derives the graph path from the map path:
// maps/floor1.txt -> maps/floor1.graph.json.
func defaultOutput(input string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + ".graph.json"
}
