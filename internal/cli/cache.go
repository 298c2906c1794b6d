package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/patrolgraph/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the visibility and graph cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove cached visibility maps and graphs",
		Long: `Remove cached visibility maps and graphs.

With cache.namespace set, only that namespace's entries are removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			return clearCache(cmd.Context(), cfg.Cache)
		},
	}
}

func clearCache(ctx context.Context, cfg cacheConfig) error {
	backend, err := newCache(ctx, cfg, false)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	if backend == nil {
		printInfo("Caching is disabled")
		return nil
	}
	defer backend.Close()

	if cfg.Namespace != "" {
		if err := cache.Invalidate(ctx, backend, newKeyer(cfg)); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		printSuccess("Cleared namespace %q of %s cache", cfg.Namespace, cfg.Backend)
	} else {
		clearer, ok := backend.(cache.Clearer)
		if !ok {
			return fmt.Errorf("%s cache cannot be cleared", cfg.Backend)
		}
		if err := clearer.Clear(ctx); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		printSuccess("Cleared %s cache", cfg.Backend)
	}
	if fc, ok := backend.(*cache.FileCache); ok {
		printDetail("Directory: %s", fc.Dir())
	}
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			if cfg.Cache.Dir != "" {
				fmt.Println(cfg.Cache.Dir)
				return nil
			}
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}
