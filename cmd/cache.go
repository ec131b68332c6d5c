package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/codeargus/internal/cache"
	"github.com/codeargus/internal/config"
	"github.com/codeargus/internal/logging"
)

// CacheCommand returns the cache command
func CacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the analysis response cache",
		Subcommands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Remove all cached analysis results",
				Action: runCacheClear,
			},
			{
				Name:   "stats",
				Usage:  "Show cache entry count and size",
				Action: runCacheStats,
			},
		},
	}
}

// loadFilesystemStore opens the filesystem cache named in the config.
// The maintenance subcommands only operate on the filesystem backend;
// memory caches vanish with the process and postgres is managed with
// regular database tooling.
func loadFilesystemStore(c *cli.Context) (*cache.FilesystemStore, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Cache.Backend != "filesystem" {
		return nil, fmt.Errorf("cache maintenance only supports the filesystem backend, config uses %q", cfg.Cache.Backend)
	}

	log := logging.New(cfg.Reporting.LogLevel)
	return cache.NewFilesystemStore(cfg.Cache.Directory, log)
}

func runCacheClear(c *cli.Context) error {
	store, err := loadFilesystemStore(c)
	if err != nil {
		return err
	}

	if err := store.Clear(); err != nil {
		return err
	}

	fmt.Println("Cache cleared")
	return nil
}

func runCacheStats(c *cli.Context) error {
	store, err := loadFilesystemStore(c)
	if err != nil {
		return err
	}

	entries, bytes, err := store.Stats()
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}

	fmt.Printf("Entries: %d\nSize: %.1f KiB\n", entries, float64(bytes)/1024)
	return nil
}
