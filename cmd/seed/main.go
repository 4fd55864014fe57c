// Command seed imports catalog feeds into the database.
//
//	seed [feed.jsonl.gz ...]
//
// With no arguments the feed named by FEED_PATH is imported. When S3 is
// enabled each feed is read from the bucket first and from disk on failure.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bazaar/internal/catalogfeed"
	"bazaar/internal/config"
	"bazaar/internal/database"
	"bazaar/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger, "bazaar-seed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	// Feed loader with S3 and local fallback
	fileLoader := catalogfeed.NewFileLoader(logger)
	var s3Loader catalogfeed.Loader
	if cfg.S3.Enabled {
		s3Loader, err = catalogfeed.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		}
	} else {
		logger.Info().Msg("using local file system for feed files (S3 disabled)")
	}
	loader := catalogfeed.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, cfg.S3.Enabled, logger)

	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{cfg.Feed.Path}
	}

	importer := catalogfeed.NewImporter(loader, repository.NewProductRepository(pool, logger), logger)
	result, err := importer.Import(ctx, paths...)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("imported %d products from %d shops (%d skipped)\n", result.Products, result.Shops, result.Skipped)
	return nil
}
