package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/shop/internal/domain/product"
	"github.com/xenking/shop/internal/pricefeed"
	"github.com/xenking/shop/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		dryRun      bool
	)

	flag.StringVar(&dataDir, "data-dir", "", "directory with *.csv and *.csv.gz price feeds (used when no files are given)")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and validate feeds without touching the database")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	files := flag.Args()
	if len(files) == 0 && dataDir != "" {
		if files, err = feedFiles(dataDir); err != nil {
			lg.Fatal("List price feeds", zap.Error(err))
		}
	}
	if len(files) == 0 {
		lg.Fatal("no price feeds given: pass file paths or --data-dir")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, lg, files, databaseURL, dryRun); err != nil {
		lg.Fatal("Price import failed", zap.Error(err))
	}

	lg.Info("Price import completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, files []string, databaseURL string, dryRun bool) error {
	lg.Info("Parsing price feeds", zap.Int("files", len(files)))

	updates, err := parseFeeds(ctx, lg, files)
	if err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	lg.Info("Price feeds parsed", zap.Int("updates", len(updates)))

	if dryRun {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	n, err := product.NewService(postgres.NewProductRepository(pool)).BulkUpdatePrices(ctx, updates)
	if err != nil {
		return errors.Wrap(err, "update prices")
	}

	lg.Info("Prices updated", zap.Int("products", n))
	return nil
}

// parseFeeds reads every file concurrently and concatenates the rows in
// argument order, so a SKU repeated across files is rejected as a duplicate.
func parseFeeds(ctx context.Context, lg *zap.Logger, files []string) ([]product.PriceUpdate, error) {
	results := make([][]product.PriceUpdate, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := parseFile(path)
			if err != nil {
				return errors.Wrapf(err, "file %s", path)
			}
			lg.Info("Parsed price feed", zap.String("path", path), zap.Int("rows", len(rows)))
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return slices.Concat(results...), nil
}

func parseFile(path string) ([]product.PriceUpdate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	return pricefeed.Parse(f)
}

func feedFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.csv", "*.csv.gz"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "glob %s", pattern)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return files, nil
}
