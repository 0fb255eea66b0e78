package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/shop/internal/domain/auth"
	"github.com/xenking/shop/internal/domain/product"
	"github.com/xenking/shop/internal/storage/postgres"
)

type productJSON struct {
	SKU         string          `json:"sku"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

type seedKey struct {
	key    string
	name   string
	scopes []string
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		adminKey     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "order API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "catalog admin API key to seed (or SHOP_SEED_ADMIN_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKey == "" {
		lg.Fatal("API key is required: set --api-key or SHOP_SEED_API_KEY")
	}
	if adminKey == "" {
		adminKey = os.Getenv("SHOP_SEED_ADMIN_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	keys := []seedKey{{
		key:    apiKey,
		name:   "Default order key",
		scopes: []string{auth.ScopeOrdersWrite},
	}}
	if adminKey != "" {
		keys = append(keys, seedKey{
			key:    adminKey,
			name:   "Catalog admin key",
			scopes: []string{auth.ScopeOrdersWrite, auth.ScopeCatalogWrite},
		})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, productsFile, keys, apiKeyPepper); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}

	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, productsFile string, keys []seedKey, pepper string) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, lg, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedAPIKeys(ctx, lg, postgres.NewAPIKeyRepository(pool), keys, auth.NewHasher([]byte(pepper))); err != nil {
		return errors.Wrap(err, "seed api keys")
	}

	return nil
}

// seedProducts inserts catalog entries whose SKU is not taken yet.
func seedProducts(ctx context.Context, lg *zap.Logger, repo *postgres.ProductRepository, productsFile string) error {
	lg.Info("Reading products file", zap.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	var created int
	for _, pj := range products {
		exists, err := repo.ExistsBySKU(ctx, pj.SKU)
		if err != nil {
			return errors.Wrapf(err, "check product %s", pj.SKU)
		}
		if exists {
			lg.Info("Product already present", zap.String("sku", pj.SKU))
			continue
		}

		p, err := product.New(pj.Title, pj.Description, pj.Price, pj.SKU)
		if err != nil {
			return errors.Wrapf(err, "product %s", pj.SKU)
		}
		if err := repo.Create(ctx, &p); err != nil {
			return errors.Wrapf(err, "create product %s", pj.SKU)
		}
		created++

		lg.Info("Created product",
			zap.String("sku", pj.SKU),
			zap.Int64("id", p.ID),
			zap.String("price", p.Price.String()),
		)
	}

	lg.Info("Products seeded", zap.Int("total", len(products)), zap.Int("created", created))
	return nil
}

func seedAPIKeys(ctx context.Context, lg *zap.Logger, repo *postgres.APIKeyRepository, keys []seedKey, h auth.Hasher) error {
	for _, k := range keys {
		info := &auth.APIKeyInfo{
			KeyHash: h.Hex(k.key),
			Name:    k.name,
			Scopes:  k.scopes,
		}
		if err := repo.Upsert(ctx, info); err != nil {
			return err
		}

		lg.Info("Upserted API key",
			zap.Int64("id", info.ID),
			zap.String("name", info.Name),
			zap.Strings("scopes", info.Scopes),
		)
	}
	return nil
}
