package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop/internal/domain/product"
)

const (
	insertProductSQL = `INSERT INTO products (title, description, price, sku)
		VALUES ($1, $2, $3, $4) RETURNING id`

	existsBySKUSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`

	listProductsSQL = `SELECT id, title, description, price, sku
		FROM products ORDER BY id`

	getProductBySKUSQL = `SELECT id, title, description, price, sku
		FROM products WHERE sku = $1`

	findRefsBySKUsSQL = `SELECT id, sku, price FROM products WHERE sku = ANY($1)`

	updatePriceSQL = `UPDATE products SET
		price = $2,
		title = COALESCE(NULLIF($3, ''), title),
		description = COALESCE(NULLIF($4, ''), description)
		WHERE sku = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts p and sets its ID.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, insertProductSQL,
		p.Title.String(), p.Description.String(), p.Price.Decimal(), p.SKU.String(),
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return product.ErrDuplicateSKU
		}
		return errors.Wrapf(err, "insert product %q", p.SKU.String())
	}
	return nil
}

// ExistsBySKU reports whether a product with sku is stored.
func (r *ProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, existsBySKUSQL, sku).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "check sku %q", sku)
	}
	return exists, nil
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetBySKU returns a single product by its SKU.
func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductBySKUSQL, sku)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", sku)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", sku)
	}
	return &p, nil
}

// FindBySKUs returns the id and current price of every product whose SKU is
// in skus.
func (r *ProductRepository) FindBySKUs(ctx context.Context, skus []string) ([]product.Ref, error) {
	rows, err := r.pool.Query(ctx, findRefsBySKUsSQL, skus)
	if err != nil {
		return nil, errors.Wrap(err, "find products by sku")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Ref, error) {
		var ref product.Ref
		err := row.Scan(&ref.ID, &ref.SKU, &ref.Price)
		return ref, err
	})
}

// UpdatePrices applies updates in a single transaction. A row that no longer
// matches a product aborts and rolls back the whole batch.
func (r *ProductRepository) UpdatePrices(ctx context.Context, updates []product.PriceUpdate) (int, error) {
	var updated int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, u := range updates {
			batch.Queue(updatePriceSQL, u.SKU, u.Price, u.Title, u.Description)
		}

		br := tx.SendBatch(ctx, batch)
		for _, u := range updates {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return errors.Wrapf(err, "update %q", u.SKU)
			}
			if tag.RowsAffected() != 1 {
				_ = br.Close()
				return errors.Wrapf(product.ErrNotFound, "update %q", u.SKU)
			}
			updated++
		}
		return br.Close()
	})
	if err != nil {
		return 0, errors.Wrap(err, "update prices")
	}
	return updated, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		id                      int64
		title, description, sku string
		price                   decimal.Decimal
	)
	if err := row.Scan(&id, &title, &description, &price, &sku); err != nil {
		return product.Product{}, err
	}

	p, err := product.New(title, description, price, sku)
	if err != nil {
		return product.Product{}, errors.Wrapf(err, "decode product %d", id)
	}
	p.ID = id
	return p, nil
}
