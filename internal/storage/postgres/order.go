package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (order_date, total_price, discount_percentage)
		VALUES ($1, $2, $3) RETURNING id`

	// The product id is resolved from the SKU at insert time so the line
	// always references the row it was priced from.
	insertOrderLineSQL = `INSERT INTO order_lines (order_id, product_id, product_sku, quantity, price)
		SELECT $1, p.id, p.sku, $3, $4 FROM products p WHERE p.sku = $2`

	getOrderSQL = `SELECT id, order_date, total_price, discount_percentage
		FROM orders WHERE id = $1`

	getOrderLinesSQL = `SELECT product_sku, quantity, price, product_id
		FROM order_lines WHERE order_id = $1 ORDER BY id`

	updateOrderDiscountSQL = `UPDATE orders SET total_price = $2, discount_percentage = $3
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and all of its lines in one transaction and
// sets o.ID. Any failed line rolls back the order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	var id int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertOrderSQL,
			o.Date, o.TotalPrice, o.Discount.Decimal(),
		).Scan(&id); err != nil {
			return errors.Wrap(err, "insert order")
		}

		batch := &pgx.Batch{}
		for _, l := range o.Lines {
			batch.Queue(insertOrderLineSQL, id, l.SKU.String(), l.Quantity.Int(), l.Price.Decimal())
		}

		br := tx.SendBatch(ctx, batch)
		for _, l := range o.Lines {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return errors.Wrapf(err, "insert line %q", l.SKU.String())
			}
			if tag.RowsAffected() != 1 {
				_ = br.Close()
				return errors.Errorf("insert line %q: product no longer exists", l.SKU.String())
			}
		}
		return br.Close()
	})
	if err != nil {
		return errors.Wrap(err, "create order")
	}

	o.ID = id
	return nil
}

// Get loads an order with its lines.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	var (
		date     time.Time
		total    decimal.Decimal
		discount decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, getOrderSQL, id).Scan(&id, &date, &total, &discount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %d", id)
	}

	percent, err := order.NewDiscountPercentage(discount)
	if err != nil {
		return nil, errors.Wrapf(err, "decode order %d", id)
	}

	rows, err := r.pool.Query(ctx, getOrderLinesSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get lines of order %d", id)
	}
	lines, err := pgx.CollectRows(rows, scanOrderLine)
	if err != nil {
		return nil, errors.Wrapf(err, "get lines of order %d", id)
	}

	return &order.Order{
		ID:         id,
		Date:       date.UTC(),
		Lines:      lines,
		TotalPrice: total,
		Discount:   percent,
	}, nil
}

// UpdateDiscount persists the discount percentage and total price of o.
func (r *OrderRepository) UpdateDiscount(ctx context.Context, o *order.Order) error {
	tag, err := r.pool.Exec(ctx, updateOrderDiscountSQL, o.ID, o.TotalPrice, o.Discount.Decimal())
	if err != nil {
		return errors.Wrapf(err, "update discount of order %d", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrderLine(row pgx.CollectableRow) (order.Line, error) {
	var (
		sku       string
		quantity  int
		price     decimal.Decimal
		productID int64
	)
	if err := row.Scan(&sku, &quantity, &price, &productID); err != nil {
		return order.Line{}, err
	}
	return order.NewLine(sku, quantity, price, productID)
}
