package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop/internal/apperr"
	"github.com/xenking/shop/internal/domain/product"
)

// ErrNotFound is returned by repositories when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Line is a single item of an order. Price is the catalog price at the time
// the order was placed and never follows later catalog changes.
type Line struct {
	SKU       product.SKU
	Quantity  Quantity
	Price     product.Price
	ProductID int64
}

// NewLine builds a Line, running the SKU, quantity and price invariants.
func NewLine(sku string, quantity int, price decimal.Decimal, productID int64) (Line, error) {
	s, err := product.NewSKU(sku)
	if err != nil {
		return Line{}, err
	}
	q, err := NewQuantity(quantity)
	if err != nil {
		return Line{}, err
	}
	p, err := product.NewPrice(price)
	if err != nil {
		return Line{}, err
	}
	return Line{SKU: s, Quantity: q, Price: p, ProductID: productID}, nil
}

// Amount returns price × quantity.
func (l Line) Amount() decimal.Decimal {
	return l.Price.Decimal().Mul(decimal.NewFromInt(int64(l.Quantity.Int())))
}

// Order is a placed order. It owns its lines.
type Order struct {
	// ID is zero until the order is persisted.
	ID         int64
	Date       time.Time
	Lines      []Line
	TotalPrice decimal.Decimal
	Discount   DiscountPercentage
}

// New creates an undiscounted order dated at date.
func New(date time.Time, lines []Line) (*Order, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation("Order must contain at least one order line.")
	}
	o := &Order{
		Date:  date.UTC(),
		Lines: lines,
	}
	o.TotalPrice = o.Subtotal()
	return o, nil
}

// Subtotal returns the undiscounted sum of all lines.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.Amount())
	}
	return sum
}

// ApplyDiscount replaces any previous discount and recomputes the total
// from the undiscounted subtotal, rounded half away from zero to cents.
func (o *Order) ApplyDiscount(p DiscountPercentage) {
	o.Discount = p
	o.TotalPrice = o.Subtotal().Mul(p.multiplier()).Round(2)
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores the order and its lines in one transaction and sets o.ID.
	Create(ctx context.Context, o *Order) error
	// Get loads an order with its lines.
	Get(ctx context.Context, id int64) (*Order, error)
	// UpdateDiscount persists the discount percentage and total price of o.
	UpdateDiscount(ctx context.Context, o *Order) error
}
