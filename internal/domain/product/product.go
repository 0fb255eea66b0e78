package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned by repositories when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicateSKU is returned by Repository.Create when the SKU is taken.
	ErrDuplicateSKU = errors.New("duplicate sku")
)

// Product is a catalog item identified by a unique SKU.
type Product struct {
	// ID is assigned by storage on creation.
	ID          int64
	Title       Title
	Description Description
	Price       Price
	SKU         SKU
}

// New builds a Product, running every field invariant.
func New(title, description string, price decimal.Decimal, sku string) (Product, error) {
	t, err := NewTitle(title)
	if err != nil {
		return Product{}, err
	}
	d, err := NewDescription(description)
	if err != nil {
		return Product{}, err
	}
	p, err := NewPrice(price)
	if err != nil {
		return Product{}, err
	}
	s, err := NewSKU(sku)
	if err != nil {
		return Product{}, err
	}
	return Product{Title: t, Description: d, Price: p, SKU: s}, nil
}

// Ref is the slice of a catalog entry needed to price an order line.
type Ref struct {
	ID    int64
	SKU   string
	Price decimal.Decimal
}

// PriceUpdate is one row of a bulk price feed. Empty Title or Description
// keep the stored value.
type PriceUpdate struct {
	SKU         string
	Price       decimal.Decimal
	Title       string
	Description string
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	List(ctx context.Context) ([]Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	// FindBySKUs returns the catalog entries matching any of the given SKUs
	// in a single lookup. Unknown SKUs are simply absent from the result.
	FindBySKUs(ctx context.Context, skus []string) ([]Ref, error)
	// UpdatePrices applies all updates in one transaction and returns the
	// number of updated rows. Any failure rolls back the whole batch.
	UpdatePrices(ctx context.Context, updates []PriceUpdate) (int, error)
}
