package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/shop/internal/apperr"
)

// CreateRequest holds the input for adding a product to the catalog.
type CreateRequest struct {
	Title       string
	Description string
	Price       decimal.Decimal
	SKU         string
}

// Service encapsulates catalog management.
type Service struct {
	repo Repository
}

// NewService creates a catalog Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates req, enforces SKU uniqueness and persists the product.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Product, error) {
	p, err := New(req.Title, req.Description, req.Price, req.SKU)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsBySKU(ctx, req.SKU)
	if err != nil {
		return nil, errors.Wrap(err, "check sku")
	}
	if exists {
		return nil, apperr.Validationf("SKU '%s' must be unique.", req.SKU)
	}

	if err := s.repo.Create(ctx, &p); err != nil {
		if errors.Is(err, ErrDuplicateSKU) {
			return nil, apperr.Validationf("SKU '%s' must be unique.", req.SKU)
		}
		return nil, errors.Wrap(err, "create product")
	}

	zctx.From(ctx).Info("Product created",
		zap.Int64("product_id", p.ID),
		zap.String("sku", p.SKU.String()),
	)
	return &p, nil
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Get returns the product with the given SKU.
func (s *Service) Get(ctx context.Context, sku string) (*Product, error) {
	p, err := s.repo.GetBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFoundf("Product with SKU %s not found.", sku)
		}
		return nil, errors.Wrap(err, "get product")
	}
	return p, nil
}

// BulkUpdatePrices validates a price feed and applies it as one
// all-or-nothing batch. It returns the number of updated products.
func (s *Service) BulkUpdatePrices(ctx context.Context, updates []PriceUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, apperr.Validation("No updates provided.")
	}
	if err := validateUpdates(updates); err != nil {
		return 0, err
	}

	skus := make([]string, len(updates))
	for i, u := range updates {
		skus[i] = u.SKU
	}

	found, err := s.repo.FindBySKUs(ctx, skus)
	if err != nil {
		return 0, apperr.Unexpected("Error during products update.", errors.Wrap(err, "find products"))
	}
	if missing := MissingSKUs(skus, found); len(missing) > 0 {
		return 0, apperr.NotFoundf("Products with SKUs %s not found.", strings.Join(missing, ", "))
	}

	n, err := s.repo.UpdatePrices(ctx, updates)
	if err != nil {
		zctx.From(ctx).Error("Bulk price update rolled back",
			zap.Int("rows", len(updates)),
			zap.Error(err),
		)
		return 0, apperr.Unexpected("Error during products update.", err)
	}

	zctx.From(ctx).Info("Bulk price update applied", zap.Int("updated", n))
	return n, nil
}

// validateUpdates runs every field invariant over the batch and reports
// all offending SKUs at once.
func validateUpdates(updates []PriceUpdate) error {
	var (
		seen       = make(map[string]struct{}, len(updates))
		duplicates []string
		badPrices  []string
		subCents   []string
	)
	for _, u := range updates {
		if _, err := NewSKU(u.SKU); err != nil {
			return err
		}
		if _, ok := seen[u.SKU]; ok {
			duplicates = appendOnce(duplicates, u.SKU)
		}
		seen[u.SKU] = struct{}{}

		if !u.Price.IsPositive() {
			badPrices = appendOnce(badPrices, u.SKU)
		} else if _, err := NewPrice(u.Price); err != nil {
			subCents = appendOnce(subCents, u.SKU)
		}
		if u.Title != "" {
			if _, err := NewTitle(u.Title); err != nil {
				return err
			}
		}
		if u.Description != "" {
			if _, err := NewDescription(u.Description); err != nil {
				return err
			}
		}
	}

	if len(duplicates) > 0 {
		return apperr.Validationf("Duplicate SKUs in price feed: %s", strings.Join(duplicates, ", "))
	}
	if len(badPrices) > 0 {
		return apperr.Validationf("Price must be greater than zero for SKUs: %s", strings.Join(badPrices, ", "))
	}
	if len(subCents) > 0 {
		return apperr.Validationf("Price cannot have more than 2 decimal places for SKUs: %s", strings.Join(subCents, ", "))
	}
	return nil
}

// MissingSKUs returns the requested SKUs absent from found, each once, in
// request order.
func MissingSKUs(requested []string, found []Ref) []string {
	have := make(map[string]struct{}, len(found))
	for _, r := range found {
		have[r.SKU] = struct{}{}
	}

	var missing []string
	for _, sku := range requested {
		if _, ok := have[sku]; !ok {
			missing = appendOnce(missing, sku)
		}
	}
	return missing
}

func appendOnce(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
