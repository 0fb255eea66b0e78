package product

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/xenking/shop/internal/apperr"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 500
	maxSKULen         = 50
)

// Title is a product title: non-blank, at most 100 characters.
type Title struct{ v string }

// NewTitle validates s as a Title.
func NewTitle(s string) (Title, error) {
	if err := checkText(s, "Title", maxTitleLen); err != nil {
		return Title{}, err
	}
	return Title{v: s}, nil
}

func (t Title) String() string { return t.v }

// Description is a product description: non-blank, at most 500 characters.
type Description struct{ v string }

// NewDescription validates s as a Description.
func NewDescription(s string) (Description, error) {
	if err := checkText(s, "Description", maxDescriptionLen); err != nil {
		return Description{}, err
	}
	return Description{v: s}, nil
}

func (d Description) String() string { return d.v }

// SKU is a stock-keeping unit: non-blank, at most 50 characters.
type SKU struct{ v string }

// NewSKU validates s as a SKU.
func NewSKU(s string) (SKU, error) {
	if err := checkText(s, "SKU", maxSKULen); err != nil {
		return SKU{}, err
	}
	return SKU{v: s}, nil
}

func (s SKU) String() string { return s.v }

// Price is a strictly positive monetary amount in whole cents.
type Price struct{ v decimal.Decimal }

const priceScale = 2

// NewPrice validates d as a Price.
func NewPrice(d decimal.Decimal) (Price, error) {
	if !d.IsPositive() {
		return Price{}, apperr.Validation("Price must be greater than zero")
	}
	if !d.Equal(d.Truncate(priceScale)) {
		return Price{}, apperr.Validation("Price cannot have more than 2 decimal places")
	}
	return Price{v: d}, nil
}

// Decimal returns the underlying amount.
func (p Price) Decimal() decimal.Decimal { return p.v }

// Equal reports whether both prices hold the same amount.
func (p Price) Equal(o Price) bool { return p.v.Equal(o.v) }

func (p Price) String() string { return p.v.StringFixed(2) }

func checkText(s, field string, limit int) error {
	if strings.TrimSpace(s) == "" {
		return apperr.Validationf("%s cannot be empty", field)
	}
	if utf8.RuneCountInString(s) > limit {
		return apperr.Validationf("%s cannot exceed %d characters", field, limit)
	}
	return nil
}
