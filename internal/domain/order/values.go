package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/shop/internal/apperr"
)

const (
	minQuantity = 1
	maxQuantity = 100

	// discountScale matches the stored precision of discount percentages.
	discountScale = 4
)

var hundred = decimal.NewFromInt(100)

// Quantity is the number of units on an order line, 1..100 inclusive.
type Quantity struct{ v int }

// NewQuantity validates n as a Quantity.
func NewQuantity(n int) (Quantity, error) {
	if n < minQuantity {
		return Quantity{}, apperr.Validation("Quantity must be at least 1")
	}
	if n > maxQuantity {
		return Quantity{}, apperr.Validation("Quantity cannot exceed 100")
	}
	return Quantity{v: n}, nil
}

func (q Quantity) Int() int { return q.v }

// DiscountPercentage is a discount in percent, 0..100 inclusive.
type DiscountPercentage struct{ v decimal.Decimal }

// NewDiscountPercentage validates d as a DiscountPercentage.
func NewDiscountPercentage(d decimal.Decimal) (DiscountPercentage, error) {
	if d.IsNegative() || d.GreaterThan(hundred) {
		return DiscountPercentage{}, apperr.Validation("Discount percentage must be between 0 and 100.")
	}
	if !d.Equal(d.Truncate(discountScale)) {
		return DiscountPercentage{}, apperr.Validation("Discount percentage cannot have more than 4 decimal places.")
	}
	return DiscountPercentage{v: d}, nil
}

func (p DiscountPercentage) Decimal() decimal.Decimal { return p.v }

// multiplier returns 1 - p/100.
func (p DiscountPercentage) multiplier() decimal.Decimal {
	return decimal.NewFromInt(1).Sub(p.v.Div(hundred))
}
