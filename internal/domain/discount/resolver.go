package discount

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Resolver computes discounted line totals from the discounts attached to an
// item. It has no side effects.
type Resolver struct {
	discounts Repository
}

// NewResolver creates a Resolver backed by the given Repository.
func NewResolver(discounts Repository) *Resolver {
	return &Resolver{discounts: discounts}
}

// LineTotal returns the discounted total for quantity units of an item at
// unitPrice. Discounts are scanned in value-descending order and the first
// rule matching the quantity wins, so the highest applicable discount is
// always the one applied. When no rule matches, the full price is charged.
//
// The per-unit discount is rounded to 2 decimal places (half-up) before the
// quantity multiplication. Rounding after multiplying yields different cents
// on some inputs and must not be substituted.
func (r *Resolver) LineTotal(ctx context.Context, itemID string, unitPrice decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, ErrInvalidQuantity
	}

	discounts, err := r.discounts.FindAllForItemByValueDesc(ctx, itemID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "load discounts")
	}

	qty := decimal.NewFromInt(int64(quantity))
	for _, d := range discounts {
		if !d.Rule.Matches(quantity) {
			continue
		}
		perUnit := unitPrice.Mul(decimal.NewFromInt(int64(d.Value))).Div(hundred).Round(2)
		return unitPrice.Sub(perUnit).Mul(qty), nil
	}

	return unitPrice.Mul(qty), nil
}
