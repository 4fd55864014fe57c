// Package pricing resolves the sellable unit price of a product or one of its variants.
package pricing

import (
	"bazaar/internal/model"

	"github.com/shopspring/decimal"
)

// Quote is the price shown for a product, or for the selected variant.
type Quote struct {
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	OnSale        bool            `json:"isOnSale"`
}

// Resolve computes the effective unit price. A selected variant takes precedence
// over the product. The original price of a variant is its own price when set and
// never the product's sale price.
func Resolve(p model.Product, v *model.ProductVariant) Quote {
	var unit decimal.Decimal

	switch {
	case v != nil && positive(v.SalePrice):
		unit = v.SalePrice.Decimal
	case v != nil && v.Price.Valid:
		unit = v.Price.Decimal
	case positive(p.SalePrice):
		unit = p.SalePrice.Decimal
	default:
		unit = p.BasePrice
	}

	original := p.BasePrice
	if v != nil && v.Price.Valid {
		original = v.Price.Decimal
	}

	return Quote{
		UnitPrice:     unit,
		OriginalPrice: original,
		OnSale:        unit.LessThan(original),
	}
}

// DiscountPercent is the sale badge figure, rounded to a whole percent.
func DiscountPercent(q Quote) int {
	if !q.OnSale || !q.OriginalPrice.IsPositive() {
		return 0
	}
	off := q.OriginalPrice.Sub(q.UnitPrice).Div(q.OriginalPrice).Mul(decimal.NewFromInt(100))
	return int(off.Round(0).IntPart())
}

// LineTotal is unit price times quantity.
func LineTotal(q Quote, quantity int) decimal.Decimal {
	return q.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

func positive(d decimal.NullDecimal) bool {
	return d.Valid && d.Decimal.IsPositive()
}
