// Package cart assembles line items for checkout.
package cart

import (
	"bazaar/internal/model"
	"bazaar/internal/pricing"
	"bazaar/internal/stock"

	"github.com/shopspring/decimal"
)

// Line is one product (and optional variant) with a quantity. Product and Variant
// are snapshots and may be stale; the order service re-validates them.
type Line struct {
	Product  model.Product
	Variant  *model.ProductVariant
	Quantity int
}

// VariantID returns the selected variant's ID, if any.
func (l Line) VariantID() *int64 {
	if l.Variant == nil {
		return nil
	}
	id := l.Variant.ID
	return &id
}

// Cart is a client-side list of lines. It is not safe for concurrent use.
type Cart struct {
	lines []Line
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddOrUpdateLine puts quantity of the product (and variant, when variantID is set)
// into the cart. An existing line for the same product and variant gets the new quantity.
func (c *Cart) AddOrUpdateLine(p model.Product, variantID *int64, quantity int) error {
	var variant *model.ProductVariant
	if variantID != nil {
		v, ok := p.Variant(*variantID)
		if !ok {
			return model.ErrVariantNotFound
		}
		snapshot := *v
		variant = &snapshot
	}

	if quantity < 1 || quantity > stock.MaxOrderable(p, variant) {
		return model.ErrInvalidQuantity
	}

	for i := range c.lines {
		if c.lines[i].Product.ID == p.ID && sameVariant(c.lines[i].Variant, variant) {
			c.lines[i].Product = p
			c.lines[i].Variant = variant
			c.lines[i].Quantity = quantity
			return nil
		}
	}

	c.lines = append(c.lines, Line{Product: p, Variant: variant, Quantity: quantity})
	return nil
}

// RemoveLine deletes the line at index. The last line cannot be removed: the
// caller has to offer leaving checkout instead.
func (c *Cart) RemoveLine(index int) error {
	if index < 0 || index >= len(c.lines) {
		return model.ErrLineNotFound
	}
	if len(c.lines) == 1 {
		return model.ErrEmptyCartNotAllowed
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return nil
}

// ChangeQuantity moves the line's quantity by delta within the stock bounds and
// returns the resulting quantity. Out-of-range deltas leave it unchanged.
func (c *Cart) ChangeQuantity(index, delta int) (int, error) {
	if index < 0 || index >= len(c.lines) {
		return 0, model.ErrLineNotFound
	}
	l := &c.lines[index]
	l.Quantity = stock.Adjust(l.Quantity, delta, l.Product, l.Variant)
	return l.Quantity, nil
}

// Quote resolves the current price of the line at index.
func (c *Cart) Quote(index int) (pricing.Quote, error) {
	if index < 0 || index >= len(c.lines) {
		return pricing.Quote{}, model.ErrLineNotFound
	}
	l := c.lines[index]
	return pricing.Resolve(l.Product, l.Variant), nil
}

// UnitPrice is the resolved unit price of the line at index.
func (c *Cart) UnitPrice(index int) (decimal.Decimal, error) {
	q, err := c.Quote(index)
	if err != nil {
		return decimal.Zero, err
	}
	return q.UnitPrice, nil
}

// LineTotal is the resolved unit price times quantity of the line at index.
func (c *Cart) LineTotal(index int) (decimal.Decimal, error) {
	q, err := c.Quote(index)
	if err != nil {
		return decimal.Zero, err
	}
	return pricing.LineTotal(q, c.lines[index].Quantity), nil
}

// Subtotal sums all line totals.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(pricing.LineTotal(pricing.Resolve(l.Product, l.Variant), l.Quantity))
	}
	return sum
}

// Total equals Subtotal; delivery cost is agreed with the seller separately.
func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal()
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// ItemsCount is the total number of units in the cart.
func (c *Cart) ItemsCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// ShopID returns the shop of the first line's product.
func (c *Cart) ShopID() (int64, bool) {
	if len(c.lines) == 0 || c.lines[0].Product.ShopID <= 0 {
		return 0, false
	}
	return c.lines[0].Product.ShopID, true
}

// Items converts the lines to order request items.
func (c *Cart) Items() []model.OrderItemRequest {
	items := make([]model.OrderItemRequest, len(c.lines))
	for i, l := range c.lines {
		items[i] = model.OrderItemRequest{
			ProductID: l.Product.ID,
			VariantID: l.VariantID(),
			Quantity:  l.Quantity,
		}
	}
	return items
}

func sameVariant(a, b *model.ProductVariant) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}
