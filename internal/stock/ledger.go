// Package stock answers availability questions from a product snapshot.
// It never mutates stock; reservations are accounted by the order service.
package stock

import "bazaar/internal/model"

// UntrackedCap is the most a buyer may order of a product whose stock is not tracked.
const UntrackedCap = 99

// Available is the sellable quantity, never negative. Products carry no
// reservation of their own; only variants do.
func Available(p model.Product, v *model.ProductVariant) int {
	if v != nil {
		return max(0, v.Stock-v.Reserved)
	}
	return max(0, p.Stock)
}

// MaxOrderable is the upper bound of the quantity picker. It is at least 1 even
// when nothing is available; InStock is the binding check.
func MaxOrderable(p model.Product, v *model.ProductVariant) int {
	if !p.TrackStock {
		return UntrackedCap
	}
	return max(Available(p, v), 1)
}

// InStock reports whether the product or variant can be bought at all.
func InStock(p model.Product, v *model.ProductVariant) bool {
	return !p.TrackStock || Available(p, v) > 0
}

// Clamp returns requested when it lies in [1, MaxOrderable]. Anything outside is
// ignored and current is returned unchanged.
func Clamp(current, requested int, p model.Product, v *model.ProductVariant) int {
	if requested < 1 || requested > MaxOrderable(p, v) {
		return current
	}
	return requested
}

// Adjust applies delta to current through Clamp.
func Adjust(current, delta int, p model.Product, v *model.ProductVariant) int {
	return Clamp(current, current+delta, p, v)
}

// CanFulfil is the order-time check: the full quantity must be available.
func CanFulfil(p model.Product, v *model.ProductVariant, quantity int) bool {
	if quantity < 1 {
		return false
	}
	if !p.TrackStock {
		return true
	}
	return quantity <= Available(p, v)
}
