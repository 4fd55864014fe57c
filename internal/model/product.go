package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is the listing state of a product.
type ProductStatus string

const (
	ProductDraft    ProductStatus = "draft"
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
	ProductSoldOut  ProductStatus = "sold_out"
)

// Valid reports whether s is a known product status.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductDraft, ProductActive, ProductInactive, ProductSoldOut:
		return true
	}
	return false
}

// ShopInfo is the shop summary nested in product payloads.
type ShopInfo struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Slug     string `json:"slug" db:"slug"`
	OwnerID  int64  `json:"ownerId" db:"owner_id"`
	Currency string `json:"currency" db:"currency"`
}

// Product represents a listing in a shop.
type Product struct {
	ID             int64               `json:"id" db:"id"`
	ShopID         int64               `json:"shopId" db:"shop_id"`
	Slug           string              `json:"slug" db:"slug"`
	Name           string              `json:"name" db:"name"`
	Category       string              `json:"category" db:"category"`
	BasePrice      decimal.Decimal     `json:"basePrice" db:"base_price"`
	SalePrice      decimal.NullDecimal `json:"salePrice" db:"sale_price"`
	Stock          int                 `json:"stock" db:"stock"`
	TrackStock     bool                `json:"trackStock" db:"track_stock"`
	AllowBackorder bool                `json:"allowBackorder" db:"allow_backorder"`
	Status         ProductStatus       `json:"status" db:"status"`
	Variants       []ProductVariant    `json:"variants,omitempty"`
	Shop           *ShopInfo           `json:"shop,omitempty"`
	CreatedAt      time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time           `json:"updatedAt" db:"updated_at"`
}

// ProductVariant is a specific SKU of a product with its own optional price and stock.
type ProductVariant struct {
	ID         int64               `json:"id" db:"id"`
	ProductID  int64               `json:"productId" db:"product_id"`
	SKU        string              `json:"sku" db:"sku"`
	Name       string              `json:"name,omitempty" db:"name"`
	Price      decimal.NullDecimal `json:"price" db:"price"`
	SalePrice  decimal.NullDecimal `json:"salePrice" db:"sale_price"`
	Stock      int                 `json:"stock" db:"stock"`
	Reserved   int                 `json:"reserved" db:"reserved"`
	Attributes json.RawMessage     `json:"attributes,omitempty" db:"attributes"`
}

// OnSale reports whether the product-level sale price undercuts the base price.
func (p Product) OnSale() bool {
	return p.SalePrice.Valid &&
		p.SalePrice.Decimal.IsPositive() &&
		p.SalePrice.Decimal.LessThan(p.BasePrice)
}

// Variant returns the variant with the given ID.
func (p Product) Variant(id int64) (*ProductVariant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// Validate checks the invariants a seller must respect when saving a product.
func (p Product) Validate() error {
	if p.ShopID <= 0 {
		return invalidProduct("shop ID is required")
	}
	if strings.TrimSpace(p.Slug) == "" {
		return invalidProduct("slug is required")
	}
	if !p.Status.Valid() {
		return invalidProduct(fmt.Sprintf("unknown status %q", p.Status))
	}
	if p.BasePrice.IsNegative() {
		return invalidProduct("base price must not be negative")
	}
	if p.SalePrice.Valid && p.SalePrice.Decimal.IsNegative() {
		return invalidProduct("sale price must not be negative")
	}
	if p.Stock < 0 {
		return invalidProduct("stock must not be negative")
	}

	skus := make(map[string]struct{}, len(p.Variants))
	for i, v := range p.Variants {
		sku := strings.TrimSpace(v.SKU)
		if sku == "" {
			return invalidProduct(fmt.Sprintf("variant %d: SKU is required", i))
		}
		if _, dup := skus[sku]; dup {
			return invalidProduct(fmt.Sprintf("variant %d: duplicate SKU %q", i, sku))
		}
		skus[sku] = struct{}{}

		if v.Price.Valid && v.Price.Decimal.IsNegative() {
			return invalidProduct(fmt.Sprintf("variant %s: price must not be negative", sku))
		}
		if v.SalePrice.Valid && v.SalePrice.Decimal.IsNegative() {
			return invalidProduct(fmt.Sprintf("variant %s: sale price must not be negative", sku))
		}
		if v.Stock < 0 || v.Reserved < 0 {
			return invalidProduct(fmt.Sprintf("variant %s: stock and reserved must not be negative", sku))
		}
		if v.Reserved > v.Stock {
			return invalidProduct(fmt.Sprintf("variant %s: reserved exceeds stock", sku))
		}
	}

	return nil
}

func invalidProduct(msg string) error {
	return NewDomainError(KindValidation, ErrCodeInvalidProduct, "invalid product: "+msg)
}

// ProductFilter carries list parameters through to storage untouched.
type ProductFilter struct {
	Page     int
	Limit    int
	ShopID   int64
	Status   string
	Category string
	Search   string
	Sort     string
}

// ProductView is a product with its resolved price and availability.
type ProductView struct {
	Product
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	OriginalPrice   decimal.Decimal `json:"originalPrice"`
	IsOnSale        bool            `json:"isOnSale"`
	DiscountPercent int             `json:"discountPercent"`
	Available       int             `json:"available"`
	MaxOrderable    int             `json:"maxOrderable"`
	InStock         bool            `json:"inStock"`
}
