package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is a node of the order lifecycle.
type OrderStatus string

const (
	StatusNew       OrderStatus = "new"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
	StatusDispute   OrderStatus = "dispute"
)

// AllStatuses lists every order status in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusNew,
	StatusConfirmed,
	StatusPaid,
	StatusShipped,
	StatusDelivered,
	StatusCompleted,
	StatusCancelled,
	StatusDispute,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DeliveryType is how the buyer receives the goods.
type DeliveryType string

const (
	DeliveryPickup   DeliveryType = "pickup"
	DeliveryDelivery DeliveryType = "delivery"
	DeliveryDigital  DeliveryType = "digital"
)

// Valid reports whether d is a known delivery type.
func (d DeliveryType) Valid() bool {
	switch d {
	case DeliveryPickup, DeliveryDelivery, DeliveryDigital:
		return true
	}
	return false
}

// Order represents a buyer's order from one shop.
// Money and count fields are snapshots taken at creation and never recomputed.
type Order struct {
	ID              int64           `json:"id" db:"id"`
	OrderNumber     string          `json:"orderNumber" db:"order_number"`
	BuyerID         int64           `json:"buyerId" db:"buyer_id"`
	ShopID          int64           `json:"shopId" db:"shop_id"`
	SellerID        int64           `json:"sellerId" db:"seller_id"`
	IdempotencyKey  string          `json:"-" db:"idempotency_key"`
	ItemsCount      int             `json:"itemsCount" db:"items_count"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	Total           decimal.Decimal `json:"total" db:"total"`
	Currency        string          `json:"currency" db:"currency"`
	DeliveryType    DeliveryType    `json:"deliveryType" db:"delivery_type"`
	DeliveryAddress string          `json:"deliveryAddress,omitempty" db:"delivery_address"`
	DeliveryNote    string          `json:"deliveryNote,omitempty" db:"delivery_note"`
	BuyerName       string          `json:"buyerName" db:"buyer_name"`
	BuyerPhone      string          `json:"buyerPhone,omitempty" db:"buyer_phone"`
	BuyerEmail      string          `json:"buyerEmail,omitempty" db:"buyer_email"`
	BuyerNote       string          `json:"buyerNote,omitempty" db:"buyer_note"`
	Status          OrderStatus     `json:"status" db:"status"`
	CancelReason    string          `json:"cancelReason,omitempty" db:"cancel_reason"`
	ConfirmedAt     *time.Time      `json:"confirmedAt,omitempty" db:"confirmed_at"`
	ShippedAt       *time.Time      `json:"shippedAt,omitempty" db:"shipped_at"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty" db:"delivered_at"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty" db:"completed_at"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty" db:"cancelled_at"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
	Items           []OrderItem     `json:"items,omitempty"`
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"orderId" db:"order_id"`
	ProductID   int64           `json:"productId" db:"product_id"`
	VariantID   *int64          `json:"variantId,omitempty" db:"variant_id"`
	ProductName string          `json:"productName" db:"product_name"`
	SKU         string          `json:"sku,omitempty" db:"sku"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice" db:"unit_price"`
	LineTotal   decimal.Decimal `json:"lineTotal" db:"line_total"`
	// Reserved is set when placing the order took stock for this line.
	Reserved bool `json:"-" db:"reserved"`
}

// CreateOrderRequest is the payload sent to the order service to place an order.
type CreateOrderRequest struct {
	ShopID          *int64             `json:"shopId,omitempty"`
	Items           []OrderItemRequest `json:"items"`
	DeliveryType    DeliveryType       `json:"deliveryType"`
	DeliveryAddress string             `json:"deliveryAddress,omitempty"`
	DeliveryNote    string             `json:"deliveryNote,omitempty"`
	BuyerName       string             `json:"buyerName"`
	BuyerPhone      string             `json:"buyerPhone,omitempty"`
	BuyerEmail      string             `json:"buyerEmail,omitempty"`
	BuyerNote       string             `json:"buyerNote,omitempty"`
	IdempotencyKey  string             `json:"idempotencyKey,omitempty"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductID int64  `json:"productId"`
	VariantID *int64 `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

// OrderCreated is what the order service returns for a placed order.
type OrderCreated struct {
	OrderID     int64  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}

// StatusUpdateRequest asks for a seller-side status change.
type StatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}

// CancelRequest asks for a buyer-side cancellation.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// TransitionsResponse lists the statuses an order may move to next.
type TransitionsResponse struct {
	Status  OrderStatus   `json:"status"`
	Targets []OrderStatus `json:"targets"`
}

// OrderFilter carries list parameters through to storage untouched.
type OrderFilter struct {
	Page   int
	Limit  int
	Status string
	// Role selects orders the user bought ("buyer") or sold ("seller").
	Role string
}
