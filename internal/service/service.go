package service

import (
	"context"

	"bazaar/internal/model"
)

// ProductService defines operations for product browsing.
type ProductService interface {
	// List retrieves a page of products with resolved prices and availability.
	List(ctx context.Context, filter model.ProductFilter) (*model.Page[model.ProductView], error)

	// GetByID retrieves a single product with resolved price and availability.
	GetByID(ctx context.Context, id int64) (*model.ProductView, error)
}

// OrderService defines operations for order placement and the order lifecycle.
type OrderService interface {
	// CreateOrder places an order for buyerID. A repeated idempotency key returns
	// the order placed the first time.
	CreateOrder(ctx context.Context, buyerID int64, req *model.CreateOrderRequest) (*model.OrderCreated, error)

	// GetByID retrieves an order visible to userID as its buyer or seller.
	GetByID(ctx context.Context, userID, id int64) (*model.Order, error)

	// List retrieves a page of the user's orders.
	List(ctx context.Context, userID int64, filter model.OrderFilter) (*model.Page[model.Order], error)

	// UpdateStatus moves an order on behalf of its seller.
	UpdateStatus(ctx context.Context, sellerID, orderID int64, to model.OrderStatus) (*model.Order, error)

	// Cancel cancels an order on behalf of its buyer.
	Cancel(ctx context.Context, buyerID, orderID int64, reason string) (*model.Order, error)

	// OpenDispute moves an order into dispute on behalf of the dispute process.
	OpenDispute(ctx context.Context, orderID int64, reason string) (*model.Order, error)

	// Transitions lists the statuses userID may move the order to next.
	Transitions(ctx context.Context, userID, orderID int64) (*model.TransitionsResponse, error)
}

// clampPage normalises 1-based paging with a page size between 1 and 100.
func clampPage(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}
	return page, limit
}
