package repository

import (
	"context"

	"bazaar/internal/model"

	"github.com/jackc/pgx/v5"
)

// StockOp is the kind of change a stock adjustment makes.
type StockOp string

const (
	// StockReserve holds quantity for a new order.
	StockReserve StockOp = "reserve"
	// StockRelease gives held quantity back when an order is cancelled.
	StockRelease StockOp = "release"
	// StockConsume turns held quantity into a sale when an order completes.
	StockConsume StockOp = "consume"
)

// StockAdjustment is one order line's effect on stock.
type StockAdjustment struct {
	ProductID int64
	VariantID *int64
	Quantity  int
	Op        StockOp
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List retrieves products matching the filter with their shop and variants,
	// plus the total number of matches.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error)

	// GetByID retrieves a single product with its shop and variants.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// GetByIDs retrieves multiple products with their shops and variants.
	GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	// GetShop retrieves a shop by its ID.
	GetShop(ctx context.Context, id int64) (*model.ShopInfo, error)

	// SaveShop inserts a shop or updates the one with the same slug.
	SaveShop(ctx context.Context, shop *model.ShopInfo) error

	// SaveProduct inserts a product or updates the one with the same shop and slug,
	// replacing its variant list.
	// Stock held by open orders is kept: it fails with ErrStockBelowReserved or
	// ErrVariantReserved instead.
	SaveProduct(ctx context.Context, p *model.Product) error

	// AdjustStock applies stock changes within the provided transaction.
	// A reservation that cannot be covered fails with ErrInsufficientStock.
	AdjustStock(ctx context.Context, tx pgx.Tx, adjustments []StockAdjustment) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id int64) (*model.Order, error)

	// GetForUpdate retrieves an order and locks its row until tx ends.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Order, error)

	// GetByIdempotencyKey retrieves the order a buyer placed with the given key.
	GetByIdempotencyKey(ctx context.Context, buyerID int64, key string) (*model.Order, error)

	// UpdateStatus persists the order's status fields if its stored status is
	// still from. Otherwise it fails with ErrStatusConflict.
	UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order, from model.OrderStatus) error

	// List retrieves the user's orders matching the filter, plus the total number of matches.
	List(ctx context.Context, userID int64, filter model.OrderFilter) ([]model.Order, int, error)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
