package repository

import (
	"context"
	"errors"
	"fmt"

	"bazaar/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, order_number, buyer_id, shop_id, seller_id, idempotency_key, items_count,
	subtotal, total, currency, delivery_type, delivery_address, delivery_note,
	buyer_name, buyer_phone, buyer_email, buyer_note, status, cancel_reason,
	confirmed_at, shipped_at, delivered_at, completed_at, cancelled_at,
	created_at, updated_at
`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction and sets its ID.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (order_number, buyer_id, shop_id, seller_id, idempotency_key,
			items_count, subtotal, total, currency, delivery_type, delivery_address,
			delivery_note, buyer_name, buyer_phone, buyer_email, buyer_note, status,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query,
		order.OrderNumber,
		order.BuyerID,
		order.ShopID,
		order.SellerID,
		nullIfEmpty(order.IdempotencyKey),
		order.ItemsCount,
		order.Subtotal.String(),
		order.Total.String(),
		order.Currency,
		string(order.DeliveryType),
		order.DeliveryAddress,
		order.DeliveryNote,
		order.BuyerName,
		order.BuyerPhone,
		order.BuyerEmail,
		order.BuyerNote,
		string(order.Status),
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_number", order.OrderNumber).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (order_id, product_id, variant_id, product_name, sku,
			quantity, unit_price, line_total, reserved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.OrderID, item.ProductID, item.VariantID, item.ProductName, item.SKU,
			item.Quantity, item.UnitPrice.String(), item.LineTotal.String(), item.Reserved)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range items {
		if err := results.QueryRow().Scan(&items[i].ID); err != nil {
			r.logger.Error().
				Err(err).
				Int64("order_id", items[i].OrderID).
				Int64("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.getOne(ctx, r.pool, query, id)
}

// GetForUpdate retrieves an order and locks it for the rest of tx.
func (r *orderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, tx, query, id)
}

// GetByIdempotencyKey retrieves the order the buyer already placed with key.
func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, buyerID int64, key string) (*model.Order, error) {
	if key == "" {
		return nil, nil
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE buyer_id = $1 AND idempotency_key = $2`
	return r.getOne(ctx, r.pool, query, buyerID, key)
}

// UpdateStatus writes the order's status fields, guarded by the status it was read with.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order, from model.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $3,
			cancel_reason = $4,
			confirmed_at = $5,
			shipped_at = $6,
			delivered_at = $7,
			completed_at = $8,
			cancelled_at = $9,
			updated_at = $10
		WHERE id = $1 AND status = $2
	`

	tag, err := tx.Exec(ctx, query,
		order.ID,
		string(from),
		string(order.Status),
		order.CancelReason,
		order.ConfirmedAt,
		order.ShippedAt,
		order.DeliveredAt,
		order.CompletedAt,
		order.CancelledAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Warn().
			Int64("order_id", order.ID).
			Str("expected_status", string(from)).
			Msg("order status changed concurrently")
		return model.ErrStatusConflict
	}

	return nil
}

// List retrieves orders where the user is the buyer, or the seller when filter.Role is "seller".
func (r *orderRepository) List(ctx context.Context, userID int64, filter model.OrderFilter) ([]model.Order, int, error) {
	column := "buyer_id"
	if filter.Role == "seller" {
		column = "seller_id"
	}

	where := column + " = $1"
	args := []any{userID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += " AND status = $2"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+where, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to count orders")
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	limit, offset := pageBounds(filter.Page, filter.Limit)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, orderColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query orders")
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, total, nil
}

func (r *orderRepository) getOne(ctx context.Context, q querier, query string, args ...any) (*model.Order, error) {
	var order model.Order
	if err := scanOrder(q.QueryRow(ctx, query, args...), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.items(ctx, q, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *orderRepository) items(ctx context.Context, q querier, orderID int64) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, variant_id, product_name, sku, quantity, unit_price,
			line_total, reserved
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("order_id", orderID).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.VariantID, &item.ProductName,
			&item.SKU, &item.Quantity, &item.UnitPrice, &item.LineTotal, &item.Reserved,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func scanOrder(row pgx.Row, o *model.Order) error {
	var key *string
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.BuyerID, &o.ShopID, &o.SellerID, &key, &o.ItemsCount,
		&o.Subtotal, &o.Total, &o.Currency, &o.DeliveryType, &o.DeliveryAddress, &o.DeliveryNote,
		&o.BuyerName, &o.BuyerPhone, &o.BuyerEmail, &o.BuyerNote, &o.Status, &o.CancelReason,
		&o.ConfirmedAt, &o.ShippedAt, &o.DeliveredAt, &o.CompletedAt, &o.CancelledAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if key != nil {
		o.IdempotencyKey = *key
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
