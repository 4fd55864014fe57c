package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bazaar/internal/checkout"
	"bazaar/internal/metrics"
	"bazaar/internal/model"
	"bazaar/internal/orderflow"
	"bazaar/internal/pricing"
	"bazaar/internal/repository"
	"bazaar/internal/stock"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	now         func() time.Time
	newNumber   func() string
}

// NewOrderService creates a new order service. m may be nil.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		metrics:     m,
		logger:      logger.With().Str("service", "order").Logger(),
		now:         time.Now,
		newNumber:   func() string { return "ORD-" + ulid.Make().String() },
	}
}

// CreateOrder validates the request against current catalog state and places the order.
func (s *orderService) CreateOrder(ctx context.Context, buyerID int64, req *model.CreateOrderRequest) (*model.OrderCreated, error) {
	if req == nil {
		return nil, model.NewDomainError(model.KindValidation, model.ErrCodeInvalidJSON, "order request is required")
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if existing, err := s.replay(ctx, buyerID, key); existing != nil || err != nil {
		return existing, err
	}

	if err := s.validateOrderRequest(req); err != nil {
		return nil, err
	}

	// Load products and resolve the shop
	productIDs := make([]int64, 0, len(req.Items))
	seen := make(map[int64]struct{}, len(req.Items))
	for _, item := range req.Items {
		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			productIDs = append(productIDs, item.ProductID)
		}
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		s.logger.Error().Err(err).Int("product_count", len(productIDs)).Msg("failed to load products")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	if len(byID) != len(productIDs) {
		s.logger.Warn().
			Int("expected", len(productIDs)).
			Int("found", len(byID)).
			Msg("not all product IDs exist")
		return nil, model.ErrProductNotFound
	}

	shopID, err := checkout.ResolveShop(req.ShopID, byID[req.Items[0].ProductID].ShopID, true)
	if err != nil {
		return nil, err
	}

	shop, err := s.productRepo.GetShop(ctx, shopID)
	if err != nil {
		s.logger.Error().Err(err).Int64("shop_id", shopID).Msg("failed to load shop")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if shop == nil {
		return nil, model.ErrMissingShop
	}

	// Price each line from the current catalog
	now := s.now()
	order := &model.Order{
		OrderNumber:    s.newNumber(),
		BuyerID:        buyerID,
		ShopID:         shop.ID,
		SellerID:       shop.OwnerID,
		IdempotencyKey: key,
		Currency:       shop.Currency,
		DeliveryType:   req.DeliveryType,
		BuyerName:      strings.TrimSpace(req.BuyerName),
		BuyerPhone:     strings.TrimSpace(req.BuyerPhone),
		BuyerEmail:     strings.TrimSpace(req.BuyerEmail),
		BuyerNote:      strings.TrimSpace(req.BuyerNote),
		Status:         model.StatusNew,
		CreatedAt:      now,
		UpdatedAt:      now,
		Subtotal:       decimal.Zero,
	}
	if req.DeliveryType == model.DeliveryDelivery {
		order.DeliveryAddress = strings.TrimSpace(req.DeliveryAddress)
		order.DeliveryNote = strings.TrimSpace(req.DeliveryNote)
	}

	items := make([]model.OrderItem, len(req.Items))
	var reservations []repository.StockAdjustment
	for i, line := range req.Items {
		p := byID[line.ProductID]
		if p.ShopID != shop.ID {
			s.logger.Warn().
				Int64("product_id", p.ID).
				Int64("shop_id", shop.ID).
				Msg("product belongs to another shop")
			return nil, model.ErrMixedShops
		}
		if p.Status != model.ProductActive {
			return nil, model.ErrProductUnavailable
		}

		var v *model.ProductVariant
		if line.VariantID != nil {
			found, ok := p.Variant(*line.VariantID)
			if !ok {
				return nil, model.ErrVariantNotFound
			}
			v = found
		}

		if !stock.CanFulfil(p, v, line.Quantity) {
			s.logger.Warn().
				Int64("product_id", p.ID).
				Int("quantity", line.Quantity).
				Int("available", stock.Available(p, v)).
				Msg("insufficient stock")
			s.metrics.OutOfStock()
			return nil, model.ErrInsufficientStock
		}

		quote := pricing.Resolve(p, v)
		items[i] = model.OrderItem{
			ProductID:   p.ID,
			VariantID:   line.VariantID,
			ProductName: p.Name,
			Quantity:    line.Quantity,
			UnitPrice:   quote.UnitPrice,
			LineTotal:   pricing.LineTotal(quote, line.Quantity),
		}
		if v != nil {
			items[i].SKU = v.SKU
		}

		order.ItemsCount += line.Quantity
		order.Subtotal = order.Subtotal.Add(items[i].LineTotal)

		if p.TrackStock {
			items[i].Reserved = true
			reservations = append(reservations, repository.StockAdjustment{
				ProductID: p.ID,
				VariantID: line.VariantID,
				Quantity:  line.Quantity,
				Op:        repository.StockReserve,
			})
		}
	}
	order.Total = order.Subtotal

	if err := s.persist(ctx, order, items, reservations); err != nil {
		if errors.Is(err, model.ErrInsufficientStock) {
			s.metrics.OutOfStock()
			return nil, err
		}

		// A concurrent request with the same key won the insert
		var pgErr *pgconn.PgError
		if key != "" && errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if existing, replayErr := s.replay(ctx, buyerID, key); existing != nil || replayErr != nil {
				return existing, replayErr
			}
		}
		return nil, err
	}

	s.metrics.OrderCreated(string(order.DeliveryType), false)
	s.metrics.Reserved(len(reservations))

	s.logger.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Int64("buyer_id", buyerID).
		Int64("shop_id", order.ShopID).
		Int("item_count", len(items)).
		Str("total", order.Total.StringFixed(2)).
		Msg("order created successfully")

	return &model.OrderCreated{OrderID: order.ID, OrderNumber: order.OrderNumber}, nil
}

// replay returns the order already placed with key, if any.
func (s *orderService) replay(ctx context.Context, buyerID int64, key string) (*model.OrderCreated, error) {
	if key == "" {
		return nil, nil
	}

	existing, err := s.orderRepo.GetByIdempotencyKey(ctx, buyerID, key)
	if err != nil {
		s.logger.Error().Err(err).Str("idempotency_key", key).Msg("failed to look up idempotency key")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	s.logger.Info().
		Int64("order_id", existing.ID).
		Str("idempotency_key", key).
		Msg("returning order placed with the same idempotency key")
	s.metrics.OrderCreated(string(existing.DeliveryType), true)

	return &model.OrderCreated{OrderID: existing.ID, OrderNumber: existing.OrderNumber}, nil
}

// persist writes the order, its items and stock reservations in one transaction.
func (s *orderService) persist(ctx context.Context, order *model.Order, items []model.OrderItem, reservations []repository.StockAdjustment) (err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_number", order.OrderNumber).Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
	}
	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Int64("order_id", order.ID).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return fmt.Errorf("failed to create order items: %w", err)
	}
	order.Items = items

	if err = s.productRepo.AdjustStock(ctx, tx, reservations); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Int64("order_id", order.ID).Msg("failed to commit transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// validateOrderRequest runs the checks that need no catalog data.
func (s *orderService) validateOrderRequest(req *model.CreateOrderRequest) error {
	if err := checkout.ValidateFields(req.BuyerName, req.DeliveryType, req.DeliveryAddress); err != nil {
		return err
	}
	if req.ShopID == nil && len(req.Items) == 0 {
		return model.ErrMissingShop
	}
	if !req.DeliveryType.Valid() {
		return model.ErrInvalidDeliveryType
	}
	if len(req.Items) == 0 {
		return model.ErrEmptyCartNotAllowed
	}

	for i, item := range req.Items {
		if item.ProductID <= 0 {
			return model.ErrProductNotFound
		}
		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Int64("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}
	}

	return nil
}

// GetByID retrieves an order for its buyer or seller.
func (s *orderService) GetByID(ctx context.Context, userID, id int64) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", id).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Int64("order_id", id).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	if order.BuyerID != userID && order.SellerID != userID {
		s.logger.Warn().Int64("order_id", id).Int64("user_id", userID).Msg("order access denied")
		return nil, model.ErrForbidden
	}

	return order, nil
}

// List retrieves a page of orders the user bought, or sold when filter.Role is "seller".
func (s *orderService) List(ctx context.Context, userID int64, filter model.OrderFilter) (*model.Page[model.Order], error) {
	filter.Page, filter.Limit = clampPage(filter.Page, filter.Limit)
	if filter.Role != "seller" {
		filter.Role = "buyer"
	}

	orders, total, err := s.orderRepo.List(ctx, userID, filter)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &model.Page[model.Order]{
		Items: orders,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// UpdateStatus applies a seller transition.
func (s *orderService) UpdateStatus(ctx context.Context, sellerID, orderID int64, to model.OrderStatus) (*model.Order, error) {
	return s.transition(ctx, orderID, to, orderflow.ActorSeller, func(o *model.Order) error {
		if o.SellerID != sellerID {
			return model.ErrForbidden
		}
		return nil
	})
}

// Cancel applies a buyer cancellation.
func (s *orderService) Cancel(ctx context.Context, buyerID, orderID int64, reason string) (*model.Order, error) {
	return s.transition(ctx, orderID, model.StatusCancelled, orderflow.ActorBuyer, func(o *model.Order) error {
		if o.BuyerID != buyerID {
			return model.ErrForbidden
		}
		o.CancelReason = strings.TrimSpace(reason)
		return nil
	})
}

// OpenDispute moves an order into dispute. The reason is logged only.
func (s *orderService) OpenDispute(ctx context.Context, orderID int64, reason string) (*model.Order, error) {
	order, err := s.transition(ctx, orderID, model.StatusDispute, orderflow.ActorSystem, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("order_id", orderID).Str("reason", reason).Msg("dispute opened")
	return order, nil
}

// Transitions lists the next statuses for the user's role on the order.
func (s *orderService) Transitions(ctx context.Context, userID, orderID int64) (*model.TransitionsResponse, error) {
	order, err := s.GetByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	actor := orderflow.ActorBuyer
	if order.SellerID == userID {
		actor = orderflow.ActorSeller
	}

	targets := orderflow.TargetsFor(actor, order.Status)
	if targets == nil {
		targets = []model.OrderStatus{}
	}

	return &model.TransitionsResponse{Status: order.Status, Targets: targets}, nil
}

// transition locks the order, checks access with authorize, applies the move and
// settles stock for cancellation and completion.
func (s *orderService) transition(
	ctx context.Context,
	orderID int64,
	to model.OrderStatus,
	actor orderflow.Actor,
	authorize func(o *model.Order) error,
) (result *model.Order, err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err := s.orderRepo.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to load order")
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if order == nil {
		err = model.ErrOrderNotFound
		return nil, err
	}

	if authorize != nil {
		if err = authorize(order); err != nil {
			s.logger.Warn().Int64("order_id", orderID).Str("actor", string(actor)).Msg("order access denied")
			return nil, err
		}
	}

	from := order.Status
	if err = orderflow.Apply(order, to, actor, s.now()); err != nil {
		s.logger.Warn().
			Int64("order_id", orderID).
			Str("from", string(from)).
			Str("to", string(to)).
			Str("actor", string(actor)).
			Msg("illegal status transition")
		s.metrics.TransitionRejected(model.ErrCodeIllegalTransition)
		return nil, err
	}

	if err = s.orderRepo.UpdateStatus(ctx, tx, order, from); err != nil {
		if errors.Is(err, model.ErrStatusConflict) {
			s.metrics.TransitionRejected(model.ErrCodeStatusConflict)
		}
		return nil, err
	}

	if adjustments := settlement(order, to); len(adjustments) > 0 {
		if err = s.productRepo.AdjustStock(ctx, tx, adjustments); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Int64("order_id", orderID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.metrics.Transition(string(from), string(to), string(actor))
	s.logger.Info().
		Int64("order_id", orderID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("actor", string(actor)).
		Msg("order status updated")

	return order, nil
}

// settlement returns the stock changes implied by reaching status to. Only
// lines that reserved stock when the order was placed are settled.
func settlement(order *model.Order, to model.OrderStatus) []repository.StockAdjustment {
	var op repository.StockOp
	switch to {
	case model.StatusCancelled:
		op = repository.StockRelease
	case model.StatusCompleted:
		op = repository.StockConsume
	default:
		return nil
	}

	var adjustments []repository.StockAdjustment
	for _, item := range order.Items {
		if !item.Reserved {
			continue
		}
		// The variant row is gone; its hold never touched product stock.
		if item.SKU != "" && item.VariantID == nil {
			continue
		}
		adjustments = append(adjustments, repository.StockAdjustment{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Op:        op,
		})
	}
	return adjustments
}
