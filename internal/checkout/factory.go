// Package checkout turns a cart and the buyer's details into an order request.
package checkout

import (
	"context"
	"strings"

	"bazaar/internal/cart"
	"bazaar/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OrderCreator is the order service as seen by checkout.
type OrderCreator interface {
	CreateOrder(ctx context.Context, token string, req *model.CreateOrderRequest) (*model.OrderCreated, error)
}

// Delivery holds the delivery fields of the checkout form.
type Delivery struct {
	Address string
	Note    string
}

// Buyer holds the contact fields of the checkout form.
type Buyer struct {
	Name  string
	Phone string
	Email string
	Note  string
}

// Request is everything checkout needs to place an order.
type Request struct {
	Cart         *cart.Cart
	ShopID       *int64
	DeliveryType model.DeliveryType
	Delivery     Delivery
	Buyer        Buyer
}

// Submission is a validated order request. Submitting it again reuses its
// idempotency key, so a retry after a timeout cannot create a second order.
type Submission struct {
	Payload  model.CreateOrderRequest
	Subtotal decimal.Decimal
	Total    decimal.Decimal
}

// Key returns the idempotency key sent with every attempt.
func (s *Submission) Key() string {
	return s.Payload.IdempotencyKey
}

// Factory validates checkout requests and sends them to the order service.
type Factory struct {
	orders OrderCreator
	logger zerolog.Logger
	newKey func() string
}

// NewFactory creates a new order factory.
func NewFactory(orders OrderCreator, logger zerolog.Logger) *Factory {
	return &Factory{
		orders: orders,
		logger: logger.With().Str("component", "checkout").Logger(),
		newKey: func() string { return uuid.NewString() },
	}
}

// ValidateFields checks buyer name and, for delivery orders, the address.
func ValidateFields(buyerName string, deliveryType model.DeliveryType, address string) error {
	if strings.TrimSpace(buyerName) == "" {
		return model.ErrMissingBuyerName
	}
	if deliveryType == model.DeliveryDelivery && strings.TrimSpace(address) == "" {
		return model.ErrMissingDeliveryAddress
	}
	return nil
}

// ResolveShop picks the explicit shop ID when given, else the fallback from the first line.
func ResolveShop(explicit *int64, fallback int64, ok bool) (int64, error) {
	if explicit != nil && *explicit > 0 {
		return *explicit, nil
	}
	if ok && fallback > 0 {
		return fallback, nil
	}
	return 0, model.ErrMissingShop
}

// Validate runs the local checks in order. None of them touches the network.
func Validate(req Request) (int64, error) {
	if err := ValidateFields(req.Buyer.Name, req.DeliveryType, req.Delivery.Address); err != nil {
		return 0, err
	}

	var fallback int64
	var ok bool
	if req.Cart != nil {
		fallback, ok = req.Cart.ShopID()
	}
	shopID, err := ResolveShop(req.ShopID, fallback, ok)
	if err != nil {
		return 0, err
	}

	if !req.DeliveryType.Valid() {
		return 0, model.ErrInvalidDeliveryType
	}
	if req.Cart == nil || req.Cart.Len() == 0 {
		return 0, model.ErrEmptyCartNotAllowed
	}

	return shopID, nil
}

// Prepare validates req and shapes the payload with a fresh idempotency key.
func (f *Factory) Prepare(req Request) (*Submission, error) {
	shopID, err := Validate(req)
	if err != nil {
		f.logger.Debug().Err(err).Msg("checkout validation failed")
		return nil, err
	}

	address := ""
	note := ""
	if req.DeliveryType == model.DeliveryDelivery {
		address = strings.TrimSpace(req.Delivery.Address)
		note = strings.TrimSpace(req.Delivery.Note)
	}

	return &Submission{
		Payload: model.CreateOrderRequest{
			ShopID:          &shopID,
			Items:           req.Cart.Items(),
			DeliveryType:    req.DeliveryType,
			DeliveryAddress: address,
			DeliveryNote:    note,
			BuyerName:       strings.TrimSpace(req.Buyer.Name),
			BuyerPhone:      strings.TrimSpace(req.Buyer.Phone),
			BuyerEmail:      strings.TrimSpace(req.Buyer.Email),
			BuyerNote:       strings.TrimSpace(req.Buyer.Note),
			IdempotencyKey:  f.newKey(),
		},
		Subtotal: req.Cart.Subtotal(),
		Total:    req.Cart.Total(),
	}, nil
}

// Submit sends the submission. Failures come back unchanged so the caller can
// show them and retry with the same submission; the cart is not touched.
func (f *Factory) Submit(ctx context.Context, token string, sub *Submission) (*model.OrderCreated, error) {
	created, err := f.orders.CreateOrder(ctx, token, &sub.Payload)
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("idempotency_key", sub.Key()).
			Msg("order submission failed")
		return nil, err
	}

	f.logger.Info().
		Int64("order_id", created.OrderID).
		Str("order_number", created.OrderNumber).
		Msg("order placed")

	return created, nil
}

// CreateOrder validates req and submits it once.
func (f *Factory) CreateOrder(ctx context.Context, token string, req Request) (*model.OrderCreated, *Submission, error) {
	sub, err := f.Prepare(req)
	if err != nil {
		return nil, nil, err
	}
	created, err := f.Submit(ctx, token, sub)
	if err != nil {
		return nil, sub, err
	}
	return created, sub, nil
}
