// Package orderdesk exposes the seller and buyer entry points into the order
// lifecycle. Both check the transition locally before calling the order service
// and allow one outstanding status change per order.
package orderdesk

import (
	"context"
	"strings"

	"bazaar/internal/model"
	"bazaar/internal/orderflow"

	"github.com/rs/zerolog"
)

// StatusUpdater is the order service as seen by the seller screen.
type StatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, token string, orderID int64, status model.OrderStatus) (*model.Order, error)
}

// Canceller is the order service as seen by the buyer screen.
type Canceller interface {
	CancelOrder(ctx context.Context, token string, orderID int64, reason string) (*model.Order, error)
}

// SellerDesk drives seller-initiated status changes.
type SellerDesk struct {
	api      StatusUpdater
	inflight *orderflow.InFlight
	logger   zerolog.Logger
}

// NewSellerDesk creates a seller desk. Desks sharing inflight also share the per-order guard.
func NewSellerDesk(api StatusUpdater, inflight *orderflow.InFlight, logger zerolog.Logger) *SellerDesk {
	if inflight == nil {
		inflight = orderflow.NewInFlight()
	}
	return &SellerDesk{
		api:      api,
		inflight: inflight,
		logger:   logger.With().Str("desk", "seller").Logger(),
	}
}

// Options lists the statuses to offer for the order. Nothing is offered while
// a change is outstanding.
func (d *SellerDesk) Options(o model.Order) []model.OrderStatus {
	if d.inflight.Updating(o.ID) {
		return nil
	}
	return orderflow.LegalTargets(o.Status)
}

// Transition asks the order service to move o to the target status.
func (d *SellerDesk) Transition(ctx context.Context, token string, o model.Order, to model.OrderStatus) (*model.Order, error) {
	if !orderflow.CanTransition(orderflow.ActorSeller, o.Status, to) {
		d.logger.Warn().
			Int64("order_id", o.ID).
			Str("from", string(o.Status)).
			Str("to", string(to)).
			Msg("illegal transition requested")
		return nil, model.IllegalTransition(o.Status, to)
	}

	release, err := d.inflight.Begin(o.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	updated, err := d.api.UpdateOrderStatus(ctx, token, o.ID, to)
	if err != nil {
		d.logger.Error().Err(err).Int64("order_id", o.ID).Str("to", string(to)).Msg("status update failed")
		return nil, err
	}

	d.logger.Info().
		Int64("order_id", o.ID).
		Str("from", string(o.Status)).
		Str("to", string(updated.Status)).
		Msg("order status updated")

	return updated, nil
}

// BuyerDesk drives the buyer's cancellation path.
type BuyerDesk struct {
	api      Canceller
	inflight *orderflow.InFlight
	logger   zerolog.Logger
}

// NewBuyerDesk creates a buyer desk.
func NewBuyerDesk(api Canceller, inflight *orderflow.InFlight, logger zerolog.Logger) *BuyerDesk {
	if inflight == nil {
		inflight = orderflow.NewInFlight()
	}
	return &BuyerDesk{
		api:      api,
		inflight: inflight,
		logger:   logger.With().Str("desk", "buyer").Logger(),
	}
}

// CanCancel reports whether the buyer should be offered cancellation.
func (d *BuyerDesk) CanCancel(o model.Order) bool {
	return !d.inflight.Updating(o.ID) &&
		orderflow.CanTransition(orderflow.ActorBuyer, o.Status, model.StatusCancelled)
}

// Cancel asks the order service to cancel o with the given reason.
func (d *BuyerDesk) Cancel(ctx context.Context, token string, o model.Order, reason string) (*model.Order, error) {
	if !orderflow.CanTransition(orderflow.ActorBuyer, o.Status, model.StatusCancelled) {
		return nil, model.IllegalTransition(o.Status, model.StatusCancelled)
	}

	release, err := d.inflight.Begin(o.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	updated, err := d.api.CancelOrder(ctx, token, o.ID, strings.TrimSpace(reason))
	if err != nil {
		d.logger.Error().Err(err).Int64("order_id", o.ID).Msg("cancellation failed")
		return nil, err
	}

	d.logger.Info().Int64("order_id", o.ID).Msg("order cancelled by buyer")
	return updated, nil
}
