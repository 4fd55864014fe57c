// Package orderflow holds the order status graph and the rules for who may walk it.
package orderflow

import (
	"slices"
	"time"

	"bazaar/internal/model"
)

// Actor identifies which side requests a status change.
type Actor string

const (
	ActorSeller Actor = "seller"
	ActorBuyer  Actor = "buyer"
	// ActorSystem is the external dispute process.
	ActorSystem Actor = "system"
)

var sellerTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.StatusNew:       {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusPaid, model.StatusCancelled},
	model.StatusPaid:      {model.StatusShipped, model.StatusCancelled},
	model.StatusShipped:   {model.StatusDelivered},
	model.StatusDelivered: {model.StatusCompleted},
	model.StatusDispute:   {model.StatusCancelled},
}

var buyerTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.StatusNew:       {model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCancelled},
}

var systemTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.StatusConfirmed: {model.StatusDispute},
	model.StatusPaid:      {model.StatusDispute},
	model.StatusShipped:   {model.StatusDispute},
	model.StatusDelivered: {model.StatusDispute},
}

func tableFor(actor Actor) map[model.OrderStatus][]model.OrderStatus {
	switch actor {
	case ActorSeller:
		return sellerTransitions
	case ActorBuyer:
		return buyerTransitions
	case ActorSystem:
		return systemTransitions
	}
	return nil
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s model.OrderStatus) bool {
	return s == model.StatusCompleted || s == model.StatusCancelled
}

// LegalTargets returns the statuses the seller may move an order to from the given status.
func LegalTargets(from model.OrderStatus) []model.OrderStatus {
	return TargetsFor(ActorSeller, from)
}

// TargetsFor returns the statuses actor may move an order to from the given status.
func TargetsFor(actor Actor, from model.OrderStatus) []model.OrderStatus {
	return slices.Clone(tableFor(actor)[from])
}

// CanTransition reports whether actor may move an order from one status to another.
// Moving to the same status is never a transition.
func CanTransition(actor Actor, from, to model.OrderStatus) bool {
	if IsTerminal(from) {
		return false
	}
	return slices.Contains(tableFor(actor)[from], to)
}

// Apply moves o to the target status on behalf of actor. The timestamp for the
// reached status is set on first arrival only.
func Apply(o *model.Order, to model.OrderStatus, actor Actor, now time.Time) error {
	if !CanTransition(actor, o.Status, to) {
		return model.IllegalTransition(o.Status, to)
	}

	o.Status = to
	o.UpdatedAt = now
	stamp(o, to, now)
	return nil
}

func stamp(o *model.Order, status model.OrderStatus, now time.Time) {
	var field **time.Time
	switch status {
	case model.StatusConfirmed:
		field = &o.ConfirmedAt
	case model.StatusShipped:
		field = &o.ShippedAt
	case model.StatusDelivered:
		field = &o.DeliveredAt
	case model.StatusCompleted:
		field = &o.CompletedAt
	case model.StatusCancelled:
		field = &o.CancelledAt
	default:
		return
	}
	if *field == nil {
		t := now
		*field = &t
	}
}
