// Package metrics holds the Prometheus collectors of the API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	OrdersCreated       *prometheus.CounterVec
	OrderTransitions    *prometheus.CounterVec
	RejectedTransitions *prometheus.CounterVec
	StockReservations   prometheus.Counter
	InsufficientStock   prometheus.Counter
}

// New registers the collectors on reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP request metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		// Order metrics
		OrdersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "Total number of orders placed",
			},
			[]string{"delivery_type", "replayed"},
		),
		OrderTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_transitions_total",
				Help:      "Total number of applied order status changes",
			},
			[]string{"from", "to", "actor"},
		),
		RejectedTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_transitions_rejected_total",
				Help:      "Total number of refused order status changes",
			},
			[]string{"reason"},
		),

		// Stock metrics
		StockReservations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_reservations_total",
				Help:      "Total number of order lines that reserved stock",
			},
		),
		InsufficientStock: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_insufficient_total",
				Help:      "Total number of orders refused for lack of stock",
			},
		),
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
}

// OrderCreated records a placed order. Replayed orders are idempotent repeats.
func (m *Metrics) OrderCreated(deliveryType string, replayed bool) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(deliveryType, strconv.FormatBool(replayed)).Inc()
}

// Transition records an applied status change.
func (m *Metrics) Transition(from, to, actor string) {
	if m == nil {
		return
	}
	m.OrderTransitions.WithLabelValues(from, to, actor).Inc()
}

// TransitionRejected records a refused status change.
func (m *Metrics) TransitionRejected(reason string) {
	if m == nil {
		return
	}
	m.RejectedTransitions.WithLabelValues(reason).Inc()
}

// Reserved records order lines that reserved stock.
func (m *Metrics) Reserved(lines int) {
	if m == nil {
		return
	}
	m.StockReservations.Add(float64(lines))
}

// OutOfStock records an order refused for lack of stock.
func (m *Metrics) OutOfStock() {
	if m == nil {
		return
	}
	m.InsufficientStock.Inc()
}
