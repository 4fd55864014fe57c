package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"bazaar/internal/model"
	"bazaar/internal/service"

	"github.com/rs/zerolog"
)

// IdempotencyKeyHeader lets clients supply the idempotency key outside the body.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	var req model.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)
	}

	created, err := h.service.CreateOrder(r.Context(), buyerID, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /api/orders requests.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid page parameter", h.logger)
		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid limit parameter", h.logger)
		return
	}

	q := r.URL.Query()
	role := q.Get("role")
	if role != "" && role != "buyer" && role != "seller" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "role must be buyer or seller", h.logger)
		return
	}
	status := q.Get("status")
	if status != "" && !model.OrderStatus(status).Valid() {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "unknown order status", h.logger)
		return
	}

	orders, err := h.service.List(r.Context(), userID, model.OrderFilter{
		Page:   page,
		Limit:  limit,
		Status: status,
		Role:   role,
	})
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, orderID, ok := h.orderRequest(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), userID, orderID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Transitions handles GET /api/orders/{id}/transitions requests.
func (h *OrderHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	userID, orderID, ok := h.orderRequest(w, r)
	if !ok {
		return
	}

	targets, err := h.service.Transitions(r.Context(), userID, orderID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, targets)
}

// UpdateStatus handles PATCH /api/orders/{id}/status requests from sellers.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sellerID, orderID, ok := h.orderRequest(w, r)
	if !ok {
		return
	}

	var req model.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if !req.Status.Valid() {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "unknown order status", h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), sellerID, orderID, req.Status)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Cancel handles POST /api/orders/{id}/cancel requests from buyers.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	buyerID, orderID, ok := h.orderRequest(w, r)
	if !ok {
		return
	}

	// The body is optional
	var req model.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.Cancel(r.Context(), buyerID, orderID, req.Reason)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) orderRequest(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := currentUser(w, r, h.logger)
	if !ok {
		return 0, 0, false
	}
	orderID, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid order ID", h.logger)
		return 0, 0, false
	}
	return userID, orderID, true
}
