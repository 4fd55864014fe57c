package handler

import (
	"net/http"
	"strconv"

	"bazaar/internal/model"
	"bazaar/internal/service"

	"github.com/rs/zerolog"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// List handles GET /api/products requests with pagination and filters.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
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
	filter := model.ProductFilter{
		Page:     page,
		Limit:    limit,
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     q.Get("sort"),
	}
	if raw := q.Get("shopId"); raw != "" {
		filter.ShopID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid shopId parameter", h.logger)
			return
		}
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetByID handles GET /api/products/{id} requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidParameter, "invalid product ID", h.logger)
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}
