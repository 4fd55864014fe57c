package router

import (
	"net/http"

	"bazaar/internal/handler"
	"bazaar/internal/metrics"
	"bazaar/internal/middleware"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
// A nil gatherer leaves /metrics unregistered.
func New(
	productHandler *handler.ProductHandler,
	orderHandler *handler.OrderHandler,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	jwtSecret string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	})

	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("GET /api/products", productHandler.List)
	mux.HandleFunc("GET /api/products/{id}", productHandler.GetByID)

	mux.HandleFunc("POST /api/orders", orderHandler.Create)
	mux.HandleFunc("GET /api/orders", orderHandler.List)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.GetByID)
	mux.HandleFunc("GET /api/orders/{id}/transitions", orderHandler.Transitions)
	mux.HandleFunc("PATCH /api/orders/{id}/status", orderHandler.UpdateStatus)
	mux.HandleFunc("POST /api/orders/{id}/cancel", orderHandler.Cancel)

	// Apply middleware in order: Recovery -> RequestID -> Logging -> Metrics -> CORS -> Authenticate
	var handler http.Handler = mux
	handler = middleware.Authenticate(jwtSecret, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Metrics(m)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
