package router

import (
	"net/http"

	"book-checkout/internal/handler"
	"book-checkout/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	checkoutHandler *handler.CheckoutHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Register reservation routes (both with and without trailing slash)
	mux.HandleFunc("/api/checkout/reservations", checkoutHandler.Route)
	mux.HandleFunc("/api/checkout/reservations/", checkoutHandler.Route)

	// Apply middleware in order: Recovery -> Logging -> CORS -> APIKeyAuth -> UserContext
	var h http.Handler = mux
	h = middleware.UserContext(logger)(h)
	h = middleware.APIKeyAuth(apiKey, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
