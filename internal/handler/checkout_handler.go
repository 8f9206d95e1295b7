package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"book-checkout/internal/middleware"
	"book-checkout/internal/model"
	"book-checkout/internal/service"

	"github.com/rs/zerolog"
)

const reservationsPrefix = "/api/checkout/reservations"

// CheckoutHandler handles the reservation, QR and settlement endpoints.
type CheckoutHandler struct {
	checkout        service.CheckoutService
	qr              service.QRService
	settlement      service.SettlementService
	defaultCurrency string
	logger          zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(
	checkout service.CheckoutService,
	qr service.QRService,
	settlement service.SettlementService,
	defaultCurrency string,
	logger zerolog.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:        checkout,
		qr:              qr,
		settlement:      settlement,
		defaultCurrency: defaultCurrency,
		logger:          logger.With().Str("handler", "checkout").Logger(),
	}
}

// Create handles POST /api/checkout/reservations requests.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, model.ErrCodeInvalidJSON, "method not allowed", h.logger)
		return
	}

	var req model.CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	// The caller identity always comes from the authenticated context, never
	// from the request body.
	req.UserID = middleware.UserID(r.Context())
	if req.CartID == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "cartId is required", h.logger)
		return
	}

	res, err := h.checkout.CreateReservation(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// MintQR handles POST /api/checkout/reservations/{id}/qr requests.
func (h *CheckoutHandler) MintQR(w http.ResponseWriter, r *http.Request, reservationID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, model.ErrCodeInvalidJSON, "method not allowed", h.logger)
		return
	}

	// The body is optional; an empty one mints in the default currency.
	var req model.MintQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = h.defaultCurrency
	}

	session, err := h.qr.Mint(r.Context(), reservationID, middleware.UserID(r.Context()), currency)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// Status handles GET /api/checkout/reservations/{id}/status requests. The
// attempt query parameter carries the client's poll counter.
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request, reservationID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, model.ErrCodeInvalidJSON, "method not allowed", h.logger)
		return
	}

	attempt := 1
	if raw := r.URL.Query().Get("attempt"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid attempt parameter", h.logger)
			return
		}
		attempt = parsed
	}

	result, err := h.settlement.CheckStatus(r.Context(), reservationID, middleware.UserID(r.Context()), attempt)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Cancel handles DELETE /api/checkout/reservations/{id} requests.
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request, reservationID string) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, model.ErrCodeInvalidJSON, "method not allowed", h.logger)
		return
	}

	if err := h.checkout.Cancel(r.Context(), reservationID, middleware.UserID(r.Context())); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Route dispatches a request under /api/checkout/reservations to the right
// operation based on method and path shape.
func (h *CheckoutHandler) Route(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")

	if path == reservationsPrefix {
		h.Create(w, r)
		return
	}

	rest := strings.TrimPrefix(path, reservationsPrefix+"/")
	if rest == path || rest == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	segments := strings.Split(rest, "/")
	switch {
	case len(segments) == 1:
		h.Cancel(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "qr":
		h.MintQR(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "status":
		h.Status(w, r, segments[0])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}
