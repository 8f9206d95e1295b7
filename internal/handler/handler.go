package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"book-checkout/internal/gateway"
	"book-checkout/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes a coded error response with the given status.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Error().Str("code", code).Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps a service error onto an HTTP status and a stable
// error code. Unrecognised errors become opaque 500s so internals never leak.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status := http.StatusBadRequest
		switch domainErr.Code {
		case model.ErrCodeReservationNotFound:
			status = http.StatusNotFound
		case model.ErrCodeAlreadyMaterialised:
			status = http.StatusConflict
		}
		writeError(w, status, domainErr.Code, domainErr.Message, logger)
		return
	}

	var stockErr *model.StockInsufficientError
	if errors.As(err, &stockErr) {
		writeError(w, http.StatusConflict, model.ErrCodeStockInsufficient, stockErr.Error(), logger)
		return
	}

	var discountErr *model.InvalidDiscountError
	if errors.As(err, &discountErr) {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidDiscount, discountErr.Error(), logger)
		return
	}

	var cfgErr *model.ConfigError
	if errors.As(err, &cfgErr) {
		// Operator misconfiguration; the buyer can do nothing about it.
		writeError(w, http.StatusServiceUnavailable, model.ErrCodePaymentNotConfigured,
			"payment is temporarily unavailable", logger)
		return
	}

	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		writeError(w, http.StatusBadGateway, model.ErrCodeGatewayUnavailable,
			"payment gateway is temporarily unavailable", logger)
		return
	}

	writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError,
		"internal server error", logger)
}
