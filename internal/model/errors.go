package model

import "fmt"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeCartEmpty            = "CART_EMPTY"
	ErrCodeBookNotFound         = "BOOK_NOT_FOUND"
	ErrCodeStockInsufficient    = "STOCK_INSUFFICIENT"
	ErrCodeInvalidDiscount      = "INVALID_DISCOUNT"
	ErrCodeUnsupportedPayment   = "UNSUPPORTED_PAYMENT_METHOD"
	ErrCodeReservationNotFound  = "RESERVATION_NOT_FOUND"
	ErrCodeGatewayUnavailable   = "GATEWAY_UNAVAILABLE"
	ErrCodePaymentNotConfigured = "PAYMENT_NOT_CONFIGURED"
	ErrCodeAlreadyMaterialised  = "ALREADY_MATERIALISED"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// DomainError is a business error the caller can act on.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrCartEmpty           = NewDomainError(ErrCodeCartEmpty, "Cart has no items to check out")
	ErrReservationNotFound = NewDomainError(ErrCodeReservationNotFound, "Reservation not found or expired")
	ErrAlreadyMaterialised = NewDomainError(ErrCodeAlreadyMaterialised, "An order already exists for this reservation")
)

// StockInsufficientError reports which book cannot cover the requested
// quantity so the UI can offer a corrective action.
type StockInsufficientError struct {
	BookID    string
	Requested int
	Available int
}

func (e *StockInsufficientError) Error() string {
	return fmt.Sprintf("insufficient stock for book %s: requested %d, available %d", e.BookID, e.Requested, e.Available)
}

// InvalidDiscountError reports why a discount code was rejected.
type InvalidDiscountError struct {
	Code   string
	Reason string
}

func (e *InvalidDiscountError) Error() string {
	return fmt.Sprintf("invalid discount code %s: %s", e.Code, e.Reason)
}

// ConfigError marks an operator misconfiguration. It is fatal to the flow
// it occurs in and must be surfaced to operators, not to the buyer.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// ErrPaymentNotConfigured is returned when no admin payee account is
// configured at all; payee resolution cannot fall back to anything.
var ErrPaymentNotConfigured = &ConfigError{Message: "no admin payee account configured"}
