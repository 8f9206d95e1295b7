package service

import (
	"context"

	"book-checkout/internal/model"
)

// CheckoutService turns an open cart into a priced, time-boxed reservation
// and handles buyer-initiated cancellation.
type CheckoutService interface {
	// CreateReservation validates the cart, stock and discount code,
	// computes the totals and stores the reservation.
	CreateReservation(ctx context.Context, req *model.CreateReservationRequest) (*model.Reservation, error)

	// Cancel deletes the reservation and any QR session. Cancelling an
	// absent reservation is not an error.
	Cancel(ctx context.Context, reservationID, userID string) error
}

// PayeeResolver decides which account receives the funds for a reservation
// and records the business reason for the choice.
type PayeeResolver interface {
	Resolve(ctx context.Context, items []model.ReservationLineItem, discountApplied bool) (*model.PayeeAccount, model.RoutingReason, error)
}

// QRService mints payment descriptors for reservations.
type QRService interface {
	// Mint resolves the payee, asks the gateway for a descriptor and
	// stores the resulting QR session, replacing any previous one.
	Mint(ctx context.Context, reservationID, userID, currency string) (*model.QRSession, error)
}

// SettlementService implements the client-driven polling protocol.
type SettlementService interface {
	// CheckStatus reports the settlement state of a reservation. The
	// attempt counter is supplied by the caller and capped server-side.
	CheckStatus(ctx context.Context, reservationID, userID string, attempt int) (*model.SettlementResult, error)
}

// OrderMaterializer performs the exactly-once transition from a confirmed
// payment to a durable order.
type OrderMaterializer interface {
	Materialize(ctx context.Context, reservationID, gatewayTransactionID string) (*model.Order, error)
}
