package model

import "time"

// PaymentMethodKHQR is the only payment rail the checkout pipeline supports.
const PaymentMethodKHQR = "khqr"

// Address is a denormalised shipping address snapshot. It is frozen into the
// reservation at checkout time and persisted verbatim on the order, so later
// edits to the buyer's address book never affect an order in flight.
type Address struct {
	RecipientName string `json:"recipientName"`
	Phone         string `json:"phone"`
	Line1         string `json:"line1"`
	Line2         string `json:"line2,omitempty"`
	City          string `json:"city"`
	PostalCode    string `json:"postalCode"`
	Country       string `json:"country"`
}

// ReservationLineItem is a frozen copy of one cart line at the price the
// buyer was quoted. UnitPrice already includes any per-item discount.
type ReservationLineItem struct {
	BookID    string  `json:"bookId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

// Reservation is the ephemeral, pre-payment snapshot of an intended order.
// It lives only in the TTL-bounded cache and acts as the single-use ticket
// for materialisation: once an order is created from it, it is deleted.
//
// Invariant: TotalAmount == Subtotal + ShippingCost + TaxAmount − DiscountAmount,
// with every intermediate value already rounded to 2 decimals.
type Reservation struct {
	ID              string                `json:"id"`
	OwnerUserID     string                `json:"ownerUserId"`
	Subtotal        float64               `json:"subtotal"`
	ShippingCost    float64               `json:"shippingCost"`
	TaxAmount       float64               `json:"taxAmount"`
	DiscountAmount  float64               `json:"discountAmount"`
	TotalAmount     float64               `json:"totalAmount"`
	LineItems       []ReservationLineItem `json:"lineItems"`
	DiscountCodeID  *string               `json:"discountCodeId,omitempty"`
	PaymentMethod   string                `json:"paymentMethod"`
	ShippingAddress Address               `json:"shippingAddress"`
	SourceCartID    string                `json:"sourceCartId"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// QRSession is a minted, time-boxed payment descriptor tied to a reservation.
// It shares the reservation's cache key space and must never outlive it.
type QRSession struct {
	ReservationID  string        `json:"reservationId"`
	Descriptor     string        `json:"descriptor"`
	IntegrityHash  string        `json:"integrityHash"`
	ExpiresAt      time.Time     `json:"expiresAt"`
	Amount         float64       `json:"amount"`
	Currency       string        `json:"currency"`
	PayeeAccountID string        `json:"payeeAccountId"`
	PayeeType      PayeeType     `json:"payeeType"`
	RoutingReason  RoutingReason `json:"routingReason"`
}

// SettlementStatus is the client-visible state of a reservation's payment.
// PENDING is the only non-terminal state.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "PENDING"
	SettlementCompleted SettlementStatus = "COMPLETED"
	SettlementExpired   SettlementStatus = "EXPIRED"
	SettlementFailed    SettlementStatus = "FAILED"
)

// SettlementResult is the outcome of one status check. Order is populated
// only when Status is COMPLETED.
type SettlementResult struct {
	Status SettlementStatus `json:"status"`
	Order  *OrderResponse   `json:"order,omitempty"`
}
