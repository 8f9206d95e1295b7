package model

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses produced by the checkout pipeline. "paid" is the only
// terminal success state materialisation creates; fulfilment states belong
// to other parts of the system.
const (
	OrderStatusPaid        = "paid"
	PaymentStatusCompleted = "completed"
)

// Order is the durable record created exactly once per successfully paid
// reservation. Money fields are mirrored from the reservation, never
// recomputed from live catalogue prices.
type Order struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	ReservationID        string    `json:"reservationId" db:"reservation_id"`
	UserID               string    `json:"userId" db:"user_id"`
	Subtotal             float64   `json:"subtotal" db:"subtotal"`
	ShippingCost         float64   `json:"shippingCost" db:"shipping_cost"`
	TaxAmount            float64   `json:"taxAmount" db:"tax_amount"`
	DiscountAmount       float64   `json:"discountAmount" db:"discount_amount"`
	TotalAmount          float64   `json:"totalAmount" db:"total_amount"`
	Status               string    `json:"status" db:"status"`
	PaymentMethod        string    `json:"paymentMethod" db:"payment_method"`
	PaymentStatus        string    `json:"paymentStatus" db:"payment_status"`
	PaymentTransactionID string    `json:"paymentTransactionId" db:"payment_transaction_id"`
	DiscountCodeID       *string   `json:"discountCodeId,omitempty" db:"discount_code_id"`
	ShippingAddress      Address   `json:"shippingAddress" db:"shipping_address"`
	CreatedAt            time.Time `json:"createdAt" db:"created_at"`
}

// OrderItem is a frozen line item, independent of later catalogue changes.
type OrderItem struct {
	ID        uuid.UUID `json:"-" db:"id"`
	OrderID   uuid.UUID `json:"-" db:"order_id"`
	BookID    string    `json:"bookId" db:"book_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UnitPrice float64   `json:"unitPrice" db:"unit_price"`
	LineTotal float64   `json:"lineTotal" db:"line_total"`
}

// OrderResponse is the client-facing view of an order with its items.
type OrderResponse struct {
	Order *Order      `json:"order"`
	Items []OrderItem `json:"items"`
}

// CreateReservationRequest is the payload for submitting a checkout.
// UserID is injected from the authenticated request context, never trusted
// from the body.
type CreateReservationRequest struct {
	UserID          string  `json:"-"`
	CartID          string  `json:"cartId"`
	PaymentMethod   string  `json:"paymentMethod"`
	DiscountCode    *string `json:"discountCode,omitempty"`
	ShippingAddress Address `json:"shippingAddress"`
}

// MintQRRequest is the payload for minting a payment descriptor.
type MintQRRequest struct {
	Currency string `json:"currency"`
}
