package model

import (
	"time"

	"github.com/google/uuid"
)

// DiscountCode is a percentage promotion funded by the platform. MaxUses and
// PerUserLimit of zero mean unlimited.
type DiscountCode struct {
	ID             string    `json:"id" db:"id"`
	Code           string    `json:"code" db:"code"`
	Percent        float64   `json:"percent" db:"percent"`
	MinOrderAmount float64   `json:"minOrderAmount" db:"min_order_amount"`
	MaxUses        int       `json:"maxUses" db:"max_uses"`
	PerUserLimit   int       `json:"perUserLimit" db:"per_user_limit"`
	UsedCount      int       `json:"usedCount" db:"used_count"`
	Active         bool      `json:"active" db:"active"`
	StartsAt       time.Time `json:"startsAt" db:"starts_at"`
	ExpiresAt      time.Time `json:"expiresAt" db:"expires_at"`
}

// DiscountCodeUsage records one application of a code to an order. The row
// and the code's used_count increment are written in the same transaction
// as the order itself.
type DiscountCodeUsage struct {
	ID             uuid.UUID `db:"id"`
	DiscountCodeID string    `db:"discount_code_id"`
	OrderID        uuid.UUID `db:"order_id"`
	UserID         string    `db:"user_id"`
	CreatedAt      time.Time `db:"created_at"`
}
