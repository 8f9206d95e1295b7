package model

// PayeeType distinguishes the platform operator's account from a seller's.
type PayeeType string

const (
	PayeeAdmin  PayeeType = "admin"
	PayeeSeller PayeeType = "seller"
)

// RoutingReason records why a payee was chosen for a reservation. The
// resolver evaluates the reasons in this order and the first match wins.
type RoutingReason string

const (
	RoutingDiscountCodeApplied        RoutingReason = "discount_code_applied"
	RoutingBookCreatedByAdmin         RoutingReason = "book_created_by_admin"
	RoutingRegularAuthorPayment       RoutingReason = "regular_author_payment"
	RoutingAuthorAccountNotConfigured RoutingReason = "author_account_not_configured"
)

// PayeeAccount is the resolved payment identity that must receive the funds
// for a reservation. It is a view, not a stored entity: the admin identity
// comes from configuration, seller identities from their payment profiles.
type PayeeAccount struct {
	AccountID     string    `json:"accountId"`
	MerchantName  string    `json:"merchantName"`
	MerchantCity  string    `json:"merchantCity"`
	AcquiringBank string    `json:"acquiringBank"`
	Type          PayeeType `json:"type"`
	Verified      bool      `json:"verified"`
}

// SellerPaymentProfile is a seller's registered payment identity. Only
// verified profiles are eligible to receive funds directly.
type SellerPaymentProfile struct {
	UserID        string `db:"user_id"`
	AccountID     string `db:"account_id"`
	MerchantName  string `db:"merchant_name"`
	MerchantCity  string `db:"merchant_city"`
	AcquiringBank string `db:"acquiring_bank"`
	Verified      bool   `db:"verified"`
}
