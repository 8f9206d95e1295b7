// Package gateway is the client for the external QR payment rail. The
// gateway is consumed call/response only: the pipeline mints descriptors
// and polls transaction state, it never receives pushes.
package gateway

import (
	"context"
	"fmt"

	"book-checkout/internal/model"
)

// TxStatusCompleted is the gateway's marker for a settled transaction.
const TxStatusCompleted = "COMPLETED"

// MintRequest carries everything the gateway needs to mint a descriptor.
// The payee travels inside the request; per-request payee switching must
// never go through shared configuration.
type MintRequest struct {
	Amount        float64
	Currency      string
	BillReference string
	Payee         model.PayeeAccount
}

// MintResult is a freshly minted payment descriptor. IntegrityHash is the
// stable fingerprint used to look the transaction up later.
type MintResult struct {
	Descriptor    string
	IntegrityHash string
}

// Transaction is the gateway's view of a payment.
type Transaction struct {
	TransactionID string
	Status        string
	Amount        float64
	Currency      string
}

// Gateway is the payment rail contract. Lookup returns (nil, nil) when no
// transaction exists yet for the hash; that is the normal pending case, not
// an error.
type Gateway interface {
	MintQR(ctx context.Context, req MintRequest) (*MintResult, error)
	LookupByHash(ctx context.Context, integrityHash string) (*Transaction, error)
	AccountExists(ctx context.Context, accountID string) (bool, error)
}

// Error is a failure reported by or while reaching the gateway. These are
// transient from the pipeline's point of view: minting and status checks
// are idempotent, so the caller may simply retry.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("payment gateway error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("payment gateway unreachable: %s", e.Message)
}
