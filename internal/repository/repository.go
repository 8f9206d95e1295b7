package repository

import (
	"context"

	"book-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BookRepository defines the catalogue access the pipeline needs: pricing
// and stock for quoting, ownership for payee routing, and the conditional
// stock decrement used during materialisation.
type BookRepository interface {
	// GetByIDs retrieves multiple books by their IDs.
	GetByIDs(ctx context.Context, ids []string) ([]model.Book, error)

	// GetOwner retrieves the owning user and their role for a book.
	// Returns (nil, nil) if the book does not exist.
	GetOwner(ctx context.Context, bookID string) (*model.BookOwner, error)

	// DecrementStock atomically decrements stock within the transaction,
	// failing with *model.StockInsufficientError when the remaining stock
	// cannot cover the quantity.
	DecrementStock(ctx context.Context, tx pgx.Tx, bookID string, quantity int) error
}

// CartRepository defines access to the buyer's cart.
type CartRepository interface {
	// GetCart retrieves a cart owned by the user along with its items.
	// Returns (nil, nil, nil) if no such cart exists.
	GetCart(ctx context.Context, cartID, userID string) (*model.Cart, []model.CartItem, error)

	// ClearItems removes all items from the cart within the transaction.
	ClearItems(ctx context.Context, tx pgx.Tx, cartID string) error
}

// DiscountRepository defines access to discount codes and their usage ledger.
type DiscountRepository interface {
	// GetByCode retrieves a discount code by its public code string.
	// Returns (nil, nil) if the code does not exist.
	GetByCode(ctx context.Context, code string) (*model.DiscountCode, error)

	// CountUsageByUser returns how many times the user has applied the code.
	CountUsageByUser(ctx context.Context, discountCodeID, userID string) (int, error)

	// RecordUsage inserts a usage row and increments the code's used_count
	// within the transaction.
	RecordUsage(ctx context.Context, tx pgx.Tx, usage *model.DiscountCodeUsage) error
}

// OrderRepository defines the interface for durable order storage. Orders
// are only ever written inside the materialisation transaction.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	// A reservation that already produced an order fails with
	// model.ErrAlreadyMaterialised.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetByReservationID retrieves the order materialised from a
	// reservation, or (nil, nil) if none exists.
	GetByReservationID(ctx context.Context, reservationID string) (*model.Order, error)
}

// PayeeRepository defines access to seller payment identities.
type PayeeRepository interface {
	// GetSellerProfile retrieves a seller's payment profile, or (nil, nil)
	// if the seller has none configured.
	GetSellerProfile(ctx context.Context, userID string) (*model.SellerPaymentProfile, error)
}
