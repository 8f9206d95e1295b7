package model

import "time"

// User roles relevant to payee routing.
const (
	RoleAdmin  = "admin"
	RoleAuthor = "author"
)

// Book is the slice of the catalogue the pipeline needs: price for quoting,
// stock for the availability checks, and the owning user for payee routing.
type Book struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Price     float64   `json:"price" db:"price"`
	Stock     int       `json:"stock" db:"stock"`
	CreatedBy string    `json:"createdBy" db:"created_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// BookOwner identifies who a book's revenue belongs to.
type BookOwner struct {
	UserID string `db:"user_id"`
	Role   string `db:"role"`
}

// Cart is the buyer's open cart. Only open carts can be checked out; the
// materialiser empties the cart once the order is durable.
type Cart struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"userId" db:"user_id"`
	Status string `json:"status" db:"status"`
}

// CartItem is one line of a cart.
type CartItem struct {
	CartID   string `json:"cartId" db:"cart_id"`
	BookID   string `json:"bookId" db:"book_id"`
	Quantity int    `json:"quantity" db:"quantity"`
}
