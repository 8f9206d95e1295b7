package repository

import (
	"context"
	"fmt"

	"book-checkout/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements CartRepository using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// GetCart retrieves an open cart owned by the user along with its items.
// The owner constraint lives in the query so a cart id alone never grants
// access to someone else's cart.
func (r *cartRepository) GetCart(ctx context.Context, cartID, userID string) (*model.Cart, []model.CartItem, error) {
	cartQuery := `
		SELECT id, user_id, status
		FROM carts
		WHERE id = $1 AND user_id = $2 AND status = 'open'
	`

	var cart model.Cart
	err := r.pool.QueryRow(ctx, cartQuery, cartID, userID).Scan(&cart.ID, &cart.UserID, &cart.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("cart_id", cartID).Str("user_id", userID).Msg("cart not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("cart_id", cartID).Msg("failed to query cart")
		return nil, nil, fmt.Errorf("failed to query cart: %w", err)
	}

	itemsQuery := `
		SELECT cart_id, book_id, quantity
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at
	`

	rows, err := r.pool.Query(ctx, itemsQuery, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID).Msg("failed to query cart items")
		return nil, nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.CartID, &item.BookID, &item.Quantity); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return nil, nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart item rows")
		return nil, nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return &cart, items, nil
}

// ClearItems removes all items from the cart within the transaction.
func (r *cartRepository) ClearItems(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID).Msg("failed to clear cart items")
		return fmt.Errorf("failed to clear cart items: %w", err)
	}

	r.logger.Debug().Str("cart_id", cartID).Msg("cart items cleared")
	return nil
}
