package repository

import (
	"context"
	"errors"
	"fmt"

	"book-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction. The
// unique index on reservation_id is the database-level backstop for
// exactly-once materialisation: the losing writer of a race gets
// model.ErrAlreadyMaterialised instead of a second order.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, reservation_id, user_id, subtotal, shipping_cost, tax_amount,
			discount_amount, total_amount, status, payment_method, payment_status,
			payment_transaction_id, discount_code_id, shipping_address, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.ReservationID,
		order.UserID,
		order.Subtotal,
		order.ShippingCost,
		order.TaxAmount,
		order.DiscountAmount,
		order.TotalAmount,
		order.Status,
		order.PaymentMethod,
		order.PaymentStatus,
		order.PaymentTransactionID,
		order.DiscountCodeID,
		order.ShippingAddress,
		order.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.logger.Debug().
				Str("reservation_id", order.ReservationID).
				Msg("order already exists for reservation")
			return model.ErrAlreadyMaterialised
		}

		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("reservation_id", order.ReservationID).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("reservation_id", order.ReservationID).
		Msg("order created")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, book_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.BookID, item.Quantity, item.UnitPrice, item.LineTotal)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("book_id", items[i].BookID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	orderQuery := `
		SELECT id, reservation_id, user_id, subtotal, shipping_cost, tax_amount,
		       discount_amount, total_amount, status, payment_method, payment_status,
		       payment_transaction_id, discount_code_id, shipping_address, created_at
		FROM orders
		WHERE id = $1
	`

	var order model.Order
	err := r.pool.QueryRow(ctx, orderQuery, id).Scan(
		&order.ID,
		&order.ReservationID,
		&order.UserID,
		&order.Subtotal,
		&order.ShippingCost,
		&order.TaxAmount,
		&order.DiscountAmount,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.PaymentTransactionID,
		&order.DiscountCodeID,
		&order.ShippingAddress,
		&order.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.getItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return &order, items, nil
}

// GetByReservationID retrieves the order materialised from a reservation.
// Late pollers use this to resolve COMPLETED after the reservation itself
// has been consumed.
func (r *orderRepository) GetByReservationID(ctx context.Context, reservationID string) (*model.Order, error) {
	query := `
		SELECT id, reservation_id, user_id, subtotal, shipping_cost, tax_amount,
		       discount_amount, total_amount, status, payment_method, payment_status,
		       payment_transaction_id, discount_code_id, shipping_address, created_at
		FROM orders
		WHERE reservation_id = $1
	`

	var order model.Order
	err := r.pool.QueryRow(ctx, query, reservationID).Scan(
		&order.ID,
		&order.ReservationID,
		&order.UserID,
		&order.Subtotal,
		&order.ShippingCost,
		&order.TaxAmount,
		&order.DiscountAmount,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.PaymentTransactionID,
		&order.DiscountCodeID,
		&order.ShippingAddress,
		&order.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("reservation_id", reservationID).Msg("failed to query order by reservation")
		return nil, fmt.Errorf("failed to query order by reservation: %w", err)
	}

	return &order, nil
}

// getItems loads the items for an order.
func (r *orderRepository) getItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, book_id, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.BookID, &item.Quantity, &item.UnitPrice, &item.LineTotal)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}
