package repository

import (
	"context"
	"fmt"

	"book-checkout/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// bookRepository implements BookRepository using PostgreSQL.
type bookRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewBookRepository creates a new PostgreSQL-backed book repository.
func NewBookRepository(pool *pgxpool.Pool, logger zerolog.Logger) BookRepository {
	return &bookRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "book").Logger(),
	}
}

// GetByIDs retrieves multiple books by their IDs.
func (r *bookRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Book, error) {
	if len(ids) == 0 {
		return []model.Book{}, nil
	}

	query := `
		SELECT id, title, price, stock, created_by, created_at
		FROM books
		WHERE id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("id_count", len(ids)).Msg("failed to query books")
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		var book model.Book
		err := rows.Scan(&book.ID, &book.Title, &book.Price, &book.Stock, &book.CreatedBy, &book.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan book row")
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating book rows")
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return books, nil
}

// GetOwner retrieves the owning user and their role for a book.
func (r *bookRepository) GetOwner(ctx context.Context, bookID string) (*model.BookOwner, error) {
	query := `
		SELECT u.id, u.role
		FROM books b
		JOIN users u ON u.id = b.created_by
		WHERE b.id = $1
	`

	var owner model.BookOwner
	err := r.pool.QueryRow(ctx, query, bookID).Scan(&owner.UserID, &owner.Role)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("book_id", bookID).Msg("book owner not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("book_id", bookID).Msg("failed to query book owner")
		return nil, fmt.Errorf("failed to query book owner: %w", err)
	}

	return &owner, nil
}

// DecrementStock atomically decrements stock within the transaction. The
// conditional UPDATE both checks and decrements in one statement, so a
// concurrent decrement can never drive stock negative.
func (r *bookRepository) DecrementStock(ctx context.Context, tx pgx.Tx, bookID string, quantity int) error {
	query := `
		UPDATE books
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
	`

	tag, err := tx.Exec(ctx, query, bookID, quantity)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("book_id", bookID).
			Int("quantity", quantity).
			Msg("failed to decrement stock")
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var available int
		if err := tx.QueryRow(ctx, `SELECT stock FROM books WHERE id = $1`, bookID).Scan(&available); err != nil {
			if err == pgx.ErrNoRows {
				available = 0
			} else {
				return fmt.Errorf("failed to query remaining stock: %w", err)
			}
		}

		r.logger.Warn().
			Str("book_id", bookID).
			Int("requested", quantity).
			Int("available", available).
			Msg("stock insufficient")

		return &model.StockInsufficientError{
			BookID:    bookID,
			Requested: quantity,
			Available: available,
		}
	}

	r.logger.Debug().
		Str("book_id", bookID).
		Int("quantity", quantity).
		Msg("stock decremented")

	return nil
}
