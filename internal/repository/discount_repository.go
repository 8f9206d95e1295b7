package repository

import (
	"context"
	"fmt"

	"book-checkout/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// discountRepository implements DiscountRepository using PostgreSQL.
type discountRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDiscountRepository creates a new PostgreSQL-backed discount repository.
func NewDiscountRepository(pool *pgxpool.Pool, logger zerolog.Logger) DiscountRepository {
	return &discountRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "discount").Logger(),
	}
}

// GetByCode retrieves a discount code by its public code string.
func (r *discountRepository) GetByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	query := `
		SELECT id, code, percent, min_order_amount, max_uses, per_user_limit,
		       used_count, active, starts_at, expires_at
		FROM discount_codes
		WHERE code = $1
	`

	var dc model.DiscountCode
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&dc.ID,
		&dc.Code,
		&dc.Percent,
		&dc.MinOrderAmount,
		&dc.MaxUses,
		&dc.PerUserLimit,
		&dc.UsedCount,
		&dc.Active,
		&dc.StartsAt,
		&dc.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("code", code).Msg("discount code not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query discount code")
		return nil, fmt.Errorf("failed to query discount code: %w", err)
	}

	return &dc, nil
}

// CountUsageByUser returns how many times the user has applied the code.
func (r *discountRepository) CountUsageByUser(ctx context.Context, discountCodeID, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM discount_code_usages
		WHERE discount_code_id = $1 AND user_id = $2
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, discountCodeID, userID).Scan(&count); err != nil {
		r.logger.Error().
			Err(err).
			Str("discount_code_id", discountCodeID).
			Str("user_id", userID).
			Msg("failed to count discount usage")
		return 0, fmt.Errorf("failed to count discount usage: %w", err)
	}

	return count, nil
}

// RecordUsage inserts a usage row and increments the code's used_count
// within the transaction, so the ledger can never drift from the orders it
// belongs to.
func (r *discountRepository) RecordUsage(ctx context.Context, tx pgx.Tx, usage *model.DiscountCodeUsage) error {
	insert := `
		INSERT INTO discount_code_usages (id, discount_code_id, order_id, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.Exec(ctx, insert, usage.ID, usage.DiscountCodeID, usage.OrderID, usage.UserID, usage.CreatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("discount_code_id", usage.DiscountCodeID).
			Str("order_id", usage.OrderID.String()).
			Msg("failed to record discount usage")
		return fmt.Errorf("failed to record discount usage: %w", err)
	}

	increment := `
		UPDATE discount_codes
		SET used_count = used_count + 1
		WHERE id = $1
	`

	if _, err := tx.Exec(ctx, increment, usage.DiscountCodeID); err != nil {
		r.logger.Error().
			Err(err).
			Str("discount_code_id", usage.DiscountCodeID).
			Msg("failed to increment discount used_count")
		return fmt.Errorf("failed to increment discount used_count: %w", err)
	}

	r.logger.Debug().
		Str("discount_code_id", usage.DiscountCodeID).
		Str("order_id", usage.OrderID.String()).
		Msg("discount usage recorded")

	return nil
}
