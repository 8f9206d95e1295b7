package repository

import (
	"context"
	"fmt"

	"book-checkout/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// payeeRepository implements PayeeRepository using PostgreSQL.
type payeeRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPayeeRepository creates a new PostgreSQL-backed payee repository.
func NewPayeeRepository(pool *pgxpool.Pool, logger zerolog.Logger) PayeeRepository {
	return &payeeRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payee").Logger(),
	}
}

// GetSellerProfile retrieves a seller's payment profile.
func (r *payeeRepository) GetSellerProfile(ctx context.Context, userID string) (*model.SellerPaymentProfile, error) {
	query := `
		SELECT user_id, account_id, merchant_name, merchant_city, acquiring_bank, verified
		FROM seller_payment_profiles
		WHERE user_id = $1
	`

	var profile model.SellerPaymentProfile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.AccountID,
		&profile.MerchantName,
		&profile.MerchantCity,
		&profile.AcquiringBank,
		&profile.Verified,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("user_id", userID).Msg("seller payment profile not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID).Msg("failed to query seller payment profile")
		return nil, fmt.Errorf("failed to query seller payment profile: %w", err)
	}

	return &profile, nil
}
