package service

import (
	"context"
	"fmt"

	"book-checkout/internal/config"
	"book-checkout/internal/gateway"
	"book-checkout/internal/model"
	"book-checkout/internal/repository"

	"github.com/rs/zerolog"
)

// payeeResolver implements PayeeResolver. Routing is evaluated in a fixed
// order and the first rule that matches wins; for multi-seller carts only
// the first line item's owner is consulted, a deliberate single-payee
// simplification of the surrounding business process.
type payeeResolver struct {
	bookRepo  repository.BookRepository
	payeeRepo repository.PayeeRepository
	gw        gateway.Gateway
	admin     model.PayeeAccount
	logger    zerolog.Logger
}

// NewPayeeResolver creates a payee resolver. The admin identity comes from
// configuration; an empty account id means the platform payee is not
// configured and resolution will fail with a configuration error whenever
// the admin account is needed.
func NewPayeeResolver(
	bookRepo repository.BookRepository,
	payeeRepo repository.PayeeRepository,
	gw gateway.Gateway,
	payeeCfg config.PayeeConfig,
	logger zerolog.Logger,
) PayeeResolver {
	return &payeeResolver{
		bookRepo:  bookRepo,
		payeeRepo: payeeRepo,
		gw:        gw,
		admin: model.PayeeAccount{
			AccountID:     payeeCfg.AdminAccountID,
			MerchantName:  payeeCfg.AdminMerchantName,
			MerchantCity:  payeeCfg.AdminMerchantCity,
			AcquiringBank: payeeCfg.AdminAcquiringBank,
			Type:          model.PayeeAdmin,
			Verified:      true,
		},
		logger: logger.With().Str("service", "payee-resolver").Logger(),
	}
}

// Resolve picks the payee account for a reservation's line items.
func (r *payeeResolver) Resolve(ctx context.Context, items []model.ReservationLineItem, discountApplied bool) (*model.PayeeAccount, model.RoutingReason, error) {
	if len(items) == 0 {
		return nil, "", fmt.Errorf("cannot resolve payee for empty line items")
	}

	// Discounts are platform-funded promotions; the platform collects and
	// settles with the seller out of band.
	if discountApplied {
		return r.adminAccount(model.RoutingDiscountCodeApplied)
	}

	owner, err := r.bookRepo.GetOwner(ctx, items[0].BookID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve book owner: %w", err)
	}
	if owner == nil {
		return nil, "", fmt.Errorf("book %s has no owner", items[0].BookID)
	}

	if owner.Role == model.RoleAdmin {
		return r.adminAccount(model.RoutingBookCreatedByAdmin)
	}

	profile, err := r.payeeRepo.GetSellerProfile(ctx, owner.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load seller payment profile: %w", err)
	}

	if profile != nil && profile.Verified {
		exists, err := r.gw.AccountExists(ctx, profile.AccountID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to verify seller account at gateway: %w", err)
		}

		if exists {
			return &model.PayeeAccount{
				AccountID:     profile.AccountID,
				MerchantName:  profile.MerchantName,
				MerchantCity:  profile.MerchantCity,
				AcquiringBank: profile.AcquiringBank,
				Type:          model.PayeeSeller,
				Verified:      true,
			}, model.RoutingRegularAuthorPayment, nil
		}

		r.logger.Warn().
			Str("user_id", owner.UserID).
			Str("account_id", profile.AccountID).
			Msg("verified seller account unknown to gateway, falling back to admin payee")
	}

	// Payment still succeeds via the admin account; payout to the seller
	// becomes a manual back-office step.
	return r.adminAccount(model.RoutingAuthorAccountNotConfigured)
}

// adminAccount returns the platform payee, or a configuration error when
// none is configured. Resolution must never silently pick an arbitrary
// account.
func (r *payeeResolver) adminAccount(reason model.RoutingReason) (*model.PayeeAccount, model.RoutingReason, error) {
	if r.admin.AccountID == "" {
		r.logger.Error().
			Str("routing_reason", string(reason)).
			Msg("admin payee account required but not configured")
		return nil, "", model.ErrPaymentNotConfigured
	}

	admin := r.admin
	return &admin, reason, nil
}
