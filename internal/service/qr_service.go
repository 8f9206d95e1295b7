package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"book-checkout/internal/cache"
	"book-checkout/internal/gateway"
	"book-checkout/internal/model"

	"github.com/rs/zerolog"
)

// qrService implements QRService.
type qrService struct {
	resStore *cache.ReservationStore
	qrStore  *cache.QRSessionStore
	resolver PayeeResolver
	gw       gateway.Gateway
	qrTTL    time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewQRService creates a new QR session manager.
func NewQRService(
	resStore *cache.ReservationStore,
	qrStore *cache.QRSessionStore,
	resolver PayeeResolver,
	gw gateway.Gateway,
	qrTTL time.Duration,
	logger zerolog.Logger,
) QRService {
	return &qrService{
		resStore: resStore,
		qrStore:  qrStore,
		resolver: resolver,
		gw:       gw,
		qrTTL:    qrTTL,
		logger:   logger.With().Str("service", "qr").Logger(),
		now:      time.Now,
	}
}

// Mint resolves the payee, asks the gateway for a descriptor and stores the
// QR session. On gateway failure no session is stored, so a retry
// re-attempts minting instead of resuming a broken session. A successful
// re-mint overwrites the previous session entirely.
func (s *qrService) Mint(ctx context.Context, reservationID, userID, currency string) (*model.QRSession, error) {
	res, err := s.resStore.Get(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil || res.OwnerUserID != userID {
		return nil, model.ErrReservationNotFound
	}

	payee, reason, err := s.resolver.Resolve(ctx, res.LineItems, res.DiscountAmount > 0)
	if err != nil {
		return nil, err
	}

	result, err := s.gw.MintQR(ctx, gateway.MintRequest{
		Amount:        res.TotalAmount,
		Currency:      currency,
		BillReference: BillReference(reservationID),
		Payee:         *payee,
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("reservation_id", reservationID).
			Str("payee_account_id", payee.AccountID).
			Msg("gateway refused to mint descriptor")
		return nil, fmt.Errorf("unable to create payment QR: %w", err)
	}

	session := &model.QRSession{
		ReservationID:  reservationID,
		Descriptor:     result.Descriptor,
		IntegrityHash:  result.IntegrityHash,
		ExpiresAt:      s.now().UTC().Add(s.qrTTL),
		Amount:         res.TotalAmount,
		Currency:       currency,
		PayeeAccountID: payee.AccountID,
		PayeeType:      payee.Type,
		RoutingReason:  reason,
	}

	if err := s.qrStore.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store qr session: %w", err)
	}

	s.logger.Info().
		Str("reservation_id", reservationID).
		Str("payee_account_id", payee.AccountID).
		Str("routing_reason", string(reason)).
		Float64("amount", session.Amount).
		Time("expires_at", session.ExpiresAt).
		Msg("qr session minted")

	return session, nil
}

// BillReference derives the gateway bill reference from a reservation id.
// It is deterministic, so re-minting for the same reservation presents the
// same reference and the gateway treats it as the same bill.
func BillReference(reservationID string) string {
	sum := sha256.Sum256([]byte(reservationID))
	return "BK" + strings.ToUpper(hex.EncodeToString(sum[:6]))
}
