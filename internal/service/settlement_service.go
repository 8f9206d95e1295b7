package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"book-checkout/internal/cache"
	"book-checkout/internal/gateway"
	"book-checkout/internal/model"
	"book-checkout/internal/repository"

	"github.com/rs/zerolog"
)

// settlementService implements the client-driven polling protocol. Each
// check is side-effect-free except for the PENDING→COMPLETED transition,
// which delegates its idempotency to the materializer.
type settlementService struct {
	resStore     *cache.ReservationStore
	qrStore      *cache.QRSessionStore
	orderRepo    repository.OrderRepository
	gw           gateway.Gateway
	materializer OrderMaterializer
	maxAttempts  int
	logger       zerolog.Logger
	now          func() time.Time
}

// NewSettlementService creates a new settlement service. maxAttempts caps
// the caller-supplied attempt counter and provides a soft timeout ceiling
// independent of the QR session's own expiry; whichever triggers first wins.
func NewSettlementService(
	resStore *cache.ReservationStore,
	qrStore *cache.QRSessionStore,
	orderRepo repository.OrderRepository,
	gw gateway.Gateway,
	materializer OrderMaterializer,
	maxAttempts int,
	logger zerolog.Logger,
) SettlementService {
	return &settlementService{
		resStore:     resStore,
		qrStore:      qrStore,
		orderRepo:    orderRepo,
		gw:           gw,
		materializer: materializer,
		maxAttempts:  maxAttempts,
		logger:       logger.With().Str("service", "settlement").Logger(),
		now:          time.Now,
	}
}

// CheckStatus reports the settlement state of a reservation and, on the
// first observed completion, materialises the order synchronously.
func (s *settlementService) CheckStatus(ctx context.Context, reservationID, userID string, attempt int) (*model.SettlementResult, error) {
	// A reservation that already produced an order is COMPLETED regardless
	// of what remains in the cache; late and repeated pollers land here.
	existing, err := s.orderRepo.GetByReservationID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing order: %w", err)
	}
	if existing != nil {
		if existing.UserID != userID {
			return nil, model.ErrReservationNotFound
		}
		return s.completed(ctx, existing)
	}

	res, err := s.resStore.Get(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}

	qr, err := s.qrStore.Get(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load qr session: %w", err)
	}

	if res == nil {
		if qr != nil {
			// A session pointing at a vanished reservation is corrupt state
			// outside the normal expiry path. The buyer sees a plain
			// expiry; the log line is what operators diagnose from.
			s.logger.Error().
				Str("reservation_id", reservationID).
				Str("integrity_hash", qr.IntegrityHash).
				Msg("qr session references missing reservation, evicting")
			if delErr := s.qrStore.Delete(ctx, reservationID); delErr != nil {
				s.logger.Warn().Err(delErr).Str("reservation_id", reservationID).Msg("failed to evict orphaned qr session")
			}
		}
		return &model.SettlementResult{Status: model.SettlementExpired}, nil
	}

	if res.OwnerUserID != userID {
		return nil, model.ErrReservationNotFound
	}

	if attempt > s.maxAttempts {
		s.logger.Info().
			Str("reservation_id", reservationID).
			Int("attempt", attempt).
			Msg("poll attempt cap reached, expiring reservation")
		s.evict(ctx, reservationID)
		return &model.SettlementResult{Status: model.SettlementExpired}, nil
	}

	if qr == nil {
		// Session expired out of the cache before any completion was seen.
		s.evict(ctx, reservationID)
		return &model.SettlementResult{Status: model.SettlementExpired}, nil
	}

	// Closed interval on the expired side: at the exact expiry instant the
	// session is already expired.
	if !s.now().Before(qr.ExpiresAt) {
		s.evict(ctx, reservationID)
		return &model.SettlementResult{Status: model.SettlementExpired}, nil
	}

	tx, err := s.gw.LookupByHash(ctx, qr.IntegrityHash)
	if err != nil {
		// Gateway outages are transient; the caller retries with the same
		// reservation id rather than the state machine going terminal.
		return nil, fmt.Errorf("gateway status check failed: %w", err)
	}

	if tx == nil || tx.Status != gateway.TxStatusCompleted {
		return &model.SettlementResult{Status: model.SettlementPending}, nil
	}

	order, err := s.materializer.Materialize(ctx, reservationID, tx.TransactionID)
	if err != nil {
		return s.resolveMaterializeFailure(ctx, reservationID, err)
	}

	return s.completed(ctx, order)
}

// resolveMaterializeFailure maps a failed materialisation onto the protocol.
func (s *settlementService) resolveMaterializeFailure(ctx context.Context, reservationID string, err error) (*model.SettlementResult, error) {
	// A concurrent poller may have consumed the reservation first; the
	// order it created is this reservation's outcome.
	if errors.Is(err, model.ErrReservationNotFound) || errors.Is(err, model.ErrAlreadyMaterialised) {
		order, lookupErr := s.orderRepo.GetByReservationID(ctx, reservationID)
		if lookupErr != nil {
			return nil, fmt.Errorf("failed to look up order after materialise race: %w", lookupErr)
		}
		if order != nil {
			return s.completed(ctx, order)
		}
		return &model.SettlementResult{Status: model.SettlementExpired}, nil
	}

	var stockErr *model.StockInsufficientError
	if errors.As(err, &stockErr) {
		// Payment captured but stock is gone. The reservation stays intact
		// and remediation is a human decision; the buyer sees FAILED.
		s.logger.Error().
			Str("reservation_id", reservationID).
			Str("book_id", stockErr.BookID).
			Int("requested", stockErr.Requested).
			Int("available", stockErr.Available).
			Msg("payment captured but stock insufficient at materialisation")
		return &model.SettlementResult{Status: model.SettlementFailed}, nil
	}

	return nil, err
}

// completed assembles the COMPLETED result with the order's items.
func (s *settlementService) completed(ctx context.Context, order *model.Order) (*model.SettlementResult, error) {
	full, items, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	if full == nil {
		full = order
	}

	return &model.SettlementResult{
		Status: model.SettlementCompleted,
		Order:  &model.OrderResponse{Order: full, Items: items},
	}, nil
}

// evict removes the reservation and its QR session on a terminal expiry.
func (s *settlementService) evict(ctx context.Context, reservationID string) {
	if err := s.resStore.Delete(ctx, reservationID); err != nil {
		s.logger.Warn().Err(err).Str("reservation_id", reservationID).Msg("failed to evict reservation")
	}
	if err := s.qrStore.Delete(ctx, reservationID); err != nil {
		s.logger.Warn().Err(err).Str("reservation_id", reservationID).Msg("failed to evict qr session")
	}
}
