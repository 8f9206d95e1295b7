package service

import (
	"context"
	"fmt"
	"time"

	"book-checkout/internal/cache"
	"book-checkout/internal/model"
	"book-checkout/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderMaterializer implements OrderMaterializer. The reservation is the
// single-use ticket: it is re-fetched on entry and deleted only after the
// commit, and the unique index on orders.reservation_id guarantees that
// two racing invocations can never both commit an order.
type orderMaterializer struct {
	resStore     *cache.ReservationStore
	qrStore      *cache.QRSessionStore
	orderRepo    repository.OrderRepository
	bookRepo     repository.BookRepository
	cartRepo     repository.CartRepository
	discountRepo repository.DiscountRepository
	logger       zerolog.Logger
	now          func() time.Time
}

// NewOrderMaterializer creates a new order materializer.
func NewOrderMaterializer(
	resStore *cache.ReservationStore,
	qrStore *cache.QRSessionStore,
	orderRepo repository.OrderRepository,
	bookRepo repository.BookRepository,
	cartRepo repository.CartRepository,
	discountRepo repository.DiscountRepository,
	logger zerolog.Logger,
) OrderMaterializer {
	return &orderMaterializer{
		resStore:     resStore,
		qrStore:      qrStore,
		orderRepo:    orderRepo,
		bookRepo:     bookRepo,
		cartRepo:     cartRepo,
		discountRepo: discountRepo,
		logger:       logger.With().Str("service", "materializer").Logger(),
		now:          time.Now,
	}
}

// Materialize turns a paid reservation into a durable order in one atomic
// unit: order + items, stock decrements, cart clearing and discount usage
// either all commit or none do. Prices come from the reservation's frozen
// line items, never from the live catalogue.
func (m *orderMaterializer) Materialize(ctx context.Context, reservationID, gatewayTransactionID string) (*model.Order, error) {
	res, err := m.resStore.Get(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil {
		// Already materialised, cancelled or expired; the caller should
		// look the order up by reservation id before assuming failure.
		return nil, model.ErrReservationNotFound
	}

	tx, err := m.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin materialisation: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				m.logger.Error().Err(rbErr).Str("reservation_id", reservationID).Msg("failed to rollback materialisation")
			}
		}
	}()

	order := &model.Order{
		ID:                   uuid.New(),
		ReservationID:        res.ID,
		UserID:               res.OwnerUserID,
		Subtotal:             res.Subtotal,
		ShippingCost:         res.ShippingCost,
		TaxAmount:            res.TaxAmount,
		DiscountAmount:       res.DiscountAmount,
		TotalAmount:          res.TotalAmount,
		Status:               model.OrderStatusPaid,
		PaymentMethod:        res.PaymentMethod,
		PaymentStatus:        model.PaymentStatusCompleted,
		PaymentTransactionID: gatewayTransactionID,
		DiscountCodeID:       res.DiscountCodeID,
		ShippingAddress:      res.ShippingAddress,
		CreatedAt:            m.now().UTC(),
	}

	// Inserting the order first makes the reservation_id unique index the
	// arbiter of the race: a concurrent winner forces ErrAlreadyMaterialised
	// here before any stock is touched.
	if err = m.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, len(res.LineItems))
	for i, line := range res.LineItems {
		items[i] = model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			BookID:    line.BookID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		}
	}

	if err = m.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		return nil, err
	}

	// A shortfall here means payment was captured for stock that is gone.
	// The whole unit rolls back and the reservation stays put so remediation
	// (refund or manual fulfilment) is a human decision.
	for _, line := range res.LineItems {
		if err = m.bookRepo.DecrementStock(ctx, tx, line.BookID, line.Quantity); err != nil {
			return nil, err
		}
	}

	if err = m.cartRepo.ClearItems(ctx, tx, res.SourceCartID); err != nil {
		return nil, err
	}

	if res.DiscountCodeID != nil {
		usage := &model.DiscountCodeUsage{
			ID:             uuid.New(),
			DiscountCodeID: *res.DiscountCodeID,
			OrderID:        order.ID,
			UserID:         res.OwnerUserID,
			CreatedAt:      m.now().UTC(),
		}
		if err = m.discountRepo.RecordUsage(ctx, tx, usage); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit materialisation: %w", err)
	}

	// The order is durable from here on. Consuming the ticket can only be
	// best-effort; a leftover reservation is cleaned up by TTL or by the
	// next poll observing the existing order.
	if delErr := m.resStore.Delete(ctx, reservationID); delErr != nil {
		m.logger.Warn().Err(delErr).Str("reservation_id", reservationID).Msg("failed to evict reservation after commit")
	}
	if delErr := m.qrStore.Delete(ctx, reservationID); delErr != nil {
		m.logger.Warn().Err(delErr).Str("reservation_id", reservationID).Msg("failed to evict qr session after commit")
	}

	m.logger.Info().
		Str("order_id", order.ID.String()).
		Str("reservation_id", reservationID).
		Str("payment_transaction_id", gatewayTransactionID).
		Float64("total_amount", order.TotalAmount).
		Msg("order materialised")

	return order, nil
}
