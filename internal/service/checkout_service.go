package service

import (
	"context"
	"fmt"
	"time"

	"book-checkout/internal/cache"
	"book-checkout/internal/model"
	"book-checkout/internal/money"
	"book-checkout/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// checkoutService implements CheckoutService.
type checkoutService struct {
	resStore     *cache.ReservationStore
	qrStore      *cache.QRSessionStore
	bookRepo     repository.BookRepository
	cartRepo     repository.CartRepository
	discountRepo repository.DiscountRepository
	logger       zerolog.Logger
	now          func() time.Time
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	resStore *cache.ReservationStore,
	qrStore *cache.QRSessionStore,
	bookRepo repository.BookRepository,
	cartRepo repository.CartRepository,
	discountRepo repository.DiscountRepository,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		resStore:     resStore,
		qrStore:      qrStore,
		bookRepo:     bookRepo,
		cartRepo:     cartRepo,
		discountRepo: discountRepo,
		logger:       logger.With().Str("service", "checkout").Logger(),
		now:          time.Now,
	}
}

// CreateReservation validates the cart, stock and discount code, prices the
// cart against the live catalogue and freezes the result into a reservation.
func (s *checkoutService) CreateReservation(ctx context.Context, req *model.CreateReservationRequest) (*model.Reservation, error) {
	if req == nil {
		return nil, fmt.Errorf("reservation request is nil")
	}

	if req.PaymentMethod != model.PaymentMethodKHQR {
		return nil, model.NewDomainError(model.ErrCodeUnsupportedPayment,
			fmt.Sprintf("unsupported payment method: %s", req.PaymentMethod))
	}

	cart, cartItems, err := s.cartRepo.GetCart(ctx, req.CartID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart == nil || len(cartItems) == 0 {
		s.logger.Warn().
			Str("cart_id", req.CartID).
			Str("user_id", req.UserID).
			Msg("checkout submitted for empty or missing cart")
		return nil, model.ErrCartEmpty
	}

	bookIDs := make([]string, len(cartItems))
	for i, item := range cartItems {
		bookIDs[i] = item.BookID
	}

	books, err := s.bookRepo.GetByIDs(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load books: %w", err)
	}

	booksByID := make(map[string]model.Book, len(books))
	for _, book := range books {
		booksByID[book.ID] = book
	}

	// Fast stock check before any money is requested; the authoritative
	// check is the conditional decrement at materialisation.
	for _, item := range cartItems {
		book, ok := booksByID[item.BookID]
		if !ok {
			return nil, model.NewDomainError(model.ErrCodeBookNotFound,
				fmt.Sprintf("cart references unknown book %s", item.BookID))
		}
		if book.Stock < item.Quantity {
			return nil, &model.StockInsufficientError{
				BookID:    item.BookID,
				Requested: item.Quantity,
				Available: book.Stock,
			}
		}
	}

	// Undiscounted subtotal, rounded at every step.
	subtotal := 0.0
	for _, item := range cartItems {
		lineTotal := money.MulQty(booksByID[item.BookID].Price, item.Quantity)
		subtotal = money.Add(subtotal, lineTotal)
	}

	var discountCode *model.DiscountCode
	if req.DiscountCode != nil && *req.DiscountCode != "" {
		discountCode, err = s.validateDiscount(ctx, *req.DiscountCode, req.UserID, subtotal)
		if err != nil {
			return nil, err
		}
	}

	// Per-item discounted prices; line totals from the rounded unit price.
	lineItems := make([]model.ReservationLineItem, len(cartItems))
	discountedTotal := 0.0
	for i, item := range cartItems {
		unit := booksByID[item.BookID].Price
		if discountCode != nil {
			unit = money.ApplyPercentDiscount(unit, discountCode.Percent)
		} else {
			unit = money.Round(unit)
		}

		lineTotal := money.MulQty(unit, item.Quantity)
		lineItems[i] = model.ReservationLineItem{
			BookID:    item.BookID,
			Quantity:  item.Quantity,
			UnitPrice: unit,
			LineTotal: lineTotal,
		}
		discountedTotal = money.Add(discountedTotal, lineTotal)
	}

	discountAmount := money.Sub(subtotal, discountedTotal)

	const shippingCost, taxAmount = 0.0, 0.0
	total := money.Sub(money.Add(subtotal, money.Add(shippingCost, taxAmount)), discountAmount)

	res := &model.Reservation{
		ID:              s.newReservationID(req.UserID),
		OwnerUserID:     req.UserID,
		Subtotal:        subtotal,
		ShippingCost:    shippingCost,
		TaxAmount:       taxAmount,
		DiscountAmount:  discountAmount,
		TotalAmount:     total,
		LineItems:       lineItems,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		SourceCartID:    cart.ID,
		CreatedAt:       s.now().UTC(),
	}
	if discountCode != nil {
		codeID := discountCode.ID
		res.DiscountCodeID = &codeID
	}

	if err := s.resStore.Save(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to store reservation: %w", err)
	}

	s.logger.Info().
		Str("reservation_id", res.ID).
		Str("user_id", req.UserID).
		Float64("total_amount", res.TotalAmount).
		Int("item_count", len(lineItems)).
		Msg("reservation created")

	return res, nil
}

// Cancel deletes the reservation and its QR session. Any in-flight poll
// that re-fetches afterwards observes absence and terminates.
func (s *checkoutService) Cancel(ctx context.Context, reservationID, userID string) error {
	res, err := s.resStore.Get(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("failed to load reservation: %w", err)
	}
	if res == nil || res.OwnerUserID != userID {
		// Already gone or not theirs; cancellation is idempotent either way.
		return nil
	}

	if err := s.resStore.Delete(ctx, reservationID); err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	if err := s.qrStore.Delete(ctx, reservationID); err != nil {
		return fmt.Errorf("failed to delete qr session: %w", err)
	}

	s.logger.Info().
		Str("reservation_id", reservationID).
		Str("user_id", userID).
		Msg("reservation cancelled")

	return nil
}

// validateDiscount checks a code's eligibility against the undiscounted
// subtotal and returns the code when usable.
func (s *checkoutService) validateDiscount(ctx context.Context, code, userID string, subtotal float64) (*model.DiscountCode, error) {
	dc, err := s.discountRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load discount code: %w", err)
	}

	reject := func(reason string) error {
		s.logger.Warn().
			Str("code", code).
			Str("user_id", userID).
			Str("reason", reason).
			Msg("discount code rejected")
		return &model.InvalidDiscountError{Code: code, Reason: reason}
	}

	if dc == nil {
		return nil, reject("code does not exist")
	}
	if !dc.Active {
		return nil, reject("code is inactive")
	}

	now := s.now()
	if now.Before(dc.StartsAt) {
		return nil, reject("code is not active yet")
	}
	if !now.Before(dc.ExpiresAt) {
		return nil, reject("code has expired")
	}
	if dc.MaxUses > 0 && dc.UsedCount >= dc.MaxUses {
		return nil, reject("code usage limit reached")
	}
	if dc.MinOrderAmount > 0 && subtotal < dc.MinOrderAmount {
		return nil, reject(fmt.Sprintf("order subtotal below minimum of %.2f", dc.MinOrderAmount))
	}

	if dc.PerUserLimit > 0 {
		used, err := s.discountRepo.CountUsageByUser(ctx, dc.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count discount usage: %w", err)
		}
		if used >= dc.PerUserLimit {
			return nil, reject("per-user usage limit reached")
		}
	}

	return dc, nil
}

// newReservationID builds an id embedding the creation time and the owning
// user for debuggability. It is not a security boundary; every operation
// pairs it with an owner check.
func (s *checkoutService) newReservationID(userID string) string {
	return fmt.Sprintf("RSV-%s-%s-%s",
		s.now().UTC().Format("20060102150405"),
		userID,
		uuid.NewString()[:8],
	)
}
