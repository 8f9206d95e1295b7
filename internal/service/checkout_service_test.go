package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"book-checkout/internal/cache"
	"book-checkout/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBookRepository is a mock implementation of BookRepository.
type MockBookRepository struct {
	mock.Mock
}

func (m *MockBookRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Book, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Book), args.Error(1)
}

func (m *MockBookRepository) GetOwner(ctx context.Context, bookID string) (*model.BookOwner, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookOwner), args.Error(1)
}

func (m *MockBookRepository) DecrementStock(ctx context.Context, tx pgx.Tx, bookID string, quantity int) error {
	args := m.Called(ctx, tx, bookID, quantity)
	return args.Error(0)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetCart(ctx context.Context, cartID, userID string) (*model.Cart, []model.CartItem, error) {
	args := m.Called(ctx, cartID, userID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Cart), args.Get(1).([]model.CartItem), args.Error(2)
}

func (m *MockCartRepository) ClearItems(ctx context.Context, tx pgx.Tx, cartID string) error {
	args := m.Called(ctx, tx, cartID)
	return args.Error(0)
}

// MockDiscountRepository is a mock implementation of DiscountRepository.
type MockDiscountRepository struct {
	mock.Mock
}

func (m *MockDiscountRepository) GetByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DiscountCode), args.Error(1)
}

func (m *MockDiscountRepository) CountUsageByUser(ctx context.Context, discountCodeID, userID string) (int, error) {
	args := m.Called(ctx, discountCodeID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockDiscountRepository) RecordUsage(ctx context.Context, tx pgx.Tx, usage *model.DiscountCodeUsage) error {
	args := m.Called(ctx, tx, usage)
	return args.Error(0)
}

func newTestStores(t *testing.T) (*cache.ReservationStore, *cache.QRSessionStore) {
	t.Helper()
	logger := zerolog.Nop()
	mem := cache.NewMemory()
	return cache.NewReservationStore(mem, 15*time.Minute, logger),
		cache.NewQRSessionStore(mem, 10*time.Minute, logger)
}

func TestCheckoutService_CreateReservation_Success(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	resStore, qrStore := newTestStores(t)
	mockBookRepo := new(MockBookRepository)
	mockCartRepo := new(MockCartRepository)
	mockDiscountRepo := new(MockDiscountRepository)

	cart := &model.Cart{ID: "C1", UserID: "U1", Status: "open"}
	items := []model.CartItem{
		{CartID: "C1", BookID: "B1", Quantity: 2},
		{CartID: "C1", BookID: "B2", Quantity: 1},
	}
	books := []model.Book{
		{ID: "B1", Title: "Book One", Price: 10.00, Stock: 5, CreatedBy: "A1"},
		{ID: "B2", Title: "Book Two", Price: 5.00, Stock: 3, CreatedBy: "A1"},
	}

	mockCartRepo.On("GetCart", ctx, "C1", "U1").Return(cart, items, nil)
	mockBookRepo.On("GetByIDs", ctx, []string{"B1", "B2"}).Return(books, nil)

	service := NewCheckoutService(resStore, qrStore, mockBookRepo, mockCartRepo, mockDiscountRepo, logger)

	res, err := service.CreateReservation(ctx, &model.CreateReservationRequest{
		UserID:        "U1",
		CartID:        "C1",
		PaymentMethod: model.PaymentMethodKHQR,
	})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "U1", res.OwnerUserID)
	assert.Equal(t, "C1", res.SourceCartID)
	assert.Equal(t, 25.00, res.Subtotal)
	assert.Equal(t, 0.00, res.DiscountAmount)
	assert.Equal(t, 25.00, res.TotalAmount)
	assert.Len(t, res.LineItems, 2)
	assert.Equal(t, 20.00, res.LineItems[0].LineTotal)
	assert.Equal(t, 5.00, res.LineItems[1].LineTotal)
	assert.Contains(t, res.ID, "U1")

	// The reservation must be retrievable right away.
	stored, err := resStore.Get(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, res.TotalAmount, stored.TotalAmount)

	mockCartRepo.AssertExpectations(t)
	mockBookRepo.AssertExpectations(t)
	mockDiscountRepo.AssertNotCalled(t, "GetByCode")
}

func TestCheckoutService_CreateReservation_DiscountRounding(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	resStore, qrStore := newTestStores(t)
	mockBookRepo := new(MockBookRepository)
	mockCartRepo := new(MockCartRepository)
	mockDiscountRepo := new(MockDiscountRepository)

	cart := &model.Cart{ID: "C1", UserID: "U1", Status: "open"}
	items := []model.CartItem{{CartID: "C1", BookID: "B1", Quantity: 3}}
	books := []model.Book{{ID: "B1", Title: "Book One", Price: 19.99, Stock: 10, CreatedBy: "A1"}}

	code := &model.DiscountCode{
		ID:        "D1",
		Code:      "SAVE10",
		Percent:   10,
		Active:    true,
		StartsAt:  time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(time.Hour),
	}

	mockCartRepo.On("GetCart", ctx, "C1", "U1").Return(cart, items, nil)
	mockBookRepo.On("GetByIDs", ctx, []string{"B1"}).Return(books, nil)
	mockDiscountRepo.On("GetByCode", ctx, "SAVE10").Return(code, nil)

	service := NewCheckoutService(resStore, qrStore, mockBookRepo, mockCartRepo, mockDiscountRepo, logger)

	discountCode := "SAVE10"
	res, err := service.CreateReservation(ctx, &model.CreateReservationRequest{
		UserID:        "U1",
		CartID:        "C1",
		PaymentMethod: model.PaymentMethodKHQR,
		DiscountCode:  &discountCode,
	})

	require.NoError(t, err)
	require.NotNil(t, res)

	// 19.99 discounted 10% rounds to 17.99 per unit before multiplication,
	// so the line total is 53.97, not 53.973.
	assert.Equal(t, 17.99, res.LineItems[0].UnitPrice)
	assert.Equal(t, 53.97, res.LineItems[0].LineTotal)
	assert.Equal(t, 59.97, res.Subtotal)
	assert.Equal(t, 6.00, res.DiscountAmount)
	assert.Equal(t, 53.97, res.TotalAmount)
	require.NotNil(t, res.DiscountCodeID)
	assert.Equal(t, "D1", *res.DiscountCodeID)

	mockDiscountRepo.AssertExpectations(t)
}

func TestCheckoutService_CreateReservation_EmptyCart(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	resStore, qrStore := newTestStores(t)
	mockBookRepo := new(MockBookRepository)
	mockCartRepo := new(MockCartRepository)
	mockDiscountRepo := new(MockDiscountRepository)

	mockCartRepo.On("GetCart", ctx, "C-missing", "U1").Return(nil, nil, nil)

	service := NewCheckoutService(resStore, qrStore, mockBookRepo, mockCartRepo, mockDiscountRepo, logger)

	res, err := service.CreateReservation(ctx, &model.CreateReservationRequest{
		UserID:        "U1",
		CartID:        "C-missing",
		PaymentMethod: model.PaymentMethodKHQR,
	})

	require.Error(t, err)
	assert.Equal(t, model.ErrCartEmpty, err)
	assert.Nil(t, res)
	mockBookRepo.AssertNotCalled(t, "GetByIDs")
}

func TestCheckoutService_CreateReservation_UnsupportedPayment(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	resStore, qrStore := newTestStores(t)
	service := NewCheckoutService(resStore, qrStore, new(MockBookRepository), new(MockCartRepository), new(MockDiscountRepository), logger)

	res, err := service.CreateReservation(ctx, &model.CreateReservationRequest{
		UserID:        "U1",
		CartID:        "C1",
		PaymentMethod: "card",
	})

	require.Error(t, err)
	assert.Nil(t, res)

	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, model.ErrCodeUnsupportedPayment, domainErr.Code)
}

func TestCheckoutService_CreateReservation_StockInsufficient(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	resStore, qrStore := newTestStores(t)
	mockBookRepo := new(MockBookRepository)
	mockCartRepo := new(MockCartRepository)

	cart := &model.Cart{ID: "C1", UserID: "U1", Status: "open"}
	items := []model.CartItem{{CartID: "C1", BookID: "B1", Quantity: 4}}
	books := []model.Book{{ID: "B1", Title: "Book One", Price: 10.00, Stock: 2, CreatedBy: "A1"}}

	mockCartRepo.On("GetCart", ctx, "C1", "U1").Return(cart, items, nil)
	mockBookRepo.On("GetByIDs", ctx, []string{"B1"}).Return(books, nil)

	service := NewCheckoutService(resStore, qrStore, mockBookRepo, mockCartRepo, new(MockDiscountRepository), logger)

	res, err := service.CreateReservation(ctx, &model.CreateReservationRequest{
		UserID:        "U1",
		CartID:        "C1",
		PaymentMethod: model.PaymentMethodKHQR,
	})

	require.Error(t, err)
	assert.Nil(t, res)

	var stockErr *model.StockInsufficientError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "B1", stockErr.BookID)
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
}

func TestCheckoutService_CreateReservation_UnknownBook(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	resStore, qrStore := newTestStores(t)
	mockBookRepo := new(MockBookRepository)
	mockCartRepo := new(MockCartRepository)

	cart := &model.Cart{ID: "C1", UserID: "U1", Status: "open"}
	items := []model.CartItem{{CartID: "C1", BookID: "B-gone", Quantity: 1}}

	mockCartRepo.On("GetCart", ctx, "C1", "U1").Return(cart, items, nil)
	mockBookRepo.On("GetByIDs", ctx, []string{"B-gone"}).Return([]model.Book{}, nil)

	service := NewCheckoutService(resStore, qrStore, mockBookRepo, mockCartRepo, new(MockDiscountRepository), logger)

	res, err := service.CreateReservation(ctx, &model.CreateReservationRequest{
		UserID:        "U1",
		CartID:        "C1",
		PaymentMethod: model.PaymentMethodKHQR,
	})

	require.Error(t, err)
	assert.Nil(t, res)

	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, model.ErrCodeBookNotFound, domainErr.Code)
}

func TestCheckoutService_CreateReservation_DiscountRejections(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	now := time.Now()

	tests := []struct {
		name       string
		code       *model.DiscountCode
		usedByUser int
		wantReason string
	}{
		{
			name:       "Unknown code",
			code:       nil,
			wantReason: "code does not exist",
		},
		{
			name: "Inactive code",
			code: &model.DiscountCode{
				ID: "D1", Code: "SAVE10", Percent: 10, Active: false,
				StartsAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour),
			},
			wantReason: "code is inactive",
		},
		{
			name: "Not started yet",
			code: &model.DiscountCode{
				ID: "D1", Code: "SAVE10", Percent: 10, Active: true,
				StartsAt: now.Add(time.Hour), ExpiresAt: now.Add(2 * time.Hour),
			},
			wantReason: "code is not active yet",
		},
		{
			name: "Expired",
			code: &model.DiscountCode{
				ID: "D1", Code: "SAVE10", Percent: 10, Active: true,
				StartsAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
			},
			wantReason: "code has expired",
		},
		{
			name: "Global usage exhausted",
			code: &model.DiscountCode{
				ID: "D1", Code: "SAVE10", Percent: 10, Active: true,
				MaxUses: 5, UsedCount: 5,
				StartsAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour),
			},
			wantReason: "code usage limit reached",
		},
		{
			name: "Below minimum subtotal",
			code: &model.DiscountCode{
				ID: "D1", Code: "SAVE10", Percent: 10, Active: true,
				MinOrderAmount: 100.00,
				StartsAt:       now.Add(-time.Hour),
				ExpiresAt:      now.Add(time.Hour),
			},
			wantReason: "order subtotal below minimum of 100.00",
		},
		{
			name: "Per-user limit reached",
			code: &model.DiscountCode{
				ID: "D1", Code: "SAVE10", Percent: 10, Active: true,
				PerUserLimit: 1,
				StartsAt:     now.Add(-time.Hour),
				ExpiresAt:    now.Add(time.Hour),
			},
			usedByUser: 1,
			wantReason: "per-user usage limit reached",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resStore, qrStore := newTestStores(t)
			mockBookRepo := new(MockBookRepository)
			mockCartRepo := new(MockCartRepository)
			mockDiscountRepo := new(MockDiscountRepository)

			cart := &model.Cart{ID: "C1", UserID: "U1", Status: "open"}
			items := []model.CartItem{{CartID: "C1", BookID: "B1", Quantity: 1}}
			books := []model.Book{{ID: "B1", Title: "Book One", Price: 10.00, Stock: 5, CreatedBy: "A1"}}

			mockCartRepo.On("GetCart", ctx, "C1", "U1").Return(cart, items, nil)
			mockBookRepo.On("GetByIDs", ctx, []string{"B1"}).Return(books, nil)
			if tt.code == nil {
				mockDiscountRepo.On("GetByCode", ctx, "SAVE10").Return(nil, nil)
			} else {
				mockDiscountRepo.On("GetByCode", ctx, "SAVE10").Return(tt.code, nil)
				if tt.code.PerUserLimit > 0 {
					mockDiscountRepo.On("CountUsageByUser", ctx, tt.code.ID, "U1").Return(tt.usedByUser, nil)
				}
			}

			service := NewCheckoutService(resStore, qrStore, mockBookRepo, mockCartRepo, mockDiscountRepo, logger)

			discountCode := "SAVE10"
			res, err := service.CreateReservation(ctx, &model.CreateReservationRequest{
				UserID:        "U1",
				CartID:        "C1",
				PaymentMethod: model.PaymentMethodKHQR,
				DiscountCode:  &discountCode,
			})

			require.Error(t, err)
			assert.Nil(t, res)

			var discountErr *model.InvalidDiscountError
			require.ErrorAs(t, err, &discountErr)
			assert.Equal(t, tt.wantReason, discountErr.Reason)
		})
	}
}

func TestCheckoutService_Cancel(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	resStore, qrStore := newTestStores(t)
	service := NewCheckoutService(resStore, qrStore, new(MockBookRepository), new(MockCartRepository), new(MockDiscountRepository), logger)

	res := &model.Reservation{ID: "RSV-1", OwnerUserID: "U1", TotalAmount: 10.00}
	require.NoError(t, resStore.Save(ctx, res))
	require.NoError(t, qrStore.Save(ctx, &model.QRSession{ReservationID: "RSV-1", ExpiresAt: time.Now().Add(time.Minute)}))

	// Another user's cancel is a silent no-op.
	require.NoError(t, service.Cancel(ctx, "RSV-1", "U2"))
	stored, err := resStore.Get(ctx, "RSV-1")
	require.NoError(t, err)
	assert.NotNil(t, stored)

	// The owner's cancel removes both the reservation and the session.
	require.NoError(t, service.Cancel(ctx, "RSV-1", "U1"))
	stored, err = resStore.Get(ctx, "RSV-1")
	require.NoError(t, err)
	assert.Nil(t, stored)
	session, err := qrStore.Get(ctx, "RSV-1")
	require.NoError(t, err)
	assert.Nil(t, session)

	// Cancelling again is idempotent.
	require.NoError(t, service.Cancel(ctx, "RSV-1", "U1"))
}

func TestCheckoutService_CreateReservation_CartRepoError(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	resStore, qrStore := newTestStores(t)
	mockCartRepo := new(MockCartRepository)
	mockCartRepo.On("GetCart", ctx, "C1", "U1").Return(nil, nil, errors.New("database error"))

	service := NewCheckoutService(resStore, qrStore, new(MockBookRepository), mockCartRepo, new(MockDiscountRepository), logger)

	res, err := service.CreateReservation(ctx, &model.CreateReservationRequest{
		UserID:        "U1",
		CartID:        "C1",
		PaymentMethod: model.PaymentMethodKHQR,
	})

	require.Error(t, err)
	assert.Nil(t, res)
}
