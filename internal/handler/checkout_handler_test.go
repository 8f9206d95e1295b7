package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"book-checkout/internal/gateway"
	"book-checkout/internal/middleware"
	"book-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCheckoutService is a mock implementation of CheckoutService.
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) CreateReservation(ctx context.Context, req *model.CreateReservationRequest) (*model.Reservation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reservation), args.Error(1)
}

func (m *MockCheckoutService) Cancel(ctx context.Context, reservationID, userID string) error {
	args := m.Called(ctx, reservationID, userID)
	return args.Error(0)
}

// MockQRService is a mock implementation of QRService.
type MockQRService struct {
	mock.Mock
}

func (m *MockQRService) Mint(ctx context.Context, reservationID, userID, currency string) (*model.QRSession, error) {
	args := m.Called(ctx, reservationID, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QRSession), args.Error(1)
}

// MockSettlementService is a mock implementation of SettlementService.
type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) CheckStatus(ctx context.Context, reservationID, userID string, attempt int) (*model.SettlementResult, error) {
	args := m.Called(ctx, reservationID, userID, attempt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SettlementResult), args.Error(1)
}

// serve runs a request through the user-context middleware and the
// checkout route dispatcher, the way the router wires them.
func serve(h *CheckoutHandler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	middleware.UserContext(zerolog.Nop())(http.HandlerFunc(h.Route)).ServeHTTP(rec, req)
	return rec
}

func newHandler(checkout *MockCheckoutService, qr *MockQRService, settlement *MockSettlementService) *CheckoutHandler {
	return NewCheckoutHandler(checkout, qr, settlement, "USD", zerolog.Nop())
}

func TestCheckoutHandler_Create(t *testing.T) {
	reservation := &model.Reservation{
		ID:          "RSV-1",
		OwnerUserID: "U1",
		TotalAmount: 25.00,
	}

	tests := []struct {
		name           string
		body           interface{}
		mockReturn     *model.Reservation
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			body:           &model.CreateReservationRequest{CartID: "C1", PaymentMethod: model.PaymentMethodKHQR},
			mockReturn:     reservation,
			expectedStatus: http.StatusCreated,
			expectService:  true,
		},
		{
			name:           "Empty cart",
			body:           &model.CreateReservationRequest{CartID: "C1", PaymentMethod: model.PaymentMethodKHQR},
			mockError:      model.ErrCartEmpty,
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "Stock insufficient",
			body:           &model.CreateReservationRequest{CartID: "C1", PaymentMethod: model.PaymentMethodKHQR},
			mockError:      &model.StockInsufficientError{BookID: "B1", Requested: 3, Available: 1},
			expectedStatus: http.StatusConflict,
			expectService:  true,
		},
		{
			name:           "Invalid discount",
			body:           &model.CreateReservationRequest{CartID: "C1", PaymentMethod: model.PaymentMethodKHQR},
			mockError:      &model.InvalidDiscountError{Code: "SAVE10", Reason: "code has expired"},
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "Missing cart id",
			body:           &model.CreateReservationRequest{PaymentMethod: model.PaymentMethodKHQR},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid JSON",
			body:           "{not-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCheckout := new(MockCheckoutService)
			h := newHandler(mockCheckout, new(MockQRService), new(MockSettlementService))

			if tt.expectService {
				mockCheckout.On("CreateReservation", mock.Anything, mock.MatchedBy(func(req *model.CreateReservationRequest) bool {
					return req.UserID == "U1"
				})).Return(tt.mockReturn, tt.mockError)
			}

			var body bytes.Buffer
			if s, ok := tt.body.(string); ok {
				body.WriteString(s)
			} else {
				require.NoError(t, json.NewEncoder(&body).Encode(tt.body))
			}

			req := httptest.NewRequest(http.MethodPost, "/api/checkout/reservations", &body)
			req.Header.Set("X-User-ID", "U1")
			rec := serve(h, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectService {
				mockCheckout.AssertExpectations(t)
			} else {
				mockCheckout.AssertNotCalled(t, "CreateReservation")
			}
		})
	}
}

func TestCheckoutHandler_Create_MissingIdentity(t *testing.T) {
	h := newHandler(new(MockCheckoutService), new(MockQRService), new(MockSettlementService))

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/reservations", bytes.NewBufferString("{}"))
	rec := serve(h, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutHandler_MintQR(t *testing.T) {
	session := &model.QRSession{
		ReservationID: "RSV-1",
		Descriptor:    "qr-payload",
		IntegrityHash: "hash-1",
		ExpiresAt:     time.Now().Add(10 * time.Minute),
		Amount:        25.00,
		Currency:      "USD",
	}

	tests := []struct {
		name           string
		body           string
		wantCurrency   string
		mockReturn     *model.QRSession
		mockError      error
		expectedStatus int
	}{
		{
			name:           "Success with default currency",
			body:           "",
			wantCurrency:   "USD",
			mockReturn:     session,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Explicit currency",
			body:           `{"currency":"KHR"}`,
			wantCurrency:   "KHR",
			mockReturn:     session,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Reservation gone",
			body:           "",
			wantCurrency:   "USD",
			mockError:      model.ErrReservationNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Gateway down",
			body:           "",
			wantCurrency:   "USD",
			mockError:      &gateway.Error{StatusCode: 502, Message: "upstream unavailable"},
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "Payee not configured",
			body:           "",
			wantCurrency:   "USD",
			mockError:      model.ErrPaymentNotConfigured,
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockQR := new(MockQRService)
			h := newHandler(new(MockCheckoutService), mockQR, new(MockSettlementService))

			mockQR.On("Mint", mock.Anything, "RSV-1", "U1", tt.wantCurrency).Return(tt.mockReturn, tt.mockError)

			req := httptest.NewRequest(http.MethodPost, "/api/checkout/reservations/RSV-1/qr", bytes.NewBufferString(tt.body))
			req.Header.Set("X-User-ID", "U1")
			rec := serve(h, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockQR.AssertExpectations(t)
		})
	}
}

func TestCheckoutHandler_Status(t *testing.T) {
	orderID := uuid.New()
	completed := &model.SettlementResult{
		Status: model.SettlementCompleted,
		Order: &model.OrderResponse{
			Order: &model.Order{ID: orderID, ReservationID: "RSV-1", UserID: "U1"},
		},
	}

	tests := []struct {
		name           string
		url            string
		wantAttempt    int
		mockReturn     *model.SettlementResult
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Pending",
			url:            "/api/checkout/reservations/RSV-1/status?attempt=3",
			wantAttempt:    3,
			mockReturn:     &model.SettlementResult{Status: model.SettlementPending},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Completed",
			url:            "/api/checkout/reservations/RSV-1/status?attempt=5",
			wantAttempt:    5,
			mockReturn:     completed,
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Defaults attempt to 1",
			url:            "/api/checkout/reservations/RSV-1/status",
			wantAttempt:    1,
			mockReturn:     &model.SettlementResult{Status: model.SettlementPending},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Invalid attempt",
			url:            "/api/checkout/reservations/RSV-1/status?attempt=zero",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Gateway outage surfaces as 502",
			url:            "/api/checkout/reservations/RSV-1/status",
			wantAttempt:    1,
			mockError:      &gateway.Error{Message: "connection refused"},
			expectedStatus: http.StatusBadGateway,
			expectService:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSettlement := new(MockSettlementService)
			h := newHandler(new(MockCheckoutService), new(MockQRService), mockSettlement)

			if tt.expectService {
				mockSettlement.On("CheckStatus", mock.Anything, "RSV-1", "U1", tt.wantAttempt).
					Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			req.Header.Set("X-User-ID", "U1")
			rec := serve(h, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)

			if tt.mockReturn != nil {
				var result model.SettlementResult
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
				assert.Equal(t, tt.mockReturn.Status, result.Status)
			}

			if tt.expectService {
				mockSettlement.AssertExpectations(t)
			} else {
				mockSettlement.AssertNotCalled(t, "CheckStatus")
			}
		})
	}
}

func TestCheckoutHandler_Cancel(t *testing.T) {
	mockCheckout := new(MockCheckoutService)
	h := newHandler(mockCheckout, new(MockQRService), new(MockSettlementService))

	mockCheckout.On("Cancel", mock.Anything, "RSV-1", "U1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/checkout/reservations/RSV-1", nil)
	req.Header.Set("X-User-ID", "U1")
	rec := serve(h, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	mockCheckout.AssertExpectations(t)
}

func TestCheckoutHandler_MethodNotAllowed(t *testing.T) {
	h := newHandler(new(MockCheckoutService), new(MockQRService), new(MockSettlementService))

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/reservations", nil)
	req.Header.Set("X-User-ID", "U1")
	rec := serve(h, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCheckoutHandler_UnknownSubpath(t *testing.T) {
	h := newHandler(new(MockCheckoutService), new(MockQRService), new(MockSettlementService))

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/reservations/RSV-1/unknown", nil)
	req.Header.Set("X-User-ID", "U1")
	rec := serve(h, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
