package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"book-checkout/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayee() model.PayeeAccount {
	return model.PayeeAccount{
		AccountID:     "seller@bank",
		MerchantName:  "Jane's Books",
		MerchantCity:  "Phnom Penh",
		AcquiringBank: "Test Bank",
		Type:          model.PayeeSeller,
		Verified:      true,
	}
}

func TestClient_MintQR_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/qr", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, 25.00, payload["amount"])
		assert.Equal(t, "BILL-REF-1", payload["bill_reference"])
		assert.Equal(t, "seller@bank", payload["account_id"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"qr_string": "000201qr-payload", "md5": "abc123hash"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", 5*time.Second, zerolog.Nop())

	result, err := client.MintQR(context.Background(), MintRequest{
		Amount:        25.00,
		Currency:      "USD",
		BillReference: "BILL-REF-1",
		Payee:         testPayee(),
	})

	require.NoError(t, err)
	assert.Equal(t, "000201qr-payload", result.Descriptor)
	assert.Equal(t, "abc123hash", result.IntegrityHash)
}

func TestClient_MintQR_GatewayErrorCarriesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"message": "upstream bank unavailable"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", 5*time.Second, zerolog.Nop())

	result, err := client.MintQR(context.Background(), MintRequest{
		Amount:        25.00,
		Currency:      "USD",
		BillReference: "BILL-REF-1",
		Payee:         testPayee(),
	})

	require.Error(t, err)
	assert.Nil(t, result)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
	assert.Equal(t, "upstream bank unavailable", gwErr.Message)
}

func TestClient_LookupByHash_Found(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/transactions/by-hash/abc123hash", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"transaction_id": "TX-1", "status": "COMPLETED", "amount": 25.00, "currency": "USD"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", 5*time.Second, zerolog.Nop())

	tx, err := client.LookupByHash(context.Background(), "abc123hash")

	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, "TX-1", tx.TransactionID)
	assert.Equal(t, TxStatusCompleted, tx.Status)
}

func TestClient_LookupByHash_NotFoundIsNilNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-token", 5*time.Second, zerolog.Nop())

	tx, err := client.LookupByHash(context.Background(), "no-such-hash")

	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestClient_AccountExists(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected bool
	}{
		{name: "account exists", status: http.StatusOK, body: `{"exists": true}`, expected: true},
		{name: "account reported missing", status: http.StatusOK, body: `{"exists": false}`, expected: false},
		{name: "404 means missing", status: http.StatusNotFound, body: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, "test-token", 5*time.Second, zerolog.Nop())

			exists, err := client.AccountExists(context.Background(), "acct-1")

			require.NoError(t, err)
			assert.Equal(t, tt.expected, exists)
		})
	}
}

func TestClient_UnreachableGatewayIsTransientError(t *testing.T) {
	// Point at a closed server so the request fails at the transport level.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "test-token", time.Second, zerolog.Nop())

	_, err := client.LookupByHash(context.Background(), "abc")

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Zero(t, gwErr.StatusCode)
}
