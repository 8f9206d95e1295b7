package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// Client is the HTTP implementation of Gateway. The http.Client timeout
// bounds every call independently of any business-level expiry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
	logger     zerolog.Logger
}

// NewClient creates an HTTP gateway client.
func NewClient(baseURL, apiToken string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiToken:   apiToken,
		logger:     logger.With().Str("client", "payment-gateway").Logger(),
	}
}

type mintPayload struct {
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	BillReference string  `json:"bill_reference"`
	AccountID     string  `json:"account_id"`
	MerchantName  string  `json:"merchant_name"`
	MerchantCity  string  `json:"merchant_city"`
	AcquiringBank string  `json:"acquiring_bank"`
}

type mintResponse struct {
	QRString string `json:"qr_string"`
	MD5      string `json:"md5"`
}

type transactionResponse struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

type accountResponse struct {
	Exists bool `json:"exists"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// MintQR asks the gateway to mint a scannable descriptor for the amount,
// payee and bill reference. The bill reference is deterministic per
// reservation, so re-minting is idempotent at the gateway.
func (c *Client) MintQR(ctx context.Context, req MintRequest) (*MintResult, error) {
	payload := mintPayload{
		Amount:        req.Amount,
		Currency:      req.Currency,
		BillReference: req.BillReference,
		AccountID:     req.Payee.AccountID,
		MerchantName:  req.Payee.MerchantName,
		MerchantCity:  req.Payee.MerchantCity,
		AcquiringBank: req.Payee.AcquiringBank,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mint request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/qr", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create mint request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Str("bill_reference", req.BillReference).Msg("mint request failed")
		return nil, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.gatewayError(resp)
	}

	var result mintResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode mint response: %w", err)
	}

	c.logger.Debug().
		Str("bill_reference", req.BillReference).
		Str("integrity_hash", result.MD5).
		Msg("qr descriptor minted")

	return &MintResult{
		Descriptor:    result.QRString,
		IntegrityHash: result.MD5,
	}, nil
}

// LookupByHash queries the transaction for an integrity hash. A 404 means
// no payment has been observed yet and returns (nil, nil).
func (c *Client) LookupByHash(ctx context.Context, integrityHash string) (*Transaction, error) {
	endpoint := c.baseURL + "/v1/transactions/by-hash/" + url.PathEscape(integrityHash)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Str("integrity_hash", integrityHash).Msg("lookup request failed")
		return nil, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.gatewayError(resp)
	}

	var result transactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}

	return &Transaction{
		TransactionID: result.TransactionID,
		Status:        result.Status,
		Amount:        result.Amount,
		Currency:      result.Currency,
	}, nil
}

// AccountExists checks whether the gateway knows the payee account.
func (c *Client) AccountExists(ctx context.Context, accountID string) (bool, error) {
	endpoint := c.baseURL + "/v1/accounts/" + url.PathEscape(accountID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create account request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Str("account_id", accountID).Msg("account check failed")
		return false, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, c.gatewayError(resp)
	}

	var result accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode account response: %w", err)
	}

	return result.Exists, nil
}

// gatewayError extracts the gateway's own message so callers can surface it
// verbatim alongside a generic fallback.
func (c *Client) gatewayError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var parsed errorResponse
	message := string(body)
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		message = parsed.Message
	}

	c.logger.Warn().
		Int("status", resp.StatusCode).
		Str("message", message).
		Msg("gateway returned error")

	return &Error{StatusCode: resp.StatusCode, Message: message}
}
