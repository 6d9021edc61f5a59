// Package daraja implements the payment gateway client used to initiate
// STK push debits against the Safaricom Daraja API.
package daraja

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Jengeka/bingwa-sokoni/internal/config"
	"github.com/shopspring/decimal"
)

// Gateway is the contract the purchase flow needs from a payment gateway:
// initiate a debit now, report the final outcome later via callback.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
}

// InitiateRequest carries everything the gateway needs to start a debit.
type InitiateRequest struct {
	IdempotencyKey string
	Amount         decimal.Decimal
	Phone          string
	Description    string
}

// InitiateResponse reports whether the gateway queued the debit. A rejected
// request is not an error: the transport worked, the gateway said no.
type InitiateResponse struct {
	Accepted   bool
	Reason     string
	GatewayRef string
}

// Client represents a Daraja API client
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortCode      string
	passkey        string
	callbackURL    string
	mockAPI        bool
	client         *http.Client
}

var _ Gateway = (*Client)(nil)

// NewClient creates a new Daraja API client
func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Daraja.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.Daraja.BaseURL, "/"),
		consumerKey:    cfg.Daraja.ConsumerKey,
		consumerSecret: cfg.Daraja.ConsumerSecret,
		shortCode:      cfg.Daraja.ShortCode,
		passkey:        cfg.Daraja.Passkey,
		callbackURL:    cfg.Daraja.CallbackURL,
		mockAPI:        cfg.Daraja.MockAPI,
		client:         &http.Client{Timeout: timeout},
	}
}

// Initiate starts an STK push debit for the given amount and phone. The
// idempotency key travels as the account reference so the later callback can
// be matched to the purchase request that caused it.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	if c.mockAPI {
		return c.mockInitiate(req)
	}

	token, err := c.auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("daraja auth failed: %w", err)
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(c.shortCode + c.passkey + timestamp))

	payload := map[string]interface{}{
		"BusinessShortCode": c.shortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            req.Amount.IntPart(),
		"PartyA":            req.Phone,
		"PartyB":            c.shortCode,
		"PhoneNumber":       req.Phone,
		"CallBackURL":       c.callbackURL,
		"AccountReference":  req.IdempotencyKey,
		"TransactionDesc":   req.Description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mpesa/stkpush/v1/processrequest", strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stk push request failed: %w", err)
	}
	defer resp.Body.Close()

	var stkResp struct {
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		ErrorMessage        string `json:"errorMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stkResp); err != nil {
		return nil, fmt.Errorf("decoding stk push response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || stkResp.ResponseCode != "0" {
		reason := stkResp.ResponseDescription
		if reason == "" {
			reason = stkResp.ErrorMessage
		}
		return &InitiateResponse{Accepted: false, Reason: reason}, nil
	}

	return &InitiateResponse{Accepted: true, GatewayRef: stkResp.CheckoutRequestID}, nil
}

// auth fetches an OAuth access token using the consumer credentials.
func (c *Client) auth(ctx context.Context) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.consumerKey + ":" + c.consumerSecret))
	httpReq.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	return tokenResp.AccessToken, nil
}

// mockInitiate mocks the Initiate method for testing
func (c *Client) mockInitiate(req InitiateRequest) (*InitiateResponse, error) {
	return &InitiateResponse{
		Accepted:   true,
		GatewayRef: "MOCK-" + req.IdempotencyKey,
	}, nil
}
