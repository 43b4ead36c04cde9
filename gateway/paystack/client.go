// Package paystack wraps the pieces of the Paystack REST API the order
// payment flow needs: transaction initialize, transaction verify, and
// webhook signature validation.
package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.paystack.co"

// SignatureHeader carries the gateway's HMAC over the raw webhook body.
const SignatureHeader = "x-paystack-signature"

// ErrVerificationDeclined means the verify endpoint answered but did not
// confirm the transaction. Not retryable; the charge is simply not good.
var ErrVerificationDeclined = errors.New("paystack: transaction not verified")

type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

func NewClient(secretKey string) *Client {
	return &Client{
		secretKey: secretKey,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL points the client at a different API host. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// ValidSignature reports whether signature is the hex HMAC-SHA512 of the
// exact raw body bytes under the secret key. The body must be the wire
// bytes; re-serialized JSON hashes differently and always fails.
func (c *Client) ValidSignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// InitializeRequest starts a hosted checkout for an order. Amount is in
// minor units (kobo). Metadata carries the order id so the webhook can
// resolve the order later.
type InitializeRequest struct {
	Amount      int64    `json:"amount"`
	Email       string   `json:"email"`
	CallbackURL string   `json:"callback_url,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

type Metadata struct {
	OrderID string `json:"order_id"`
}

// InitializeData is the usable part of a successful initialize response.
type InitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyData is the usable part of a verify response. Amount stays in
// minor units for reconciliation against the order total.
type VerifyData struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	PaidAt    string `json:"paid_at"`
	Channel   string `json:"channel"`
	Currency  string `json:"currency"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize creates a transaction and returns the hosted checkout handle.
func (c *Client) Initialize(ctx context.Context, initReq InitializeRequest) (*InitializeData, error) {
	body, err := json.Marshal(initReq)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var data InitializeData
	if err := c.do(req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Verify calls the transaction verification endpoint for a reference. Only
// the fields of this response are trusted for payment confirmation, never
// the webhook payload itself.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var data VerifyData
	if err := c.do(req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paystack: request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("paystack: decoding response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paystack: api returned %d: %s", resp.StatusCode, env.Message)
	}
	if !env.Status {
		return fmt.Errorf("%w: %s", ErrVerificationDeclined, env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("paystack: decoding response data: %w", err)
	}
	return nil
}
