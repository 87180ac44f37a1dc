// Package uddoktapay is a client for the UddoktaPay checkout and
// verification HTTP API.
package uddoktapay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Gateway outcomes. Unavailable means the provider could not be reached or
// answered 5xx; callers may retry. Rejected and invoice-not-found are final.
var (
	ErrUnavailable     = errors.New("uddoktapay: gateway unavailable")
	ErrRejected        = errors.New("uddoktapay: request rejected")
	ErrInvoiceNotFound = errors.New("uddoktapay: invoice not found")
)

// APIKeyHeader carries the shared key on both outgoing API calls and
// incoming webhook deliveries.
const APIKeyHeader = "RT-UDDOKTAPAY-API-KEY"

// Statuses reported by the verify endpoint.
const (
	StatusCompleted = "COMPLETED"
	StatusPending   = "PENDING"
	StatusError     = "ERROR"
)

type Client struct {
	checkoutURL string
	verifyURL   string
	apiKey      string
	maxRetries  int
	client      *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithMaxRetries bounds the retry loop for unavailable-gateway failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

func NewClient(checkoutURL, verifyURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		checkoutURL: checkoutURL,
		verifyURL:   verifyURL,
		apiKey:      apiKey,
		maxRetries:  3,
		client:      &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Metadata is echoed back verbatim by the gateway on verify and webhook
// delivery; it carries our own identifiers through the round trip.
type Metadata struct {
	UserID         string `json:"user_id"`
	EventID        string `json:"event_id"`
	RegistrationID string `json:"registration_id"`
	TransactionID  string `json:"transaction_id"`
}

type CheckoutRequest struct {
	FullName    string   `json:"full_name"`
	Email       string   `json:"email"`
	Amount      string   `json:"amount"`
	Metadata    Metadata `json:"metadata"`
	RedirectURL string   `json:"redirect_url"`
	ReturnType  string   `json:"return_type"`
	CancelURL   string   `json:"cancel_url"`
	WebhookURL  string   `json:"webhook_url"`
}

type checkoutResponse struct {
	Status     bool   `json:"status"`
	Message    string `json:"message"`
	PaymentURL string `json:"payment_url"`
}

type CheckoutResponse struct {
	PaymentURL string
}

// VerifyResponse is the gateway's account of a transaction.
type VerifyResponse struct {
	FullName      string   `json:"full_name"`
	Email         string   `json:"email"`
	Amount        string   `json:"amount"`
	Fee           string   `json:"fee"`
	ChargedAmount string   `json:"charged_amount"`
	InvoiceID     string   `json:"invoice_id"`
	Metadata      Metadata `json:"metadata"`
	PaymentMethod string   `json:"payment_method"`
	SenderNumber  string   `json:"sender_number"`
	TransactionID string   `json:"transaction_id"`
	Date          string   `json:"date"`
	Status        string   `json:"status"`
}

// CreateCheckout opens a checkout session and returns the hosted payment URL.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	if req.ReturnType == "" {
		req.ReturnType = "GET"
	}
	body, err := c.post(ctx, c.checkoutURL, req)
	if err != nil {
		return nil, err
	}
	var out checkoutResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if !out.Status || out.PaymentURL == "" {
		msg := out.Message
		if msg == "" {
			msg = "payment URL not received"
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return &CheckoutResponse{PaymentURL: out.PaymentURL}, nil
}

// Verify asks the gateway for the authoritative state of an invoice.
func (c *Client) Verify(ctx context.Context, invoiceID string) (*VerifyResponse, error) {
	payload := struct {
		InvoiceID string `json:"invoice_id"`
	}{InvoiceID: invoiceID}
	body, err := c.post(ctx, c.verifyURL, payload)
	if err != nil {
		return nil, err
	}
	var out VerifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return &out, nil
}

// post sends one JSON request, retrying with doubling backoff only when the
// gateway is unreachable or answers 5xx. Rejections never retry.
func (c *Client) post(ctx context.Context, url string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	attempts := c.maxRetries
	if attempts < 1 {
		attempts = 1
	}
	backoff := 500 * time.Millisecond
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
			log.Printf("[UDDOKTAPAY] retry %d/%d %s", attempt, attempts, url)
		}

		body, retryable, err := c.once(ctx, url, raw)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, url string, raw []byte) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, ErrInvoiceNotFound
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("%w: status %d %s", ErrRejected, resp.StatusCode, truncate(body, 200))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
