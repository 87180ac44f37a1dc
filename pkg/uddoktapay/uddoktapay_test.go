package uddoktapay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestCreateCheckout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("RT-UDDOKTAPAY-API-KEY"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		var req CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Metadata.TransactionID != "TXN-1" {
			t.Errorf("metadata transaction id = %q", req.Metadata.TransactionID)
		}
		if req.ReturnType != "GET" {
			t.Errorf("return type = %q", req.ReturnType)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      true,
			"payment_url": "https://pay.example.com/abc",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", time.Second)
	out, err := c.CreateCheckout(context.Background(), CheckoutRequest{
		FullName: "Rahim Uddin",
		Email:    "rahim@example.com",
		Amount:   "500.00",
		Metadata: Metadata{TransactionID: "TXN-1"},
	})
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	if out.PaymentURL != "https://pay.example.com/abc" {
		t.Errorf("payment url = %q", out.PaymentURL)
	}
}

func TestCreateCheckoutRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  false,
			"message": "invalid amount",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", time.Second)
	_, err := c.CreateCheckout(context.Background(), CheckoutRequest{Amount: "-1"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			InvoiceID string `json:"invoice_id"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.InvoiceID != "inv-42" {
			t.Errorf("invoice id = %q", req.InvoiceID)
		}
		json.NewEncoder(w).Encode(VerifyResponse{
			Status:    StatusCompleted,
			InvoiceID: "inv-42",
			Amount:    "500.00",
			Metadata:  Metadata{TransactionID: "TXN-1", UserID: "7"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", time.Second)
	out, err := c.Verify(context.Background(), "inv-42")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if out.Status != StatusCompleted {
		t.Errorf("status = %q", out.Status)
	}
	if out.Metadata.UserID != "7" {
		t.Errorf("metadata user id = %q", out.Metadata.UserID)
	}
}

func TestVerifyInvoiceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", time.Second)
	_, err := c.Verify(context.Background(), "missing")
	if !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("err = %v, want ErrInvoiceNotFound", err)
	}
}

func TestRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(VerifyResponse{Status: StatusPending})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", time.Second, WithMaxRetries(3))
	out, err := c.Verify(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if out.Status != StatusPending {
		t.Errorf("status = %q", out.Status)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestNoRetryOnRejection(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", time.Second, WithMaxRetries(3))
	_, err := c.Verify(context.Background(), "inv-1")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestUnavailableAfterRetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, "test-key", time.Second, WithMaxRetries(2))
	_, err := c.Verify(context.Background(), "inv-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}
