package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"oriyet/internal/domain"
	"oriyet/pkg/uddoktapay"

	"github.com/gin-gonic/gin"
)

func failWith(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fail(c, err)
	return w
}

func TestFailStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"event not found", domain.ErrEventNotFound, http.StatusNotFound},
		{"invoice not found", uddoktapay.ErrInvoiceNotFound, http.StatusNotFound},
		{"gateway rejected", uddoktapay.ErrRejected, http.StatusBadGateway},
		{"gateway unavailable", uddoktapay.ErrUnavailable, http.StatusBadGateway},
		{"wrapped gateway rejection", fmt.Errorf("create checkout: %w", uddoktapay.ErrRejected), http.StatusBadGateway},
		{"capacity", domain.ErrCapacityExceeded, http.StatusConflict},
		{"bad filter", fmt.Errorf("%w: status %q", domain.ErrInvalidFilter, "bogus"), http.StatusBadRequest},
		{"unauthorized webhook", domain.ErrUnauthorizedWebhook, http.StatusUnauthorized},
		{"unmapped", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
		{"missing seed row", domain.LookupError(domain.TablePaymentStatuses, "pending"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := failWith(t, tc.err)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestFailHidesInternalDetail(t *testing.T) {
	w := failWith(t, fmt.Errorf("dial tcp 10.0.0.5:3306: connection refused"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "10.0.0.5") {
		t.Fatalf("response leaked internal detail: %s", w.Body.String())
	}
}

func TestFailGatewayErrorsDoNotLeakUpstream(t *testing.T) {
	w := failWith(t, fmt.Errorf("verify invoice: %w", uddoktapay.ErrUnavailable))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if strings.Contains(w.Body.String(), "verify invoice") {
		t.Fatalf("response leaked call detail: %s", w.Body.String())
	}
}
