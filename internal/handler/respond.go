package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"oriyet/internal/domain"
	"oriyet/pkg/uddoktapay"

	"github.com/gin-gonic/gin"
)

// fail maps domain errors onto HTTP statuses. Anything unmapped is logged
// and hidden behind a generic 500.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrRegistrationNotFound),
		errors.Is(err, domain.ErrCertificateNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrEventNotPayable),
		errors.Is(err, domain.ErrEventNotFree),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidOTP),
		errors.Is(err, domain.ErrRegistrationClosed),
		errors.Is(err, domain.ErrDeadlinePassed),
		errors.Is(err, domain.ErrEventNotCompleted),
		errors.Is(err, domain.ErrPaymentMetadata),
		errors.Is(err, domain.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorizedWebhook):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrEmailNotVerified),
		errors.Is(err, domain.ErrUserMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrAlreadyRegistered),
		errors.Is(err, domain.ErrTransactionNotPending),
		errors.Is(err, domain.ErrNotRefundable),
		errors.Is(err, domain.ErrAmountMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, uddoktapay.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})

	case errors.Is(err, uddoktapay.ErrRejected):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway rejected the request"})

	case errors.Is(err, uddoktapay.ErrUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable, try again shortly"})

	default:
		log.Printf("[HTTP] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// pagination pulls page/limit query params with sane defaults.
func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// queryID parses an optional uint query parameter.
func queryID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}
