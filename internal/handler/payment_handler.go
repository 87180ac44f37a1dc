package handler

import (
	"net/http"

	"oriyet/internal/middleware"
	"oriyet/internal/repository"
	"oriyet/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	svc *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

type InitiatePaymentRequest struct {
	EventID uint    `json:"event_id" binding:"required"`
	Amount  float64 `json:"amount" binding:"gte=0"` // 0 = event price
}

func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.InitiatePayment(c.Request.Context(), middleware.GetUserID(c), service.InitiatePaymentInput{
		EventID:   req.EventID,
		Amount:    req.Amount,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type VerifyPaymentRequest struct {
	InvoiceID string `json:"invoice_id" binding:"required"`
}

// Verify settles a payment against the gateway's authoritative state. The
// frontend calls it when the user lands back on the success page.
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.VerifyPayment(c.Request.Context(), req.InvoiceID, middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PaymentHandler) Cancel(c *gin.Context) {
	txnID := c.Param("transaction_id")
	if err := h.svc.CancelPayment(c.Request.Context(), txnID, middleware.GetUserID(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment cancelled"})
}

func (h *PaymentHandler) Get(c *gin.Context) {
	txnID := c.Param("transaction_id")
	admin := middleware.GetRole(c) == "admin"
	txn, err := h.svc.GetTransaction(c.Request.Context(), txnID, middleware.GetUserID(c), admin)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

func (h *PaymentHandler) ListMine(c *gin.Context) {
	page, limit := pagination(c)
	txns, total, err := h.svc.ListUserPayments(c.Request.Context(), middleware.GetUserID(c), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns, "total": total, "page": page, "limit": limit})
}

// ListAll is the admin view over every transaction.
func (h *PaymentHandler) ListAll(c *gin.Context) {
	page, limit := pagination(c)
	f := repository.PaymentFilters{
		StatusCode: c.Query("status"),
		Page:       page,
		Limit:      limit,
	}
	if id, ok := queryID(c, "user_id"); ok {
		f.UserID = id
	}
	if id, ok := queryID(c, "event_id"); ok {
		f.EventID = id
	}
	txns, total, err := h.svc.ListAllPayments(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns, "total": total, "page": page, "limit": limit})
}

// ExpirePending lets an admin run the stale-payment sweep on demand instead
// of waiting for the cron.
func (h *PaymentHandler) ExpirePending(c *gin.Context) {
	n, err := h.svc.ExpirePendingPayments(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": n})
}

type RefundRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=255"`
}

// Refund marks a completed payment refunded and releases the seat. The
// actual money movement happens manually through the gateway dashboard.
func (h *PaymentHandler) Refund(c *gin.Context) {
	txnID := c.Param("transaction_id")
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.RefundPayment(c.Request.Context(), txnID, middleware.GetUserID(c), req.Reason); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment refunded"})
}
