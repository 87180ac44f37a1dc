package handler

import (
	"log"
	"net/http"

	"oriyet/internal/service"
	"oriyet/pkg/uddoktapay"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives server-to-server payment notifications from
// UddoktaPay. The gateway retries deliveries until it sees a 2xx.
type WebhookHandler struct {
	svc *service.PaymentService
}

func NewWebhookHandler(svc *service.PaymentService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

func (h *WebhookHandler) UddoktaPay(c *gin.Context) {
	apiKey := c.GetHeader(uddoktapay.APIKeyHeader)

	var payload uddoktapay.VerifyResponse
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("[WEBHOOK] malformed payload from %s: %v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	res, err := h.svc.HandleWebhook(c.Request.Context(), &payload, apiKey, c.ClientIP())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
