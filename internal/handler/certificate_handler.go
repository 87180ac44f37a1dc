package handler

import (
	"net/http"

	"oriyet/internal/middleware"
	"oriyet/internal/service"

	"github.com/gin-gonic/gin"
)

type CertificateHandler struct {
	svc *service.CertificateService
}

func NewCertificateHandler(svc *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{svc: svc}
}

type IssueCertificateRequest struct {
	EventID uint `json:"event_id" binding:"required"`
}

func (h *CertificateHandler) Issue(c *gin.Context) {
	var req IssueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cert, err := h.svc.Issue(c.Request.Context(), middleware.GetUserID(c), req.EventID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"certificate": cert})
}

func (h *CertificateHandler) ListMine(c *gin.Context) {
	certs, err := h.svc.ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificates": certs})
}

// Verify is the public authenticity check linked from certificates.
func (h *CertificateHandler) Verify(c *gin.Context) {
	cert, err := h.svc.VerifyByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "certificate": cert})
}
