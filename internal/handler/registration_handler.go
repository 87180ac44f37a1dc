package handler

import (
	"net/http"

	"oriyet/internal/middleware"
	"oriyet/internal/service"

	"github.com/gin-gonic/gin"
)

type RegistrationHandler struct {
	svc *service.RegistrationService
}

func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

type FreeRegistrationRequest struct {
	EventID uint `json:"event_id" binding:"required"`
}

// Register signs the user up for a free event. Paid events go through the
// payment flow instead.
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req FreeRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reg, err := h.svc.RegisterForEvent(c.Request.Context(), middleware.GetUserID(c), req.EventID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"registration": reg})
}

type CancelRegistrationRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

func (h *RegistrationHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CancelRegistrationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := h.svc.CancelRegistration(c.Request.Context(), middleware.GetUserID(c), id, req.Reason); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "registration cancelled"})
}

func (h *RegistrationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	admin := middleware.GetRole(c) == "admin"
	reg, err := h.svc.GetRegistration(c.Request.Context(), id, middleware.GetUserID(c), admin)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registration": reg})
}

func (h *RegistrationHandler) ListMine(c *gin.Context) {
	page, limit := pagination(c)
	regs, total, err := h.svc.ListUserRegistrations(c.Request.Context(), middleware.GetUserID(c), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registrations": regs, "total": total, "page": page, "limit": limit})
}
