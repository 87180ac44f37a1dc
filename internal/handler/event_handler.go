package handler

import (
	"net/http"
	"time"

	"oriyet/internal/domain"
	"oriyet/internal/repository"
	"oriyet/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	svc *service.EventService
}

func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// List returns published events with optional type/mode/status/search filters.
func (h *EventHandler) List(c *gin.Context) {
	page, limit := pagination(c)
	events, total, err := h.svc.ListPublished(c.Request.Context(), repository.EventFilters{
		TypeCode:   c.Query("type"),
		ModeCode:   c.Query("mode"),
		StatusCode: c.Query("status"),
		Search:     c.Query("search"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": total, "page": page, "limit": limit})
}

func (h *EventHandler) GetBySlug(c *gin.Context) {
	event, err := h.svc.GetPublishedBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

func (h *EventHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	event, err := h.svc.GetEvent(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

type EventRequest struct {
	Title                string     `json:"title" binding:"required,min=3,max=255"`
	Description          string     `json:"description"`
	Type                 string     `json:"type" binding:"required"`
	Mode                 string     `json:"mode" binding:"required,oneof=online offline hybrid"`
	Price                float64    `json:"price" binding:"gte=0"`
	Currency             string     `json:"currency"`
	MaxParticipants      int        `json:"max_participants" binding:"gte=0"`
	StartDate            time.Time  `json:"start_date" binding:"required"`
	EndDate              *time.Time `json:"end_date"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	OnlineLink           string     `json:"online_link"`
	OnlinePlatform       string     `json:"online_platform"`
	IsPublished          bool       `json:"is_published"`
}

func (r *EventRequest) toInput() service.EventInput {
	return service.EventInput{
		Title:                r.Title,
		Description:          r.Description,
		TypeCode:             r.Type,
		ModeCode:             r.Mode,
		Price:                r.Price,
		Currency:             r.Currency,
		MaxParticipants:      r.MaxParticipants,
		StartDate:            r.StartDate,
		EndDate:              r.EndDate,
		RegistrationDeadline: r.RegistrationDeadline,
		OnlineLink:           r.OnlineLink,
		OnlinePlatform:       r.OnlinePlatform,
		IsPublished:          r.IsPublished,
	}
}

func (h *EventHandler) Create(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	event, err := h.svc.CreateEvent(c.Request.Context(), req.toInput())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

func (h *EventHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	event, err := h.svc.UpdateEvent(c.Request.Context(), id, req.toInput())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteEvent(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "event deleted"})
}

type RegistrationWindowRequest struct {
	Status string `json:"status" binding:"required,oneof=open closed"`
}

// SetRegistrationWindow lets an admin open or close registration manually.
func (h *EventHandler) SetRegistrationWindow(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RegistrationWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	code := domain.RegistrationOpen
	if req.Status == "closed" {
		code = domain.RegistrationClosed
	}
	if err := h.svc.SetRegistrationStatus(c.Request.Context(), id, code); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "registration " + req.Status})
}

// UploadCover accepts a multipart image and stores it as the event cover.
func (h *EventHandler) UploadCover(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > 10<<20 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 10MB)"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	defer file.Close()

	event, err := h.svc.UploadCover(c.Request.Context(), id, file)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}
