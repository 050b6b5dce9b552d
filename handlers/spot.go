package handlers

import (
	"net/http"
	"strconv"

	spotRepo "appispot/database/repository/spot"
	"appispot/middleware"
	"appispot/models"
	"appispot/services/ledger"
	"appispot/services/spot"
	"appispot/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SpotHandler exposes listing, review and blackout endpoints.
type SpotHandler struct {
	Service spot.SpotService
	Ledger  ledger.Ledger
}

// ListSpotsHandler handles GET /spots with optional filter query params.
func (h *SpotHandler) ListSpotsHandler(c *gin.Context) {
	filter := spotRepo.SpotFilter{
		City: c.Query("city"),
		Type: c.Query("type"),
	}
	if v, err := strconv.Atoi(c.DefaultQuery("minCapacity", "0")); err == nil {
		filter.MinCapacity = v
	}
	if v, err := strconv.ParseInt(c.DefaultQuery("maxPerHour", "0"), 10, 64); err == nil {
		filter.MaxPerHour = v
	}
	if v, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64); err == nil {
		filter.Offset = v
	}

	spots, err := h.Service.List(filter)
	if err != nil {
		utils.GetLogger().Error("Spot listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list spots"})
		return
	}
	c.JSON(http.StatusOK, spots)
}

// GetSpotHandler handles GET /spots/:id.
func (h *SpotHandler) GetSpotHandler(c *gin.Context) {
	id := c.Param("id")
	s, err := h.Service.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Spot not found"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// CreateSpotHandler handles POST /spots (host only).
func (h *SpotHandler) CreateSpotHandler(c *gin.Context) {
	var req models.Spot
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	created, err := h.Service.Create(middleware.CallerID(c), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateSpotHandler handles PUT /spots/:id (owning host only).
func (h *SpotHandler) UpdateSpotHandler(c *gin.Context) {
	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	updated, err := h.Service.Update(middleware.CallerID(c), c.Param("id"), updates)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// MySpotsHandler handles GET /spots/mine (host only).
func (h *SpotHandler) MySpotsHandler(c *gin.Context) {
	spots, err := h.Service.ListByHost(middleware.CallerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, spots)
}

// AddReviewHandler handles POST /spots/:id/reviews.
func (h *SpotHandler) AddReviewHandler(c *gin.Context) {
	var req struct {
		Rating  int    `json:"rating" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	review, err := h.Service.AddReview(c.Param("id"), middleware.CallerID(c), req.Rating, req.Comment)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, review)
}

// ListReviewsHandler handles GET /spots/:id/reviews.
func (h *SpotHandler) ListReviewsHandler(c *gin.Context) {
	reviews, err := h.Service.Reviews(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// AddBlackoutHandler handles POST /spots/:id/blackouts (owning host only).
func (h *SpotHandler) AddBlackoutHandler(c *gin.Context) {
	spotID := c.Param("id")

	s, err := h.Service.GetByID(spotID)
	if err != nil || s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Spot not found"})
		return
	}
	if s.HostID != middleware.CallerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the host may manage blackout dates"})
		return
	}

	var req struct {
		Date   string `json:"date" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	b, err := h.Ledger.AddBlackout(c.Request.Context(), spotID, req.Date, req.Reason)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, b)
}

// ListBlackoutsHandler handles GET /spots/:id/blackouts.
func (h *SpotHandler) ListBlackoutsHandler(c *gin.Context) {
	blackouts, err := h.Ledger.Blackouts(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, blackouts)
}

// RemoveBlackoutHandler handles DELETE /spots/:id/blackouts/:blackoutId.
func (h *SpotHandler) RemoveBlackoutHandler(c *gin.Context) {
	spotID := c.Param("id")

	s, err := h.Service.GetByID(spotID)
	if err != nil || s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Spot not found"})
		return
	}
	if s.HostID != middleware.CallerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the host may manage blackout dates"})
		return
	}

	if err := h.Ledger.RemoveBlackout(c.Request.Context(), c.Param("blackoutId")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Blackout removed"})
}
