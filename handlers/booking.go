package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	spotRepo "appispot/database/repository/spot"
	"appispot/middleware"
	"appispot/models"
	"appispot/services/booking"
	"appispot/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking lifecycle endpoints.
type BookingHandler struct {
	Service booking.BookingService
	Spots   spotRepo.SpotRepository
}

// isSpotHost reports whether userID hosts the booking's spot.
func (h *BookingHandler) isSpotHost(userID, spotID string) bool {
	if h.Spots == nil {
		return false
	}
	spot, err := h.Spots.GetByID(spotID)
	if err != nil || spot == nil {
		return false
	}
	return spot.HostID == userID
}

// statusForBookingError maps the workflow's typed errors to HTTP statuses.
func statusForBookingError(err error) int {
	var invalidInterval *booking.InvalidIntervalError
	var capacity *booking.CapacityExceededError
	var unavailable *booking.SlotUnavailableError
	var invalidState *booking.InvalidStateError

	switch {
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &invalidInterval), errors.As(err, &capacity):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return http.StatusConflict
	case errors.As(err, &invalidState):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// QuoteHandler handles POST /bookings/quote. Quotes are cached briefly so the
// client can poll the breakdown while filling the payment form.
func (h *BookingHandler) QuoteHandler(c *gin.Context) {
	var req struct {
		SpotID string    `json:"spotId" binding:"required"`
		Start  time.Time `json:"start" binding:"required"`
		End    time.Time `json:"end" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	cacheKey := fmt.Sprintf("%s%s:%d:%d",
		utils.QuoteCachePrefix, req.SpotID, req.Start.Unix(), req.End.Unix())
	ctx := context.Background()

	if cache := utils.GetCacheClient(); cache != nil {
		if raw, err := cache.Get(ctx, cacheKey).Result(); err == nil {
			var q models.Quote
			if json.Unmarshal([]byte(raw), &q) == nil {
				c.JSON(http.StatusOK, q)
				return
			}
		}
	}

	q, err := h.Service.Quote(c.Request.Context(), req.SpotID, req.Start, req.End)
	if err != nil {
		c.JSON(statusForBookingError(err), gin.H{"error": err.Error()})
		return
	}

	if cache := utils.GetCacheClient(); cache != nil {
		if raw, err := json.Marshal(q); err == nil {
			if err := cache.Set(ctx, cacheKey, raw, utils.QuoteCacheTTL).Err(); err != nil {
				utils.GetLogger().Warn("quote cache write failed", zap.Error(err))
			}
		}
	}
	c.JSON(http.StatusOK, q)
}

// CreateBookingHandler handles POST /bookings.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	logger := utils.GetLogger()

	var req booking.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	req.GuestID = middleware.CallerID(c)

	b, err := h.Service.RequestBooking(c.Request.Context(), req)
	if err != nil {
		status := statusForBookingError(err)
		if status == http.StatusInternalServerError {
			logger.Error("Booking request failed", zap.String("spotId", req.SpotID), zap.Error(err))
			c.JSON(status, gin.H{"error": "Failed to create booking"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GetBookingHandler handles GET /bookings/:id.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusForBookingError(err), gin.H{"error": err.Error()})
		return
	}
	if b.GuestID != middleware.CallerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your booking"})
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListUserBookingsHandler handles GET /bookings/user/:userId.
func (h *BookingHandler) ListUserBookingsHandler(c *gin.Context) {
	userID := c.Param("userId")
	if userID != middleware.CallerID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot view another user's bookings"})
		return
	}

	bookings, err := h.Service.ListByGuest(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// ListSpotBookingsHandler handles GET /bookings/spot/:spotId.
func (h *BookingHandler) ListSpotBookingsHandler(c *gin.Context) {
	bookings, err := h.Service.ListBySpot(c.Request.Context(), c.Param("spotId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// UpdateStatusHandler handles PATCH /bookings/:id/status. The status change
// always runs through the workflow, never as a raw field write.
func (h *BookingHandler) UpdateStatusHandler(c *gin.Context) {
	bookingID := c.Param("id")

	var req struct {
		Status models.BookingStatus `json:"status" binding:"required"`
		Reason string               `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	current, err := h.Service.Get(c.Request.Context(), bookingID)
	if err != nil {
		c.JSON(statusForBookingError(err), gin.H{"error": err.Error()})
		return
	}
	callerID := middleware.CallerID(c)

	switch req.Status {
	case models.BookingConfirmed:
		// Only the guest confirms; they hold the payment.
		if current.GuestID != callerID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not your booking"})
			return
		}
		b, err := h.Service.ConfirmPayment(c.Request.Context(), bookingID)
		if err != nil {
			c.JSON(statusForBookingError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, b)
	case models.BookingCancelled:
		// Either side of the booking may cancel it.
		if current.GuestID != callerID && !h.isSpotHost(callerID, current.SpotID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not your booking"})
			return
		}
		cancellation, err := h.Service.Cancel(c.Request.Context(), bookingID, req.Reason)
		if err != nil {
			c.JSON(statusForBookingError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, cancellation)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be 'confirmed' or 'cancelled'"})
	}
}
