package booking

import (
	"context"
	"time"

	"appispot/models"
)

// BookingRequest carries the guest's requested reservation.
type BookingRequest struct {
	SpotID          string    `json:"spotId" binding:"required"`
	GuestID         string    `json:"guestId"`
	Start           time.Time `json:"start" binding:"required"`
	End             time.Time `json:"end" binding:"required"`
	GuestCount      int       `json:"guestCount"`
	EventType       string    `json:"eventType"`
	SpecialRequests string    `json:"specialRequests"`
}

// BookingService drives the booking lifecycle from request through payment,
// completion and cancellation.
type BookingService interface {
	// Quote prices an interval on a spot without reserving it.
	Quote(ctx context.Context, spotID string, start, end time.Time) (*models.Quote, error)

	// RequestBooking validates the request, reserves the interval and
	// creates a pending booking with a payment intent attached.
	RequestBooking(ctx context.Context, req BookingRequest) (*models.Booking, error)

	// ConfirmPayment verifies the booking's payment intent succeeded and
	// transitions pending to confirmed.
	ConfirmPayment(ctx context.Context, bookingID string) (*models.Booking, error)

	// Cancel cancels a pending or confirmed booking, computes the refund
	// owed under the cancellation policy and releases the interval.
	Cancel(ctx context.Context, bookingID, reason string) (*models.Cancellation, error)

	// ExpirePending cancels a booking that is still pending, releasing its
	// interval. A no-op when the booking has already moved on.
	ExpirePending(ctx context.Context, bookingID string) error

	// Get retrieves a booking by ID.
	Get(ctx context.Context, bookingID string) (*models.Booking, error)

	// ListByGuest retrieves a guest's bookings, newest first.
	ListByGuest(ctx context.Context, guestID string) ([]models.Booking, error)

	// ListBySpot retrieves a spot's active bookings.
	ListBySpot(ctx context.Context, spotID string) ([]models.Booking, error)
}

// ExpiryScheduler enqueues the deferred reclaim of an unpaid booking.
type ExpiryScheduler interface {
	ScheduleExpiry(bookingID string, processAt time.Time) error
}
