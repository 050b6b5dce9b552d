package bookingRepo

import (
	"context"
	"errors"
	"time"

	"appispot/models"
)

// ErrConflict is returned when an insert would violate the non-overlap
// invariant for a spot, or the interval touches a blacked-out day.
var ErrConflict = errors.New("interval already reserved or blacked out")

// BookingRepository defines data access for bookings, cancellations and
// blackout days. The bookings collection doubles as the availability ledger:
// an interval is reserved iff a pending or confirmed booking covers it.
type BookingRepository interface {
	// InsertIfFree atomically verifies the booking's interval is free and
	// inserts it; returns ErrConflict otherwise.
	InsertIfFree(ctx context.Context, b *models.Booking) error
	// GetByID retrieves a booking by ID; nil if not found.
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// ListByGuest retrieves a guest's bookings, newest first.
	ListByGuest(ctx context.Context, guestID string) ([]models.Booking, error)
	// ListBySpot retrieves all active bookings for a spot.
	ListBySpot(ctx context.Context, spotID string) ([]models.Booking, error)
	// UpdateStatus conditionally transitions a booking from one of the given
	// statuses to the target; returns the updated booking, or nil when no
	// booking matched (already transitioned or missing).
	UpdateStatus(ctx context.Context, id string, from []models.BookingStatus, to models.BookingStatus) (*models.Booking, error)
	// SetPaymentIntent records the payment intent ID on a booking.
	SetPaymentIntent(ctx context.Context, id, intentID string) error
	// CountActiveOverlapping counts pending/confirmed bookings on the spot
	// whose interval overlaps [start, end).
	CountActiveOverlapping(ctx context.Context, spotID string, start, end time.Time) (int64, error)

	// Blackout days.
	CreateBlackout(ctx context.Context, b *models.Blackout) error
	DeleteBlackout(ctx context.Context, id string) error
	ListBlackouts(ctx context.Context, spotID string) ([]models.Blackout, error)
	// CountBlackouts counts blackout records for the spot on any of the days.
	CountBlackouts(ctx context.Context, spotID string, days []string) (int64, error)

	// Cancellations.
	CreateCancellation(ctx context.Context, c *models.Cancellation) error
	ProcessCancellation(ctx context.Context, id string) error
	GetCancellationByBookingID(ctx context.Context, bookingID string) (*models.Cancellation, error)
}
