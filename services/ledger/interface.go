package ledger

import (
	"context"
	"time"

	"appispot/models"
)

// Ledger guards a spot's calendar: a half-open interval [start, end) can be
// reserved at most once, and never on a blacked-out day.
type Ledger interface {
	// IsFree reports whether [start, end) on the spot is unreserved and
	// clear of blackouts.
	IsFree(ctx context.Context, spotID string, start, end time.Time) (bool, error)

	// Reserve atomically claims [start, end) by inserting the booking.
	// Returns a ConflictError when the interval is already taken.
	Reserve(ctx context.Context, b *models.Booking) error

	// Release frees a booking's interval by moving it to the given status.
	// When from-statuses are supplied the flip only happens if the booking
	// is currently in one of them; nil is returned either way, with the
	// updated booking reported when the flip happened.
	Release(ctx context.Context, bookingID string, to models.BookingStatus, from ...models.BookingStatus) (*models.Booking, error)

	// AddBlackout excludes a whole day from reservation. Existing bookings
	// on that day are unaffected.
	AddBlackout(ctx context.Context, spotID, date, reason string) (*models.Blackout, error)

	// RemoveBlackout deletes a blackout by ID.
	RemoveBlackout(ctx context.Context, blackoutID string) error

	// Blackouts lists a spot's blackout days.
	Blackouts(ctx context.Context, spotID string) ([]models.Blackout, error)
}
