package booking

import (
	"errors"
	"fmt"

	"appispot/models"
)

// ErrNotFound is returned when the referenced booking or spot does not exist.
var ErrNotFound = errors.New("not found")

// InvalidIntervalError reports a malformed requested interval.
type InvalidIntervalError struct {
	Reason string
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval: %s", e.Reason)
}

// CapacityExceededError reports a guest count above the spot's capacity.
type CapacityExceededError struct {
	Requested int
	Capacity  int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("guest count %d exceeds capacity %d", e.Requested, e.Capacity)
}

// SlotUnavailableError reports that the requested interval is already
// reserved or blacked out.
type SlotUnavailableError struct {
	SpotID string
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("spot %s is not available for the requested interval", e.SpotID)
}

// InvalidStateError reports an operation attempted on a booking whose status
// does not permit it.
type InvalidStateError struct {
	BookingID string
	Status    models.BookingStatus
	Op        string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s booking %s in status %s", e.Op, e.BookingID, e.Status)
}
