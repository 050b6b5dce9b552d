package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Booking represents a reserved [start, end) interval on a spot.
type Booking struct {
	ID              string        `bson:"id" json:"id"`
	SpotID          string        `bson:"spotId" json:"spotId"`
	GuestID         string        `bson:"guestId" json:"guestId"`
	Start           time.Time     `bson:"start" json:"start"`
	End             time.Time     `bson:"end" json:"end"`
	TotalAmount     int64         `bson:"totalAmount" json:"totalAmount"` // minor units (cents)
	Status          BookingStatus `bson:"status" json:"status"`
	EventType       string        `bson:"eventType" json:"eventType"`
	GuestCount      int           `bson:"guestCount" json:"guestCount"`
	SpecialRequests string        `bson:"specialRequests,omitempty" json:"specialRequests,omitempty"`
	PaymentIntentID string        `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Active reports whether the booking still occupies its interval.
func (b *Booking) Active() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// ActiveStatuses are the statuses that make an interval count as reserved.
var ActiveStatuses = []BookingStatus{BookingPending, BookingConfirmed}

// CancellationStatus is the processing state of a cancellation record.
type CancellationStatus string

const (
	CancellationPending   CancellationStatus = "pending"
	CancellationProcessed CancellationStatus = "processed"
)

// Cancellation records the outcome of cancelling a booking (1:1).
type Cancellation struct {
	ID           string             `bson:"id" json:"id"`
	BookingID    string             `bson:"bookingId" json:"bookingId"`
	Reason       string             `bson:"reason" json:"reason"`
	RefundAmount int64              `bson:"refundAmount" json:"refundAmount"` // <= booking total, minor units
	Status       CancellationStatus `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	ProcessedAt  *time.Time         `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
}

// Quote is a price breakdown computed at request time. Fees and taxes are
// policy-derived and never stored on the booking itself.
type Quote struct {
	SpotID     string    `json:"spotId"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Currency   string    `json:"currency"`
	Subtotal   int64     `json:"subtotal"`   // pricePerHour * hours, minor units
	ServiceFee int64     `json:"serviceFee"` // policy percentage of subtotal
	Tax        int64     `json:"tax"`        // policy percentage of subtotal
	Total      int64     `json:"total"`
}
