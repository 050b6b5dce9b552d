package booking

import (
	"context"
	"fmt"
	"time"

	"appispot/config"
	bookingRepo "appispot/database/repository/booking"
	spotRepo "appispot/database/repository/spot"
	"appispot/models"
	"appispot/services/ledger"
	"appispot/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultWorkflow implements BookingService. Dependencies are injected so the
// lifecycle can be exercised against in-memory fakes.
type DefaultWorkflow struct {
	Spots    spotRepo.SpotRepository
	Bookings bookingRepo.BookingRepository
	Ledger   ledger.Ledger
	Gateway  PaymentGateway
	Pricing  PricingPolicy

	// RefundWindow is how far before start a cancellation still earns a
	// full refund. PendingTTL is how long an unpaid booking holds its slot.
	RefundWindow time.Duration
	PendingTTL   time.Duration

	Scheduler ExpiryScheduler

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (w *DefaultWorkflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// Quote prices an interval on a spot without reserving it.
func (w *DefaultWorkflow) Quote(ctx context.Context, spotID string, start, end time.Time) (*models.Quote, error) {
	if !end.After(start) {
		return nil, &InvalidIntervalError{Reason: "end must be after start"}
	}
	spot, err := w.Spots.GetByID(spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spot: %w", err)
	}
	if spot == nil {
		return nil, ErrNotFound
	}
	q := w.Pricing.Quote(spot.PricePerHour, start, end)
	q.SpotID = spotID
	q.Start = start
	q.End = end
	q.Currency = config.AppConfig.Currency
	return &q, nil
}

// RequestBooking validates the request, atomically reserves the interval and
// creates a pending booking. A payment intent is opened for the total and an
// expiry task is scheduled to reclaim the slot if payment never arrives.
func (w *DefaultWorkflow) RequestBooking(ctx context.Context, req BookingRequest) (*models.Booking, error) {
	if !req.End.After(req.Start) {
		return nil, &InvalidIntervalError{Reason: "end must be after start"}
	}
	if req.Start.Before(w.now()) {
		return nil, &InvalidIntervalError{Reason: "start is in the past"}
	}

	spot, err := w.Spots.GetByID(req.SpotID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spot: %w", err)
	}
	if spot == nil || spot.Status != models.SpotStatusActive {
		return nil, ErrNotFound
	}
	if req.GuestCount > spot.Capacity {
		return nil, &CapacityExceededError{Requested: req.GuestCount, Capacity: spot.Capacity}
	}

	// TotalAmount stores the base price only; fee and tax lines are derived
	// from policy at quote time and charged on top.
	quote := w.Pricing.Quote(spot.PricePerHour, req.Start, req.End)
	now := w.now()
	b := &models.Booking{
		ID:              uuid.New().String(),
		SpotID:          req.SpotID,
		GuestID:         req.GuestID,
		Start:           req.Start,
		End:             req.End,
		TotalAmount:     quote.Subtotal,
		Status:          models.BookingPending,
		EventType:       req.EventType,
		GuestCount:      req.GuestCount,
		SpecialRequests: req.SpecialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := w.Ledger.Reserve(ctx, b); err != nil {
		if _, ok := err.(*ledger.ConflictError); ok {
			return nil, &SlotUnavailableError{SpotID: req.SpotID}
		}
		return nil, fmt.Errorf("reservation failed: %w", err)
	}

	if w.Gateway != nil {
		intentID, _, err := w.Gateway.CreateIntent(ctx, quote.Total, b.ID)
		if err != nil {
			// The slot is held; undo the reservation rather than leave
			// an unpayable booking behind.
			if _, relErr := w.Ledger.Release(ctx, b.ID, models.BookingCancelled, models.BookingPending); relErr != nil {
				utils.GetLogger().Error("failed to release after payment setup error",
					zap.String("bookingId", b.ID), zap.Error(relErr))
			} else {
				w.recordCancellation(ctx, b.ID, "payment setup failed")
			}
			return nil, fmt.Errorf("payment setup failed: %w", err)
		}
		b.PaymentIntentID = intentID
		if err := w.Bookings.SetPaymentIntent(ctx, b.ID, intentID); err != nil {
			return nil, fmt.Errorf("failed to record payment intent: %w", err)
		}
	}

	if w.Scheduler != nil && w.PendingTTL > 0 {
		if err := w.Scheduler.ScheduleExpiry(b.ID, now.Add(w.PendingTTL)); err != nil {
			utils.GetLogger().Warn("failed to schedule booking expiry",
				zap.String("bookingId", b.ID), zap.Error(err))
		}
	}

	utils.GetLogger().Info("booking requested",
		zap.String("bookingId", b.ID),
		zap.String("spotId", b.SpotID),
		zap.Int64("totalAmount", b.TotalAmount))
	return b, nil
}

// ConfirmPayment checks the payment intent succeeded and flips the booking
// from pending to confirmed.
func (w *DefaultWorkflow) ConfirmPayment(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := w.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if b.Status != models.BookingPending {
		return nil, &InvalidStateError{BookingID: bookingID, Status: b.Status, Op: "confirm"}
	}

	paid := false
	if w.Gateway != nil && b.PaymentIntentID != "" {
		ok, err := w.Gateway.ConfirmIntent(ctx, b.PaymentIntentID)
		if err != nil {
			return nil, fmt.Errorf("payment verification failed: %w", err)
		}
		if !ok {
			return nil, &InvalidStateError{BookingID: bookingID, Status: b.Status, Op: "confirm unpaid"}
		}
		paid = true
	}

	updated, err := w.Bookings.UpdateStatus(ctx, bookingID,
		[]models.BookingStatus{models.BookingPending}, models.BookingConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}
	if updated == nil {
		// Lost a race with expiry or cancellation. The charge went through,
		// so the guest gets their money back.
		if paid {
			if err := w.Gateway.Refund(ctx, b.PaymentIntentID, b.TotalAmount); err != nil {
				utils.GetLogger().Error("failed to refund after lost confirm race",
					zap.String("bookingId", bookingID), zap.Error(err))
			}
		}
		return nil, &InvalidStateError{BookingID: bookingID, Status: b.Status, Op: "confirm"}
	}

	utils.GetLogger().Info("booking confirmed", zap.String("bookingId", bookingID))
	return updated, nil
}

// refundFor applies the cancellation policy: full refund when the booking is
// cancelled at least RefundWindow before start (boundary inclusive), else 0.
func (w *DefaultWorkflow) refundFor(b *models.Booking) int64 {
	if b.Start.Sub(w.now()) >= w.RefundWindow {
		return b.TotalAmount
	}
	return 0
}

// Cancel cancels a pending or confirmed booking. The interval is released and
// the refund owed under the policy is recorded; captured payments are refunded
// through the gateway.
func (w *DefaultWorkflow) Cancel(ctx context.Context, bookingID, reason string) (*models.Cancellation, error) {
	b, err := w.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	if b == nil {
		return nil, ErrNotFound
	}
	if !b.Active() {
		return nil, &InvalidStateError{BookingID: bookingID, Status: b.Status, Op: "cancel"}
	}

	wasConfirmed := b.Status == models.BookingConfirmed
	refund := w.refundFor(b)

	released, err := w.Ledger.Release(ctx, bookingID, models.BookingCancelled, models.ActiveStatuses...)
	if err != nil {
		return nil, fmt.Errorf("failed to release reservation: %w", err)
	}
	if released == nil {
		return nil, &InvalidStateError{BookingID: bookingID, Status: b.Status, Op: "cancel"}
	}

	c := &models.Cancellation{
		ID:           uuid.New().String(),
		BookingID:    bookingID,
		Reason:       reason,
		RefundAmount: refund,
		Status:       models.CancellationPending,
		CreatedAt:    w.now(),
	}
	if err := w.Bookings.CreateCancellation(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to record cancellation: %w", err)
	}

	// Money only moves when a payment was actually captured.
	if wasConfirmed && refund > 0 && w.Gateway != nil && b.PaymentIntentID != "" {
		if err := w.Gateway.Refund(ctx, b.PaymentIntentID, refund); err != nil {
			utils.GetLogger().Error("refund failed, cancellation left pending",
				zap.String("bookingId", bookingID), zap.Error(err))
			return c, nil
		}
	}
	if err := w.Bookings.ProcessCancellation(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("failed to finalize cancellation: %w", err)
	}
	now := w.now()
	c.Status = models.CancellationProcessed
	c.ProcessedAt = &now

	utils.GetLogger().Info("booking cancelled",
		zap.String("bookingId", bookingID),
		zap.Int64("refundAmount", refund))
	return c, nil
}

// recordCancellation writes the zero-refund cancellation record for bookings
// the system cancels itself, keeping every cancelled booking paired with one.
func (w *DefaultWorkflow) recordCancellation(ctx context.Context, bookingID, reason string) {
	c := &models.Cancellation{
		ID:           uuid.New().String(),
		BookingID:    bookingID,
		Reason:       reason,
		RefundAmount: 0,
		Status:       models.CancellationPending,
		CreatedAt:    w.now(),
	}
	if err := w.Bookings.CreateCancellation(ctx, c); err != nil {
		utils.GetLogger().Error("failed to record cancellation",
			zap.String("bookingId", bookingID), zap.Error(err))
		return
	}
	if err := w.Bookings.ProcessCancellation(ctx, c.ID); err != nil {
		utils.GetLogger().Error("failed to finalize cancellation",
			zap.String("bookingId", bookingID), zap.Error(err))
	}
}

// ExpirePending reclaims the slot held by an unpaid booking. Bookings that
// were confirmed or cancelled in the meantime are left alone.
func (w *DefaultWorkflow) ExpirePending(ctx context.Context, bookingID string) error {
	released, err := w.Ledger.Release(ctx, bookingID, models.BookingCancelled, models.BookingPending)
	if err != nil {
		return fmt.Errorf("expiry release failed: %w", err)
	}
	if released != nil {
		w.recordCancellation(ctx, bookingID, "expired")
		utils.GetLogger().Info("pending booking expired", zap.String("bookingId", bookingID))
	}
	return nil
}

// completeElapsed lazily flips confirmed bookings whose end has passed to
// completed, so reads always reflect the current lifecycle stage.
func (w *DefaultWorkflow) completeElapsed(ctx context.Context, b *models.Booking) *models.Booking {
	if b.Status != models.BookingConfirmed || b.End.After(w.now()) {
		return b
	}
	updated, err := w.Bookings.UpdateStatus(ctx, b.ID,
		[]models.BookingStatus{models.BookingConfirmed}, models.BookingCompleted)
	if err != nil || updated == nil {
		return b
	}
	return updated
}

// Get retrieves a booking by ID.
func (w *DefaultWorkflow) Get(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := w.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking: %w", err)
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return w.completeElapsed(ctx, b), nil
}

// ListByGuest retrieves a guest's bookings, newest first.
func (w *DefaultWorkflow) ListByGuest(ctx context.Context, guestID string) ([]models.Booking, error) {
	bookings, err := w.Bookings.ListByGuest(ctx, guestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	for i := range bookings {
		bookings[i] = *w.completeElapsed(ctx, &bookings[i])
	}
	return bookings, nil
}

// ListBySpot retrieves a spot's active bookings.
func (w *DefaultWorkflow) ListBySpot(ctx context.Context, spotID string) ([]models.Booking, error) {
	bookings, err := w.Bookings.ListBySpot(ctx, spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}
