package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	bookingRepo "appispot/database/repository/booking"
	"appispot/models"

	"github.com/google/uuid"
)

// memBookingRepo is an in-memory BookingRepository. InsertIfFree holds the
// same check-and-insert atomicity the Mongo implementation gets from a
// transaction.
type memBookingRepo struct {
	mu            sync.Mutex
	bookings      map[string]*models.Booking
	blackouts     map[string]*models.Blackout
	cancellations map[string]*models.Cancellation
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{
		bookings:      make(map[string]*models.Booking),
		blackouts:     make(map[string]*models.Blackout),
		cancellations: make(map[string]*models.Cancellation),
	}
}

func (r *memBookingRepo) overlapsLocked(spotID string, start, end time.Time) bool {
	for _, b := range r.bookings {
		if b.SpotID == spotID && b.Active() && b.Start.Before(end) && b.End.After(start) {
			return true
		}
	}
	return false
}

func (r *memBookingRepo) blackedOutLocked(spotID string, days []string) bool {
	for _, bl := range r.blackouts {
		if bl.SpotID != spotID {
			continue
		}
		for _, d := range days {
			if bl.Date == d {
				return true
			}
		}
	}
	return false
}

func (r *memBookingRepo) InsertIfFree(ctx context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlapsLocked(b.SpotID, b.Start, b.End) {
		return bookingRepo.ErrConflict
	}
	if r.blackedOutLocked(b.SpotID, bookingRepo.DaysTouched(b.Start, b.End)) {
		return bookingRepo.ErrConflict
	}
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) ListByGuest(ctx context.Context, guestID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.GuestID == guestID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) ListBySpot(ctx context.Context, spotID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.SpotID == spotID && b.Active() {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) UpdateStatus(ctx context.Context, id string, from []models.BookingStatus, to models.BookingStatus) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	for _, f := range from {
		if b.Status == f {
			b.Status = to
			b.UpdatedAt = time.Now()
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memBookingRepo) SetPaymentIntent(ctx context.Context, id, intentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[id]; ok {
		b.PaymentIntentID = intentID
	}
	return nil
}

func (r *memBookingRepo) CountActiveOverlapping(ctx context.Context, spotID string, start, end time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlapsLocked(spotID, start, end) {
		return 1, nil
	}
	return 0, nil
}

func (r *memBookingRepo) CreateBlackout(ctx context.Context, b *models.Blackout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.blackouts[b.ID] = &cp
	return nil
}

func (r *memBookingRepo) DeleteBlackout(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blackouts, id)
	return nil
}

func (r *memBookingRepo) ListBlackouts(ctx context.Context, spotID string) ([]models.Blackout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Blackout
	for _, b := range r.blackouts {
		if b.SpotID == spotID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) CountBlackouts(ctx context.Context, spotID string, days []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blackedOutLocked(spotID, days) {
		return 1, nil
	}
	return 0, nil
}

func (r *memBookingRepo) CreateCancellation(ctx context.Context, c *models.Cancellation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.cancellations[c.ID] = &cp
	return nil
}

func (r *memBookingRepo) ProcessCancellation(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cancellations[id]; ok {
		now := time.Now()
		c.Status = models.CancellationProcessed
		c.ProcessedAt = &now
	}
	return nil
}

func (r *memBookingRepo) GetCancellationByBookingID(ctx context.Context, bookingID string) (*models.Cancellation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cancellations {
		if c.BookingID == bookingID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

var _ bookingRepo.BookingRepository = (*memBookingRepo)(nil)

func newBooking(spotID string, start, end time.Time) *models.Booking {
	return &models.Booking{
		ID:     uuid.New().String(),
		SpotID: spotID,
		Status: models.BookingPending,
		Start:  start,
		End:    end,
	}
}

func at(hour int) time.Time {
	return time.Date(2025, 6, 1, hour, 0, 0, 0, time.UTC)
}

func TestReserveRejectsOverlap(t *testing.T) {
	l := NewDefaultLedger(newMemBookingRepo())
	ctx := context.Background()

	if err := l.Reserve(ctx, newBooking("spot1", at(10), at(12))); err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	err := l.Reserve(ctx, newBooking("spot1", at(11), at(13)))
	if err == nil {
		t.Fatal("overlapping reserve should fail")
	}
	if _, ok := err.(*ConflictError); !ok {
		t.Fatalf("got %T, want *ConflictError", err)
	}
}

func TestReserveAllowsAdjacentIntervals(t *testing.T) {
	l := NewDefaultLedger(newMemBookingRepo())
	ctx := context.Background()

	if err := l.Reserve(ctx, newBooking("spot1", at(10), at(12))); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	// [12, 13) shares only the boundary instant, which belongs to the
	// second interval.
	if err := l.Reserve(ctx, newBooking("spot1", at(12), at(13))); err != nil {
		t.Fatalf("adjacent reserve should succeed: %v", err)
	}
}

func TestReserveIndependentSpots(t *testing.T) {
	l := NewDefaultLedger(newMemBookingRepo())
	ctx := context.Background()

	if err := l.Reserve(ctx, newBooking("spot1", at(10), at(12))); err != nil {
		t.Fatalf("reserve spot1: %v", err)
	}
	if err := l.Reserve(ctx, newBooking("spot2", at(10), at(12))); err != nil {
		t.Fatalf("same interval on another spot should succeed: %v", err)
	}
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	l := NewDefaultLedger(newMemBookingRepo())
	ctx := context.Background()

	b := newBooking("spot1", at(10), at(12))
	if err := l.Reserve(ctx, b); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	free, err := l.IsFree(ctx, "spot1", at(10), at(12))
	if err != nil {
		t.Fatalf("isFree: %v", err)
	}
	if free {
		t.Fatal("interval should be taken after reserve")
	}

	released, err := l.Release(ctx, b.ID, models.BookingCancelled)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released == nil || released.Status != models.BookingCancelled {
		t.Fatalf("release result = %+v, want cancelled booking", released)
	}

	free, err = l.IsFree(ctx, "spot1", at(10), at(12))
	if err != nil {
		t.Fatalf("isFree: %v", err)
	}
	if !free {
		t.Fatal("interval should be free again after release")
	}
	if err := l.Reserve(ctx, newBooking("spot1", at(10), at(12))); err != nil {
		t.Fatalf("re-reserve after release should succeed: %v", err)
	}
}

func TestReleaseRestrictedByFromStatus(t *testing.T) {
	l := NewDefaultLedger(newMemBookingRepo())
	ctx := context.Background()

	b := newBooking("spot1", at(10), at(12))
	if err := l.Reserve(ctx, b); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := l.Release(ctx, b.ID, models.BookingConfirmed, models.BookingPending); err != nil {
		t.Fatalf("confirm flip: %v", err)
	}

	// Pending-only release must not touch a confirmed booking.
	released, err := l.Release(ctx, b.ID, models.BookingCancelled, models.BookingPending)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released != nil {
		t.Fatalf("expected no-op release, got %+v", released)
	}
}

func TestConcurrentReserveExactlyOneWins(t *testing.T) {
	l := NewDefaultLedger(newMemBookingRepo())
	ctx := context.Background()

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.Reserve(ctx, newBooking("spot1", at(10), at(12)))
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch err.(type) {
		case nil:
			wins++
		case *ConflictError:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1 (conflicts = %d)", wins, conflicts)
	}
}

func TestBlackoutBlocksReserve(t *testing.T) {
	l := NewDefaultLedger(newMemBookingRepo())
	ctx := context.Background()

	bl, err := l.AddBlackout(ctx, "spot1", "2025-06-01", "maintenance")
	if err != nil {
		t.Fatalf("addBlackout: %v", err)
	}

	if err := l.Reserve(ctx, newBooking("spot1", at(10), at(12))); err == nil {
		t.Fatal("reserve on a blacked-out day should fail")
	}
	free, err := l.IsFree(ctx, "spot1", at(10), at(12))
	if err != nil {
		t.Fatalf("isFree: %v", err)
	}
	if free {
		t.Fatal("blacked-out interval should not be free")
	}

	// Other days are unaffected.
	nextDay := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	if err := l.Reserve(ctx, newBooking("spot1", nextDay, nextDay.Add(2*time.Hour))); err != nil {
		t.Fatalf("reserve on another day: %v", err)
	}

	if err := l.RemoveBlackout(ctx, bl.ID); err != nil {
		t.Fatalf("removeBlackout: %v", err)
	}
	if err := l.Reserve(ctx, newBooking("spot1", at(10), at(12))); err != nil {
		t.Fatalf("reserve after blackout removal: %v", err)
	}
}

func TestAddBlackoutRejectsMalformedDate(t *testing.T) {
	l := NewDefaultLedger(newMemBookingRepo())
	if _, err := l.AddBlackout(context.Background(), "spot1", "June 1st", "whatever"); err == nil {
		t.Fatal("malformed date should be rejected")
	}
}
