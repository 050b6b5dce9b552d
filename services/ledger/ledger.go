package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	bookingRepo "appispot/database/repository/booking"
	"appispot/models"
	"appispot/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLedger implements Ledger on top of the booking repository. It
// serializes reservations per spot with a mutex so that even without a
// transactional backend two concurrent attempts on overlapping intervals
// cannot both pass the free check.
type DefaultLedger struct {
	Repo bookingRepo.BookingRepository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDefaultLedger constructs a ledger backed by the given repository.
func NewDefaultLedger(repo bookingRepo.BookingRepository) *DefaultLedger {
	return &DefaultLedger{
		Repo:  repo,
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *DefaultLedger) spotLock(spotID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[spotID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[spotID] = lock
	}
	return lock
}

// IsFree reports whether the interval has no active booking overlap and
// touches no blacked-out day.
func (l *DefaultLedger) IsFree(ctx context.Context, spotID string, start, end time.Time) (bool, error) {
	overlapping, err := l.Repo.CountActiveOverlapping(ctx, spotID, start, end)
	if err != nil {
		return false, fmt.Errorf("availability check failed: %w", err)
	}
	if overlapping > 0 {
		return false, nil
	}

	blackouts, err := l.Repo.CountBlackouts(ctx, spotID, bookingRepo.DaysTouched(start, end))
	if err != nil {
		return false, fmt.Errorf("blackout check failed: %w", err)
	}
	return blackouts == 0, nil
}

// Reserve claims the booking's interval. The per-spot lock plus the
// repository's transactional insert make the claim atomic.
func (l *DefaultLedger) Reserve(ctx context.Context, b *models.Booking) error {
	lock := l.spotLock(b.SpotID)
	lock.Lock()
	defer lock.Unlock()

	if err := l.Repo.InsertIfFree(ctx, b); err != nil {
		if err == bookingRepo.ErrConflict {
			return &ConflictError{SpotID: b.SpotID, Start: b.Start, End: b.End}
		}
		return err
	}

	utils.GetLogger().Info("interval reserved",
		zap.String("bookingId", b.ID),
		zap.String("spotId", b.SpotID),
		zap.Time("start", b.Start),
		zap.Time("end", b.End))
	return nil
}

// Release transitions the booking's status, freeing its interval when the
// target status is terminal. The conditional update makes concurrent releases
// idempotent: only one caller sees the flipped booking.
func (l *DefaultLedger) Release(ctx context.Context, bookingID string, to models.BookingStatus, from ...models.BookingStatus) (*models.Booking, error) {
	if len(from) == 0 {
		from = models.ActiveStatuses
	}
	updated, err := l.Repo.UpdateStatus(ctx, bookingID, from, to)
	if err != nil {
		return nil, fmt.Errorf("release failed: %w", err)
	}
	if updated != nil {
		utils.GetLogger().Info("interval released",
			zap.String("bookingId", bookingID),
			zap.String("status", string(to)))
	}
	return updated, nil
}

// AddBlackout records a whole-day exclusion for the spot.
func (l *DefaultLedger) AddBlackout(ctx context.Context, spotID, date, reason string) (*models.Blackout, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid blackout date %q: %w", date, err)
	}
	b := &models.Blackout{
		ID:        uuid.New().String(),
		SpotID:    spotID,
		Date:      date,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	if err := l.Repo.CreateBlackout(ctx, b); err != nil {
		return nil, fmt.Errorf("create blackout failed: %w", err)
	}
	return b, nil
}

// RemoveBlackout deletes a blackout day.
func (l *DefaultLedger) RemoveBlackout(ctx context.Context, blackoutID string) error {
	return l.Repo.DeleteBlackout(ctx, blackoutID)
}

// Blackouts lists a spot's blackout days.
func (l *DefaultLedger) Blackouts(ctx context.Context, spotID string) ([]models.Blackout, error) {
	return l.Repo.ListBlackouts(ctx, spotID)
}
