package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"appispot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DaysTouched returns every "YYYY-MM-DD" day (UTC) the half-open interval
// [start, end) touches.
func DaysTouched(start, end time.Time) []string {
	start = start.UTC()
	end = end.UTC()

	var days []string
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for day.Before(end) {
		days = append(days, day.Format("2006-01-02"))
		day = day.AddDate(0, 0, 1)
	}
	return days
}

// InsertIfFree atomically verifies the interval is free of overlapping active
// bookings and blackout days, then inserts the booking. The check and the
// insert run in one session transaction so concurrent attempts on overlapping
// intervals cannot both commit.
func (r *MongoBookingRepo) InsertIfFree(ctx context.Context, b *models.Booking) error {
	client := r.bookingColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		overlapFilter := bson.M{
			"spotId": b.SpotID,
			"status": bson.M{"$in": models.ActiveStatuses},
			"start":  bson.M{"$lt": b.End},
			"end":    bson.M{"$gt": b.Start},
		}
		overlapping, err := r.bookingColl.CountDocuments(sc, overlapFilter)
		if err != nil {
			return fmt.Errorf("overlap check failed: %w", err)
		}
		if overlapping > 0 {
			return ErrConflict
		}

		days := DaysTouched(b.Start, b.End)
		blackoutFilter := bson.M{"spotId": b.SpotID, "date": bson.M{"$in": days}}
		blackouts, err := r.blackoutColl.CountDocuments(sc, blackoutFilter)
		if err != nil {
			return fmt.Errorf("blackout check failed: %w", err)
		}
		if blackouts > 0 {
			return ErrConflict
		}

		if _, err := r.bookingColl.InsertOne(sc, b); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		if err == ErrConflict {
			return ErrConflict
		}
		return fmt.Errorf("reservation transaction failed: %w", err)
	}

	return nil
}
