package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"appispot/database"
	"appispot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	bookingColl  *mongo.Collection
	blackoutColl *mongo.Collection
	cxlColl      *mongo.Collection
}

// NewMongoBookingRepo constructs a new instance of MongoBookingRepo.
func NewMongoBookingRepo() BookingRepository {
	db := database.DB()
	repo := &MongoBookingRepo{
		bookingColl:  db.Collection("bookings"),
		blackoutColl: db.Collection("blackouts"),
		cxlColl:      db.Collection("cancellations"),
	}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bookingIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "spotId", Value: 1}, {Key: "status", Value: 1}, {Key: "start", Value: 1}}},
		{Keys: bson.D{{Key: "guestId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := r.bookingColl.Indexes().CreateMany(ctx, bookingIndexes); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	blackoutIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "spotId", Value: 1}, {Key: "date", Value: 1}}},
	}
	if _, err := r.blackoutColl.Indexes().CreateMany(ctx, blackoutIndexes); err != nil {
		return fmt.Errorf("failed to create blackout indexes: %w", err)
	}

	cxlIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "bookingId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := r.cxlColl.Indexes().CreateMany(ctx, cxlIndexes); err != nil {
		return fmt.Errorf("failed to create cancellation indexes: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by ID; nil if not found.
func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := r.bookingColl.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching booking with id %s: %w", id, err)
	}
	return &b, nil
}

// ListByGuest retrieves a guest's bookings, newest first.
func (r *MongoBookingRepo) ListByGuest(ctx context.Context, guestID string) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.bookingColl.Find(ctx, bson.M{"guestId": guestID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings for guest %s: %w", guestID, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return bookings, nil
}

// ListBySpot retrieves all active bookings for a spot.
func (r *MongoBookingRepo) ListBySpot(ctx context.Context, spotID string) ([]models.Booking, error) {
	filter := bson.M{"spotId": spotID, "status": bson.M{"$in": models.ActiveStatuses}}
	cursor, err := r.bookingColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings for spot %s: %w", spotID, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// UpdateStatus conditionally transitions a booking. Returns nil, nil when no
// booking matched the id plus allowed source statuses.
func (r *MongoBookingRepo) UpdateStatus(ctx context.Context, id string, from []models.BookingStatus, to models.BookingStatus) (*models.Booking, error) {
	filter := bson.M{"id": id, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var b models.Booking
	if err := r.bookingColl.FindOneAndUpdate(ctx, filter, update, opts).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("error updating booking %s status: %w", id, err)
	}
	return &b, nil
}

// SetPaymentIntent records the payment intent ID on a booking.
func (r *MongoBookingRepo) SetPaymentIntent(ctx context.Context, id, intentID string) error {
	update := bson.M{"$set": bson.M{"paymentIntentId": intentID, "updatedAt": time.Now()}}
	result, err := r.bookingColl.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("error setting payment intent for booking %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("booking with id %s not found", id)
	}
	return nil
}

// CountActiveOverlapping counts pending/confirmed bookings on the spot whose
// half-open interval overlaps [start, end): existing.start < end AND
// existing.end > start.
func (r *MongoBookingRepo) CountActiveOverlapping(ctx context.Context, spotID string, start, end time.Time) (int64, error) {
	filter := bson.M{
		"spotId": spotID,
		"status": bson.M{"$in": models.ActiveStatuses},
		"start":  bson.M{"$lt": end},
		"end":    bson.M{"$gt": start},
	}
	count, err := r.bookingColl.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("error counting overlapping bookings: %w", err)
	}
	return count, nil
}

// CreateBlackout inserts a new blackout day record.
func (r *MongoBookingRepo) CreateBlackout(ctx context.Context, b *models.Blackout) error {
	b.CreatedAt = time.Now()
	if _, err := r.blackoutColl.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("error creating blackout: %w", err)
	}
	return nil
}

// DeleteBlackout removes a blackout day record.
func (r *MongoBookingRepo) DeleteBlackout(ctx context.Context, id string) error {
	result, err := r.blackoutColl.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("error removing blackout with id %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("blackout with id %s not found", id)
	}
	return nil
}

// ListBlackouts retrieves all blackout days for a spot.
func (r *MongoBookingRepo) ListBlackouts(ctx context.Context, spotID string) ([]models.Blackout, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := r.blackoutColl.Find(ctx, bson.M{"spotId": spotID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching blackouts: %w", err)
	}
	defer cursor.Close(ctx)

	var blackouts []models.Blackout
	for cursor.Next(ctx) {
		var b models.Blackout
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding blackout: %w", err)
		}
		blackouts = append(blackouts, b)
	}
	return blackouts, nil
}

// CountBlackouts counts blackout records for the spot on any of the days.
func (r *MongoBookingRepo) CountBlackouts(ctx context.Context, spotID string, days []string) (int64, error) {
	if len(days) == 0 {
		return 0, nil
	}
	filter := bson.M{"spotId": spotID, "date": bson.M{"$in": days}}
	count, err := r.blackoutColl.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("error counting blackouts: %w", err)
	}
	return count, nil
}

// CreateCancellation inserts a new cancellation record.
func (r *MongoBookingRepo) CreateCancellation(ctx context.Context, c *models.Cancellation) error {
	c.CreatedAt = time.Now()
	if _, err := r.cxlColl.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("error creating cancellation: %w", err)
	}
	return nil
}

// ProcessCancellation marks a cancellation as processed and stamps processedAt.
func (r *MongoBookingRepo) ProcessCancellation(ctx context.Context, id string) error {
	now := time.Now()
	filter := bson.M{"id": id, "status": models.CancellationPending}
	update := bson.M{"$set": bson.M{"status": models.CancellationProcessed, "processedAt": now}}
	result, err := r.cxlColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error processing cancellation %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("cancellation %s not found or already processed", id)
	}
	return nil
}

// GetCancellationByBookingID retrieves the cancellation for a booking; nil if none.
func (r *MongoBookingRepo) GetCancellationByBookingID(ctx context.Context, bookingID string) (*models.Cancellation, error) {
	var c models.Cancellation
	if err := r.cxlColl.FindOne(ctx, bson.M{"bookingId": bookingID}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching cancellation for booking %s: %w", bookingID, err)
	}
	return &c, nil
}
