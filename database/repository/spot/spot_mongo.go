package spotRepo

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

// MongoSpotRepo implements SpotRepository using MongoDB.
type MongoSpotRepo struct {
	coll       *mongo.Collection
	reviewColl *mongo.Collection
}

// NewMongoSpotRepo creates a new instance of SpotRepository using MongoDB.
func NewMongoSpotRepo() SpotRepository {
	db := database.DB()
	repo := &MongoSpotRepo{
		coll:       db.Collection("spots"),
		reviewColl: db.Collection("reviews"),
	}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoSpotRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "hostId", Value: 1}}},
		{Keys: bson.D{{Key: "city", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create spot indexes: %w", err)
	}

	reviewIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "spotId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := r.reviewColl.Indexes().CreateMany(ctx, reviewIndexes); err != nil {
		return fmt.Errorf("failed to create review indexes: %w", err)
	}
	return nil
}

// Create inserts a new spot document.
func (r *MongoSpotRepo) Create(spot *models.Spot) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	spot.CreatedAt = now
	spot.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, spot); err != nil {
		return fmt.Errorf("failed to create spot: %w", err)
	}
	return nil
}

// GetByID retrieves a spot by its unique ID; nil if not found.
func (r *MongoSpotRepo) GetByID(id string) (*models.Spot, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var spot models.Spot
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&spot); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch spot with id %s: %w", id, err)
	}
	return &spot, nil
}

// UpdateWithDocument applies a partial update to a spot document.
func (r *MongoSpotRepo) UpdateWithDocument(id string, fields map[string]any) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update spot %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("spot with id %s not found", id)
	}
	return nil
}

// List retrieves spots matching the filter, newest first.
func (r *MongoSpotRepo) List(filter SpotFilter) ([]models.Spot, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	query := bson.M{}
	if filter.City != "" {
		query["city"] = filter.City
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.MinCapacity > 0 {
		query["capacity"] = bson.M{"$gte": filter.MinCapacity}
	}
	if filter.MaxPerHour > 0 {
		query["pricePerHour"] = bson.M{"$lte": filter.MaxPerHour}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	if filter.Offset > 0 {
		opts.SetSkip(filter.Offset)
	}

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list spots: %w", err)
	}
	defer cursor.Close(ctx)

	var spots []models.Spot
	for cursor.Next(ctx) {
		var s models.Spot
		if err := cursor.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode spot: %w", err)
		}
		spots = append(spots, s)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return spots, nil
}

// ListByHost retrieves all spots owned by a host.
func (r *MongoSpotRepo) ListByHost(hostID string) ([]models.Spot, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"hostId": hostID})
	if err != nil {
		return nil, fmt.Errorf("failed to list spots for host %s: %w", hostID, err)
	}
	defer cursor.Close(ctx)

	var spots []models.Spot
	for cursor.Next(ctx) {
		var s models.Spot
		if err := cursor.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode spot: %w", err)
		}
		spots = append(spots, s)
	}
	return spots, nil
}

// CreateReview inserts the review and folds it into the spot's running rating.
func (r *MongoSpotRepo) CreateReview(review *models.Review) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	review.CreatedAt = time.Now()
	if _, err := r.reviewColl.InsertOne(ctx, review); err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}

	var spot models.Spot
	if err := r.coll.FindOne(ctx, bson.M{"id": review.SpotID}).Decode(&spot); err != nil {
		return fmt.Errorf("failed to fetch spot %s for rating update: %w", review.SpotID, err)
	}

	count := spot.ReviewCount + 1
	rating := (spot.Rating*float64(spot.ReviewCount) + float64(review.Rating)) / float64(count)
	update := bson.M{"$set": bson.M{"rating": rating, "reviewCount": count, "updatedAt": time.Now()}}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"id": review.SpotID}, update); err != nil {
		return fmt.Errorf("failed to update spot rating: %w", err)
	}
	return nil
}

// ListReviews retrieves reviews for a spot, newest first.
func (r *MongoSpotRepo) ListReviews(spotID string) ([]models.Review, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.reviewColl.Find(ctx, bson.M{"spotId": spotID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews for spot %s: %w", spotID, err)
	}
	defer cursor.Close(ctx)

	var reviews []models.Review
	for cursor.Next(ctx) {
		var rv models.Review
		if err := cursor.Decode(&rv); err != nil {
			return nil, fmt.Errorf("failed to decode review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, nil
}
