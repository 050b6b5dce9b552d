package spotRepo

import "appispot/models"

// SpotFilter narrows List results. Zero values mean "no constraint".
type SpotFilter struct {
	City        string
	Type        string
	Status      string
	MinCapacity int
	MaxPerHour  int64
	Limit       int64
	Offset      int64
}

// SpotRepository defines methods for spot data access.
type SpotRepository interface {
	// Create inserts a new spot record.
	Create(spot *models.Spot) error
	// GetByID retrieves a spot by its unique ID; nil if not found.
	GetByID(id string) (*models.Spot, error)
	// UpdateWithDocument applies a partial update to a spot record.
	UpdateWithDocument(id string, fields map[string]any) error
	// List retrieves spots matching the filter, newest first.
	List(filter SpotFilter) ([]models.Spot, error)
	// ListByHost retrieves all spots owned by a host.
	ListByHost(hostID string) ([]models.Spot, error)

	// CreateReview records a review and folds it into the spot's rating.
	CreateReview(review *models.Review) error
	// ListReviews retrieves reviews for a spot, newest first.
	ListReviews(spotID string) ([]models.Review, error)
}
