package spot

import (
	"context"
	"fmt"
	"time"

	spotRepo "appispot/database/repository/spot"
	"appispot/models"
	"appispot/services/storage"

	"github.com/google/uuid"
)

// SpotService defines business logic for spot listings.
type SpotService interface {
	// Create inserts a new listing owned by the host.
	Create(hostID string, spot models.Spot) (*models.Spot, error)
	// GetByID retrieves a spot by its unique ID; nil if not found.
	GetByID(spotID string) (*models.Spot, error)
	// Update applies allowed field changes; only the owning host may update.
	Update(hostID, spotID string, updates map[string]any) (*models.Spot, error)
	// Deactivate soft-removes a listing; the record is never hard-deleted.
	Deactivate(hostID, spotID string) error
	// List retrieves spots matching the filter.
	List(filter spotRepo.SpotFilter) ([]models.Spot, error)
	// ListByHost retrieves a host's own listings, drafts included.
	ListByHost(hostID string) ([]models.Spot, error)

	// AddReview records a guest's review and updates the spot's rating.
	AddReview(spotID, userID string, rating int, comment string) (*models.Review, error)
	// Reviews lists a spot's reviews, newest first.
	Reviews(spotID string) ([]models.Review, error)

	// UploadImage stores an image and attaches its URL to the spot, as the
	// featured image or appended to the gallery.
	UploadImage(ctx context.Context, hostID, spotID, localPath string, featured bool) (string, error)
}

// DefaultSpotService is the production implementation.
type DefaultSpotService struct {
	Repo    spotRepo.SpotRepository
	Storage storage.StorageService
}

// Create validates and inserts a new listing.
func (s *DefaultSpotService) Create(hostID string, spot models.Spot) (*models.Spot, error) {
	if spot.Name == "" {
		return nil, fmt.Errorf("spot name is required")
	}
	if spot.PricePerHour <= 0 {
		return nil, fmt.Errorf("pricePerHour must be positive")
	}
	if spot.Capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive")
	}

	now := time.Now()
	spot.ID = uuid.New().String()
	spot.HostID = hostID
	if spot.Status == "" {
		spot.Status = models.SpotStatusActive
	}
	spot.Rating = 0
	spot.ReviewCount = 0
	spot.CreatedAt = now
	spot.UpdatedAt = now

	if err := s.Repo.Create(&spot); err != nil {
		return nil, fmt.Errorf("failed to create spot: %w", err)
	}
	return &spot, nil
}

// GetByID retrieves a spot by ID.
func (s *DefaultSpotService) GetByID(spotID string) (*models.Spot, error) {
	spot, err := s.Repo.GetByID(spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spot: %w", err)
	}
	return spot, nil
}

// ownedSpot loads the spot and verifies the host owns it.
func (s *DefaultSpotService) ownedSpot(hostID, spotID string) (*models.Spot, error) {
	spot, err := s.Repo.GetByID(spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spot: %w", err)
	}
	if spot == nil {
		return nil, fmt.Errorf("spot %s not found", spotID)
	}
	if spot.HostID != hostID {
		return nil, fmt.Errorf("spot %s does not belong to host %s", spotID, hostID)
	}
	return spot, nil
}

// Update applies allowed field changes to a host's own listing.
func (s *DefaultSpotService) Update(hostID, spotID string, updates map[string]any) (*models.Spot, error) {
	if _, err := s.ownedSpot(hostID, spotID); err != nil {
		return nil, err
	}

	allowed := map[string]bool{
		"name": true, "description": true, "address": true, "city": true,
		"state": true, "zipCode": true, "capacity": true, "pricePerHour": true,
		"squareFootage": true, "type": true, "features": true, "amenities": true,
		"rules": true, "status": true,
	}
	fields := map[string]any{}
	for k, v := range updates {
		if allowed[k] {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return s.GetByID(spotID)
	}
	fields["updatedAt"] = time.Now()

	if err := s.Repo.UpdateWithDocument(spotID, fields); err != nil {
		return nil, fmt.Errorf("failed to update spot: %w", err)
	}
	return s.GetByID(spotID)
}

// Deactivate flips the listing to inactive. Existing bookings stay valid.
func (s *DefaultSpotService) Deactivate(hostID, spotID string) error {
	if _, err := s.ownedSpot(hostID, spotID); err != nil {
		return err
	}
	fields := map[string]any{"status": models.SpotStatusInactive, "updatedAt": time.Now()}
	if err := s.Repo.UpdateWithDocument(spotID, fields); err != nil {
		return fmt.Errorf("failed to deactivate spot: %w", err)
	}
	return nil
}

// List retrieves spots matching the filter.
func (s *DefaultSpotService) List(filter spotRepo.SpotFilter) ([]models.Spot, error) {
	if filter.Status == "" {
		filter.Status = models.SpotStatusActive
	}
	return s.Repo.List(filter)
}

// ListByHost retrieves a host's own listings.
func (s *DefaultSpotService) ListByHost(hostID string) ([]models.Spot, error) {
	return s.Repo.ListByHost(hostID)
}

// AddReview validates and records a review.
func (s *DefaultSpotService) AddReview(spotID, userID string, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5")
	}
	spot, err := s.Repo.GetByID(spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spot: %w", err)
	}
	if spot == nil {
		return nil, fmt.Errorf("spot %s not found", spotID)
	}

	review := &models.Review{
		ID:        uuid.New().String(),
		SpotID:    spotID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}
	if err := s.Repo.CreateReview(review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return review, nil
}

// Reviews lists a spot's reviews, newest first.
func (s *DefaultSpotService) Reviews(spotID string) ([]models.Review, error) {
	return s.Repo.ListReviews(spotID)
}

// UploadImage stores the image and attaches its URL to the listing.
func (s *DefaultSpotService) UploadImage(ctx context.Context, hostID, spotID, localPath string, featured bool) (string, error) {
	spot, err := s.ownedSpot(hostID, spotID)
	if err != nil {
		return "", err
	}

	publicID, err := s.Storage.UploadFile(ctx, localPath, "spots/"+spotID)
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	url, err := s.Storage.GetDownloadURL(ctx, publicID, 0)
	if err != nil {
		return "", fmt.Errorf("failed to resolve image url: %w", err)
	}

	fields := map[string]any{"updatedAt": time.Now()}
	if featured {
		fields["featuredImage"] = url
	} else {
		fields["galleryImages"] = append(spot.GalleryImages, url)
	}
	if err := s.Repo.UpdateWithDocument(spotID, fields); err != nil {
		return "", fmt.Errorf("failed to attach image: %w", err)
	}
	return url, nil
}
