package models

import "time"

// Spot statuses. A spot is never hard-deleted; hosts flip it to inactive instead.
const (
	SpotStatusActive   = "active"
	SpotStatusInactive = "inactive"
	SpotStatusDraft    = "draft"
)

// SpotFeatures holds the fixed feature flags a host can toggle on a listing.
type SpotFeatures struct {
	Parking       bool `bson:"parking" json:"parking"`
	Wifi          bool `bson:"wifi" json:"wifi"`
	Accessibility bool `bson:"accessibility" json:"accessibility"`
	Kitchen       bool `bson:"kitchen" json:"kitchen"`
	SoundSystem   bool `bson:"soundSystem" json:"soundSystem"`
	Restrooms     bool `bson:"restrooms" json:"restrooms"`
}

// Spot represents a rentable venue listing.
type Spot struct {
	ID              string       `bson:"id" json:"id"`
	HostID          string       `bson:"hostId" json:"hostId"`
	Name            string       `bson:"name" json:"name"`
	Description     string       `bson:"description,omitempty" json:"description,omitempty"`
	Address         string       `bson:"address" json:"address"`
	City            string       `bson:"city" json:"city"`
	State           string       `bson:"state" json:"state"`
	ZipCode         string       `bson:"zipCode" json:"zipCode"`
	Capacity        int          `bson:"capacity" json:"capacity"`
	PricePerHour    int64        `bson:"pricePerHour" json:"pricePerHour"` // minor units (cents)
	SquareFootage   int          `bson:"squareFootage,omitempty" json:"squareFootage,omitempty"`
	Type            string       `bson:"type" json:"type"` // e.g. "venue", "studio", "office"
	Features        SpotFeatures `bson:"features" json:"features"`
	Amenities       []string     `bson:"amenities,omitempty" json:"amenities,omitempty"`
	Rules           string       `bson:"rules,omitempty" json:"rules,omitempty"`
	Status          string       `bson:"status" json:"status"`
	FeaturedImage   string       `bson:"featuredImage,omitempty" json:"featuredImage,omitempty"`
	GalleryImages   []string     `bson:"galleryImages,omitempty" json:"galleryImages,omitempty"`
	Rating          float64      `bson:"rating" json:"rating"`
	ReviewCount     int          `bson:"reviewCount" json:"reviewCount"`
	CreatedAt       time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// Review is a guest rating for a spot.
type Review struct {
	ID        string    `bson:"id" json:"id"`
	SpotID    string    `bson:"spotId" json:"spotId"`
	UserID    string    `bson:"userId" json:"userId"`
	Rating    int       `bson:"rating" json:"rating"` // 1..5
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Blackout is a host-designated whole-day exclusion for a spot. Bookings may
// not touch a blacked-out day regardless of existing reservations.
type Blackout struct {
	ID        string    `bson:"id" json:"id"`
	SpotID    string    `bson:"spotId" json:"spotId"`
	Date      string    `bson:"date" json:"date"` // "YYYY-MM-DD"
	Reason    string    `bson:"reason" json:"reason"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
