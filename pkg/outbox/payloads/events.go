package payloads

import (
	"time"

	"github.com/google/uuid"
)

// ListingCreatedEvent signals a freshly drafted listing.
type ListingCreatedEvent struct {
	ListingID string    `json:"listing_id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
}

// ListingGenerationStartedEvent is emitted when media generation kicks off.
type ListingGenerationStartedEvent struct {
	ListingID     string    `json:"listing_id"`
	UserID        uuid.UUID `json:"user_id"`
	GenerateImage bool      `json:"generate_image"`
	GenerateVideo bool      `json:"generate_video"`
}

// ListingMediaReadyEvent reports that generated assets were merged in.
type ListingMediaReadyEvent struct {
	ListingID  string    `json:"listing_id"`
	UserID     uuid.UUID `json:"user_id"`
	ImageCount int       `json:"image_count"`
	HasVideo   bool      `json:"has_video"`
}

// ListingGenerationFailedEvent carries the failure surfaced to the seller.
type ListingGenerationFailedEvent struct {
	ListingID string `json:"listing_id"`
	Reason    string `json:"reason"`
}

// ListingApprovedEvent is emitted when the seller signs off on the media.
type ListingApprovedEvent struct {
	ListingID string    `json:"listing_id"`
	UserID    uuid.UUID `json:"user_id"`
}

// ListingPublishStartedEvent marks the hand-off to the marketplace.
type ListingPublishStartedEvent struct {
	ListingID string `json:"listing_id"`
	SKU       string `json:"sku"`
}

// ListingPublishedEvent carries the immutable marketplace identifiers.
type ListingPublishedEvent struct {
	ListingID      string    `json:"listing_id"`
	ExternalItemID string    `json:"external_item_id"`
	ExternalURL    string    `json:"external_url"`
	SKU            string    `json:"sku"`
	PublishedAt    time.Time `json:"published_at"`
}

// ListingPublishFailedEvent carries the marketplace failure detail.
type ListingPublishFailedEvent struct {
	ListingID string `json:"listing_id"`
	Reason    string `json:"reason"`
}

// ListingDeletedEvent reports a listing (and its media) being removed.
type ListingDeletedEvent struct {
	ListingID string    `json:"listing_id"`
	UserID    uuid.UUID `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// UserRegisteredEvent signals a new account.
type UserRegisteredEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}
