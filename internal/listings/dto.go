package listings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	"github.com/brandinbox/brandinbox-backend/pkg/enums"
)

// CreateListingInput captures the fields a seller provides when drafting.
type CreateListingInput struct {
	Title           string
	Description     *string
	Category        *string
	Price           decimal.Decimal
	Quantity        int
	Condition       *string
	Brand           *string
	MPN             *string
	ProductPhotoURL *string
	TargetAudience  *string
	Features        *string
	VideoSetting    *string
	ImagePrompt     *string
	VideoPrompt     *string
	AvatarURL       *string
	GenerateImage   *bool
	GenerateVideo   *bool
}

// UpdateListingInput carries partial updates; nil fields are left untouched.
type UpdateListingInput struct {
	Title           *string
	Description     *string
	Category        *string
	Price           *decimal.Decimal
	Quantity        *int
	Condition       *string
	Brand           *string
	MPN             *string
	ProductPhotoURL *string
	TargetAudience  *string
	Features        *string
	VideoSetting    *string
	ImagePrompt     *string
	VideoPrompt     *string
	AvatarURL       *string
	GenerateImage   *bool
	GenerateVideo   *bool
}

// MediaResponse exposes the stored assets for a listing.
type MediaResponse struct {
	ImageURLs []string `json:"image_urls"`
	VideoURL  *string  `json:"video_url,omitempty"`
}

// PublishedResponse exposes the immutable marketplace snapshot.
type PublishedResponse struct {
	ExternalItemID string         `json:"external_item_id"`
	ExternalURL    string         `json:"external_url"`
	SKU            string         `json:"sku"`
	Fees           map[string]any `json:"fees,omitempty"`
	PublishedAt    time.Time      `json:"published_at"`
}

// ListingResponse is the API shape of a listing.
type ListingResponse struct {
	ID                  string              `json:"id"`
	UserID              uuid.UUID           `json:"user_id"`
	Title               string              `json:"title"`
	Description         *string             `json:"description,omitempty"`
	Category            *string             `json:"category,omitempty"`
	Price               decimal.Decimal     `json:"price"`
	Quantity            int                 `json:"quantity"`
	Condition           *string             `json:"condition,omitempty"`
	Brand               *string             `json:"brand,omitempty"`
	MPN                 *string             `json:"mpn,omitempty"`
	ProductPhotoURL     *string             `json:"product_photo_url,omitempty"`
	TargetAudience      *string             `json:"target_audience,omitempty"`
	Features            *string             `json:"features,omitempty"`
	VideoSetting        *string             `json:"video_setting,omitempty"`
	ImagePrompt         *string             `json:"image_prompt,omitempty"`
	VideoPrompt         *string             `json:"video_prompt,omitempty"`
	AvatarURL           *string             `json:"avatar_url,omitempty"`
	GenerateImage       bool                `json:"generate_image"`
	GenerateVideo       bool                `json:"generate_video"`
	EnrichedDescription *string             `json:"enriched_description,omitempty"`
	EnrichedSKU         *string             `json:"enriched_sku,omitempty"`
	Aspects             map[string]any      `json:"aspects,omitempty"`
	Status              enums.ListingStatus `json:"status"`
	ErrorMessage        *string             `json:"error_message,omitempty"`
	Media               *MediaResponse      `json:"media,omitempty"`
	Published           *PublishedResponse  `json:"published,omitempty"`
	PublishedAt         *time.Time          `json:"published_at,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// ToResponse maps a listing row (with preloaded associations) to its API shape.
func ToResponse(listing *models.Listing) ListingResponse {
	resp := ListingResponse{
		ID:                  listing.ID,
		UserID:              listing.UserID,
		Title:               listing.Title,
		Description:         listing.Description,
		Category:            listing.Category,
		Price:               listing.Price,
		Quantity:            listing.Quantity,
		Condition:           listing.Condition,
		Brand:               listing.Brand,
		MPN:                 listing.MPN,
		ProductPhotoURL:     listing.ProductPhotoURL,
		TargetAudience:      listing.TargetAudience,
		Features:            listing.Features,
		VideoSetting:        listing.VideoSetting,
		ImagePrompt:         listing.ImagePrompt,
		VideoPrompt:         listing.VideoPrompt,
		AvatarURL:           listing.AvatarURL,
		GenerateImage:       listing.GenerateImage,
		GenerateVideo:       listing.GenerateVideo,
		EnrichedDescription: listing.EnrichedDescription,
		EnrichedSKU:         listing.EnrichedSKU,
		Aspects:             listing.Aspects,
		Status:              listing.Status,
		ErrorMessage:        listing.ErrorMessage,
		PublishedAt:         listing.PublishedAt,
		CreatedAt:           listing.CreatedAt,
		UpdatedAt:           listing.UpdatedAt,
	}

	if listing.Media != nil {
		resp.Media = &MediaResponse{
			ImageURLs: listing.Media.ImageURLs,
			VideoURL:  listing.Media.VideoURL,
		}
	}
	if listing.Published != nil {
		resp.Published = &PublishedResponse{
			ExternalItemID: listing.Published.ExternalItemID,
			ExternalURL:    listing.Published.ExternalURL,
			SKU:            listing.Published.SKU,
			Fees:           listing.Published.Fees,
			PublishedAt:    listing.Published.PublishedAt,
		}
	}
	return resp
}

// ToResponses maps a slice of listings preserving order.
func ToResponses(rows []models.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(rows))
	for i := range rows {
		out = append(out, ToResponse(&rows[i]))
	}
	return out
}
