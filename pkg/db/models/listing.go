package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/brandinbox/brandinbox-backend/pkg/db/types"
	"github.com/brandinbox/brandinbox-backend/pkg/enums"
)

// Listing is the user's product record moving through the publish lifecycle.
// ID is a short shareable identifier minted at creation, never regenerated.
type Listing struct {
	ID     string    `gorm:"column:id;type:char(12);primaryKey"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	// Catalog fields, mutable until the listing is published.
	Title       string          `gorm:"column:title;not null"`
	Description *string         `gorm:"column:description"`
	Category    *string         `gorm:"column:category"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null;default:0"`
	Quantity    int             `gorm:"column:quantity;not null;default:1"`
	Condition   *string         `gorm:"column:condition"`
	Brand       *string         `gorm:"column:brand"`
	MPN         *string         `gorm:"column:mpn"`

	// Generation inputs.
	ProductPhotoURL *string `gorm:"column:product_photo_url"`
	TargetAudience  *string `gorm:"column:target_audience"`
	Features        *string `gorm:"column:features"`
	VideoSetting    *string `gorm:"column:video_setting"`
	ImagePrompt     *string `gorm:"column:image_prompt"`
	VideoPrompt     *string `gorm:"column:video_prompt"`
	AvatarURL       *string `gorm:"column:avatar_url"`
	GenerateImage   bool    `gorm:"column:generate_image;not null;default:true"`
	GenerateVideo   bool    `gorm:"column:generate_video;not null;default:false"`

	// Generation outputs. Enrichment may overwrite catalog fields, but the
	// enriched description and SKU are kept alongside the originals.
	EnrichedDescription *string         `gorm:"column:enriched_description"`
	EnrichedSKU         *string         `gorm:"column:enriched_sku"`
	Aspects             dbtypes.JSONMap `gorm:"column:aspects;type:jsonb"`

	Status       enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:draft"`
	ErrorMessage *string             `gorm:"column:error_message"`

	// Marketplace identifiers, written once at first successful publish.
	ExternalListingID *string    `gorm:"column:external_listing_id"`
	OfferID           *string    `gorm:"column:offer_id"`
	SKU               *string    `gorm:"column:sku"`
	PublishedAt       *time.Time `gorm:"column:published_at"`

	Media     *ListingMedia     `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	Published *PublishedListing `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// HasProductPhoto reports whether a generation request has its required input.
func (l *Listing) HasProductPhoto() bool {
	return l.ProductPhotoURL != nil && *l.ProductPhotoURL != ""
}
