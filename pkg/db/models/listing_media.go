package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ListingMedia holds the generated assets for exactly one listing.
// ImageURLs is ordered; the first entry is the primary image.
type ListingMedia struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID string         `gorm:"column:listing_id;type:char(12);not null;uniqueIndex"`
	ImageURLs pq.StringArray `gorm:"column:image_urls;type:text[];not null;default:ARRAY[]::text[]"`
	VideoURL  *string        `gorm:"column:video_url"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// HasAssets reports whether at least one image or a video is present.
func (m *ListingMedia) HasAssets() bool {
	if m == nil {
		return false
	}
	return len(m.ImageURLs) > 0 || (m.VideoURL != nil && *m.VideoURL != "")
}
