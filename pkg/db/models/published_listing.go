package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/brandinbox/brandinbox-backend/pkg/db/types"
)

// PublishedListing is an immutable snapshot written at first successful
// publish. Repeat publish attempts are rejected upstream, never merged here.
type PublishedListing struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID      string          `gorm:"column:listing_id;type:char(12);not null;uniqueIndex"`
	ExternalItemID string          `gorm:"column:external_item_id;not null"`
	ExternalURL    string          `gorm:"column:external_url;not null"`
	SKU            string          `gorm:"column:sku;not null"`
	Fees           dbtypes.JSONMap `gorm:"column:fees;type:jsonb"`
	PublishedAt    time.Time       `gorm:"column:published_at;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
