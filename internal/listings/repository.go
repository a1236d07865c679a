package listings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	"github.com/brandinbox/brandinbox-backend/pkg/pagination"
)

// ListingPage is one cursor page of a seller's listings, newest first.
type ListingPage struct {
	Listings   []models.Listing
	NextCursor string
}

// Repository persists listings and their owned associations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id string) (*models.Listing, error)
	FindByIDForUser(ctx context.Context, id string, userID uuid.UUID) (*models.Listing, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListingPage, error)
	Save(ctx context.Context, listing *models.Listing) error
	UpsertMedia(ctx context.Context, media *models.ListingMedia) error
	CreatePublished(ctx context.Context, published *models.PublishedListing) error
	Delete(ctx context.Context, listing *models.Listing) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a listings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Preload("Media").
		Preload("Published").
		Where("id = ?", id).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindByIDForUser(ctx context.Context, id string, userID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Preload("Media").
		Preload("Published").
		Where("id = ? AND user_id = ?", id, userID).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// ListByUser pages with a (created_at, id) keyset so concurrent inserts
// cannot shift rows between pages.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListingPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Preload("Media").
		Preload("Published").
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var rows []models.Listing
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &ListingPage{Listings: rows}
	if len(rows) > limit {
		page.Listings = rows[:limit]
		last := page.Listings[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// Save writes the listing row only; associations are persisted explicitly so
// a status update cannot silently touch media it did not mean to.
func (r *repository) Save(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).
		Omit("Media", "Published").
		Save(listing).Error
}

// UpsertMedia inserts the media row or overwrites the asset columns when one
// already exists for the listing.
func (r *repository) UpsertMedia(ctx context.Context, media *models.ListingMedia) error {
	if media.ID == uuid.Nil {
		media.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "listing_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"image_urls", "video_url", "updated_at"}),
		}).
		Create(media).Error
}

func (r *repository) CreatePublished(ctx context.Context, published *models.PublishedListing) error {
	if published.ID == uuid.Nil {
		published.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(published).Error
}

func (r *repository) Delete(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).
		Select(clause.Associations).
		Delete(listing).Error
}
