package listings

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	"github.com/brandinbox/brandinbox-backend/pkg/enums"
	"github.com/brandinbox/brandinbox-backend/pkg/pagination"
)

func setupListingsTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	listings := `
CREATE TABLE IF NOT EXISTS listings (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  category TEXT,
  price TEXT NOT NULL DEFAULT '0',
  quantity INTEGER NOT NULL DEFAULT 1,
  condition TEXT,
  brand TEXT,
  mpn TEXT,
  product_photo_url TEXT,
  target_audience TEXT,
  features TEXT,
  video_setting TEXT,
  image_prompt TEXT,
  video_prompt TEXT,
  avatar_url TEXT,
  generate_image INTEGER NOT NULL DEFAULT 1,
  generate_video INTEGER NOT NULL DEFAULT 0,
  enriched_description TEXT,
  enriched_sku TEXT,
  aspects TEXT,
  status TEXT NOT NULL DEFAULT 'draft',
  error_message TEXT,
  external_listing_id TEXT,
  offer_id TEXT,
  sku TEXT,
  published_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	media := `
CREATE TABLE IF NOT EXISTS listing_media (
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL UNIQUE,
  image_urls TEXT NOT NULL DEFAULT '{}',
  video_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	published := `
CREATE TABLE IF NOT EXISTS published_listings (
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL UNIQUE,
  external_item_id TEXT NOT NULL,
  external_url TEXT NOT NULL,
  sku TEXT NOT NULL,
  fees TEXT,
  published_at DATETIME NOT NULL,
  created_at DATETIME
);`

	for _, stmt := range []string{listings, media, published} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM published_listings")
		db.Exec("DELETE FROM listing_media")
		db.Exec("DELETE FROM listings")
	})
	return db
}

func seedListing(t *testing.T, db *gorm.DB, userID uuid.UUID, id string, status enums.ListingStatus) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		ID:            id,
		UserID:        userID,
		Title:         "Seeded Listing",
		Price:         decimal.NewFromInt(10),
		Quantity:      1,
		GenerateImage: true,
		Status:        status,
	}
	if status == enums.ListingStatusError {
		msg := "seeded failure"
		listing.ErrorMessage = &msg
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func TestRepositoryCreateAndFind(t *testing.T) {
	db := setupListingsTestDB(t, "repo_create")
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	listing := &models.Listing{
		ID:            "aaaabbbbcccc",
		UserID:        userID,
		Title:         "Ceramic Mug",
		Price:         decimal.RequireFromString("25.50"),
		Quantity:      2,
		GenerateImage: true,
		Status:        enums.ListingStatusDraft,
	}
	require.NoError(t, repo.Create(ctx, listing))

	found, err := repo.FindByID(ctx, "aaaabbbbcccc")
	require.NoError(t, err)
	assert.Equal(t, "Ceramic Mug", found.Title)
	assert.True(t, found.Price.Equal(decimal.RequireFromString("25.50")))
	assert.Equal(t, enums.ListingStatusDraft, found.Status)
	assert.Nil(t, found.Media)
	assert.Nil(t, found.Published)
}

func TestRepositoryFindByIDForUserScopesOwnership(t *testing.T) {
	db := setupListingsTestDB(t, "repo_owner")
	repo := NewRepository(db)
	ctx := context.Background()
	owner := uuid.New()
	seedListing(t, db, owner, "owneraaabbbb", enums.ListingStatusDraft)

	_, err := repo.FindByIDForUser(ctx, "owneraaabbbb", uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	found, err := repo.FindByIDForUser(ctx, "owneraaabbbb", owner)
	require.NoError(t, err)
	assert.Equal(t, owner, found.UserID)
}

func TestRepositoryListByUserNewestFirst(t *testing.T) {
	db := setupListingsTestDB(t, "repo_list")
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	older := seedListing(t, db, userID, "olderaaabbbb", enums.ListingStatusDraft)
	require.NoError(t, db.Model(older).Update("created_at", time.Now().Add(-time.Hour)).Error)
	seedListing(t, db, userID, "neweraaabbbb", enums.ListingStatusDraft)
	seedListing(t, db, uuid.New(), "otheraaabbbb", enums.ListingStatusDraft)

	page, err := repo.ListByUser(ctx, userID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Listings, 2)
	assert.Equal(t, "neweraaabbbb", page.Listings[0].ID)
	assert.Equal(t, "olderaaabbbb", page.Listings[1].ID)
	assert.Empty(t, page.NextCursor)
}

func TestRepositoryListByUserCursorPages(t *testing.T) {
	db := setupListingsTestDB(t, "repo_list_cursor")
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	ids := []string{"pageaaaabbbb", "pagebbbbcccc", "pageccccdddd"}
	for i, id := range ids {
		listing := seedListing(t, db, userID, id, enums.ListingStatusDraft)
		offset := time.Duration(len(ids)-i) * time.Hour
		require.NoError(t, db.Model(listing).Update("created_at", time.Now().Add(-offset)).Error)
	}

	first, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Listings, 2)
	assert.Equal(t, "pageccccdddd", first.Listings[0].ID)
	assert.Equal(t, "pagebbbbcccc", first.Listings[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Listings, 1)
	assert.Equal(t, "pageaaaabbbb", second.Listings[0].ID)
	assert.Empty(t, second.NextCursor)
}

func TestRepositoryUpsertMedia(t *testing.T) {
	db := setupListingsTestDB(t, "repo_media")
	repo := NewRepository(db)
	ctx := context.Background()
	listing := seedListing(t, db, uuid.New(), "mediaaaabbbb", enums.ListingStatusGeneratingMedia)

	media := &models.ListingMedia{
		ListingID: listing.ID,
		ImageURLs: []string{"https://img/1.png"},
	}
	require.NoError(t, repo.UpsertMedia(ctx, media))

	video := "https://video/clip.mp4"
	update := &models.ListingMedia{
		ListingID: listing.ID,
		ImageURLs: []string{"https://img/2.png", "https://img/3.png"},
		VideoURL:  &video,
	}
	require.NoError(t, repo.UpsertMedia(ctx, update))

	var count int64
	require.NoError(t, db.Model(&models.ListingMedia{}).Where("listing_id = ?", listing.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	found, err := repo.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Media)
	assert.Equal(t, []string{"https://img/2.png", "https://img/3.png"}, []string(found.Media.ImageURLs))
	require.NotNil(t, found.Media.VideoURL)
	assert.Equal(t, video, *found.Media.VideoURL)
}

func TestRepositoryDeleteRemovesAssociations(t *testing.T) {
	db := setupListingsTestDB(t, "repo_delete")
	repo := NewRepository(db)
	ctx := context.Background()
	listing := seedListing(t, db, uuid.New(), "deleteaabbbb", enums.ListingStatusMediaReady)

	require.NoError(t, repo.UpsertMedia(ctx, &models.ListingMedia{
		ListingID: listing.ID,
		ImageURLs: []string{"https://img/1.png"},
	}))

	loaded, err := repo.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, loaded))

	_, err = repo.FindByID(ctx, listing.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var mediaCount int64
	require.NoError(t, db.Model(&models.ListingMedia{}).Where("listing_id = ?", listing.ID).Count(&mediaCount).Error)
	assert.Equal(t, int64(0), mediaCount)
}
