package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	"github.com/brandinbox/brandinbox-backend/pkg/enums"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
	"github.com/brandinbox/brandinbox-backend/pkg/outbox"
	"github.com/brandinbox/brandinbox-backend/pkg/outbox/payloads"
	"github.com/brandinbox/brandinbox-backend/pkg/pagination"
	"github.com/brandinbox/brandinbox-backend/pkg/shortid"
)

// skuPrefix derives the marketplace SKU from the listing id, so a retried
// publish reuses the same SKU.
const skuPrefix = "BNB-"

// lockTTL bounds the per-listing advisory lock held around the
// guard-check-then-write window.
const lockTTL = 15 * time.Second

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type listingLocker interface {
	AcquireListingLock(ctx context.Context, listingID string, ttl time.Duration) (bool, error)
	ReleaseListingLock(ctx context.Context, listingID string) error
}

// MediaGenerator triggers the external generation workflow. A nil result with
// a nil error means the workflow accepted the job and will call back later.
type MediaGenerator interface {
	Trigger(ctx context.Context, listing *models.Listing) (*GenerationResult, error)
}

// AssetRehoster copies externally hosted asset URLs into owned storage.
// RehostMany is best-effort: it returns the subset that succeeded alongside
// the aggregated error for the rest.
type AssetRehoster interface {
	Rehost(ctx context.Context, url string) (string, error)
	RehostMany(ctx context.Context, urls []string) ([]string, error)
}

// MarketplacePublisher creates the live marketplace listing. A nil result
// with a nil error means completion arrives via webhook.
type MarketplacePublisher interface {
	Publish(ctx context.Context, listing *models.Listing, sku string) (*PublishResult, error)
}

// Service sequences listing lifecycle operations: guard, persist the
// in-progress status, call the collaborator, merge the outcome.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateListingInput) (*models.Listing, error)
	Get(ctx context.Context, userID uuid.UUID, listingID string) (*models.Listing, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListingPage, error)
	Update(ctx context.Context, userID uuid.UUID, listingID string, input UpdateListingInput) (*models.Listing, error)
	Delete(ctx context.Context, userID uuid.UUID, listingID string) error
	RequestGeneration(ctx context.Context, userID uuid.UUID, listingID string) (*models.Listing, error)
	ApplyGenerationResult(ctx context.Context, listingID string, result GenerationResult) (*models.Listing, error)
	ApproveMedia(ctx context.Context, userID uuid.UUID, listingID string) (*models.Listing, error)
	Publish(ctx context.Context, userID uuid.UUID, listingID string) (*models.Listing, error)
	ApplyPublishResult(ctx context.Context, listingID string, result PublishResult) (*models.Listing, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	locker      listingLocker
	generator   MediaGenerator
	rehoster    AssetRehoster
	marketplace MarketplacePublisher
	logg        *logger.Logger
}

// NewService builds the lifecycle orchestrator with its collaborators.
func NewService(
	repo Repository,
	tx txRunner,
	ob outboxPublisher,
	locker listingLocker,
	generator MediaGenerator,
	rehoster AssetRehoster,
	marketplace MarketplacePublisher,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if locker == nil {
		return nil, fmt.Errorf("listing locker required")
	}
	if generator == nil {
		return nil, fmt.Errorf("media generator required")
	}
	if rehoster == nil {
		return nil, fmt.Errorf("asset rehoster required")
	}
	if marketplace == nil {
		return nil, fmt.Errorf("marketplace publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		outbox:      ob,
		locker:      locker,
		generator:   generator,
		rehoster:    rehoster,
		marketplace: marketplace,
		logg:        logg,
	}, nil
}

// MarketplaceSKU derives the external SKU for a listing.
func MarketplaceSKU(listingID string) string {
	return skuPrefix + listingID
}

// ListingIDFromSKU reverses MarketplaceSKU. It returns an empty string when
// the value does not carry the expected prefix.
func ListingIDFromSKU(sku string) string {
	if !strings.HasPrefix(sku, skuPrefix) {
		return ""
	}
	return strings.TrimPrefix(sku, skuPrefix)
}

func guardContextFor(listing *models.Listing) GuardContext {
	return GuardContext{
		HasProductPhoto: listing.HasProductPhoto(),
		WantsImage:      listing.GenerateImage,
		WantsVideo:      listing.GenerateVideo,
		HasMedia:        listing.Media.HasAssets(),
	}
}

func mapLoadErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading listing")
}

func (s *service) loadOwned(ctx context.Context, userID uuid.UUID, listingID string) (*models.Listing, error) {
	listing, err := s.repo.FindByIDForUser(ctx, listingID, userID)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	return listing, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateListingInput) (*models.Listing, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	id, err := shortid.New()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting listing id")
	}

	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	generateImage := true
	if input.GenerateImage != nil {
		generateImage = *input.GenerateImage
	}
	generateVideo := false
	if input.GenerateVideo != nil {
		generateVideo = *input.GenerateVideo
	}

	listing := &models.Listing{
		ID:              id,
		UserID:          userID,
		Title:           title,
		Description:     input.Description,
		Category:        input.Category,
		Price:           input.Price,
		Quantity:        quantity,
		Condition:       input.Condition,
		Brand:           input.Brand,
		MPN:             input.MPN,
		ProductPhotoURL: input.ProductPhotoURL,
		TargetAudience:  input.TargetAudience,
		Features:        input.Features,
		VideoSetting:    input.VideoSetting,
		ImagePrompt:     input.ImagePrompt,
		VideoPrompt:     input.VideoPrompt,
		AvatarURL:       input.AvatarURL,
		GenerateImage:   generateImage,
		GenerateVideo:   generateVideo,
		Status:          enums.ListingStatusDraft,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, listing); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingCreated,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.ListingCreatedEvent{
				ListingID: listing.ID,
				UserID:    userID,
				Title:     listing.Title,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating listing")
	}
	return listing, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID, listingID string) (*models.Listing, error) {
	return s.loadOwned(ctx, userID, listingID)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListingPage, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing listings")
	}
	return page, nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, listingID string, input UpdateListingInput) (*models.Listing, error) {
	listing, err := s.loadOwned(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status == enums.ListingStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "published listings are immutable")
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		listing.Title = title
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		listing.Price = *input.Price
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		listing.Quantity = *input.Quantity
	}
	if input.Description != nil {
		listing.Description = input.Description
	}
	if input.Category != nil {
		listing.Category = input.Category
	}
	if input.Condition != nil {
		listing.Condition = input.Condition
	}
	if input.Brand != nil {
		listing.Brand = input.Brand
	}
	if input.MPN != nil {
		listing.MPN = input.MPN
	}
	if input.ProductPhotoURL != nil {
		listing.ProductPhotoURL = input.ProductPhotoURL
	}
	if input.TargetAudience != nil {
		listing.TargetAudience = input.TargetAudience
	}
	if input.Features != nil {
		listing.Features = input.Features
	}
	if input.VideoSetting != nil {
		listing.VideoSetting = input.VideoSetting
	}
	if input.ImagePrompt != nil {
		listing.ImagePrompt = input.ImagePrompt
	}
	if input.VideoPrompt != nil {
		listing.VideoPrompt = input.VideoPrompt
	}
	if input.AvatarURL != nil {
		listing.AvatarURL = input.AvatarURL
	}
	if input.GenerateImage != nil {
		listing.GenerateImage = *input.GenerateImage
	}
	if input.GenerateVideo != nil {
		listing.GenerateVideo = *input.GenerateVideo
	}

	if err := s.repo.Save(ctx, listing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating listing")
	}
	return listing, nil
}

func (s *service) Delete(ctx context.Context, userID uuid.UUID, listingID string) error {
	listing, err := s.loadOwned(ctx, userID, listingID)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, listing); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingDeleted,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.ListingDeletedEvent{
				ListingID: listing.ID,
				UserID:    userID,
				DeletedAt: time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting listing")
	}
	return nil
}

// RequestGeneration moves the listing into generating_media and triggers the
// external workflow. The in-progress status commits before the trigger fires,
// so a crash mid-call leaves the listing in a visible, recoverable state.
// A trigger failure after that commit is converted into the error status,
// never returned to the caller as a fault.
func (s *service) RequestGeneration(ctx context.Context, userID uuid.UUID, listingID string) (*models.Listing, error) {
	acquired, err := s.locker.AcquireListingLock(ctx, listingID, lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring listing lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another operation is in progress for this listing")
	}
	defer func() {
		if err := s.locker.ReleaseListingLock(ctx, listingID); err != nil {
			s.logg.Warn(s.logg.WithListingID(ctx, listingID), "releasing listing lock failed")
		}
	}()

	listing, err := s.loadOwned(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(listing.Status, ActionGenerateMedia, guardContextFor(listing)); err != nil {
		return nil, err
	}

	listing.Status = enums.ListingStatusGeneratingMedia
	clearError(listing)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, listing); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingGenerationStarted,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.ListingGenerationStartedEvent{
				ListingID:     listing.ID,
				UserID:        userID,
				GenerateImage: listing.GenerateImage,
				GenerateVideo: listing.GenerateVideo,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting generation start")
	}

	result, err := s.generator.Trigger(ctx, listing)
	if err != nil {
		s.logg.Error(s.logg.WithListingID(ctx, listingID), "generation trigger failed", err)
		return s.ApplyGenerationResult(ctx, listingID, GenerationResult{
			Success:      false,
			ErrorMessage: err.Error(),
		})
	}
	if result == nil {
		// Accepted; the workflow reports back through the webhook.
		return listing, nil
	}
	return s.ApplyGenerationResult(ctx, listingID, *result)
}

// ApplyGenerationResult merges a normalized result into the listing. It is
// shared by the synchronous trigger path and the webhook handler; applying
// the same result twice converges on the same state.
func (s *service) ApplyGenerationResult(ctx context.Context, listingID string, result GenerationResult) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	if listing.Status == enums.ListingStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is already published; stale result rejected")
	}

	if result.Success {
		result = s.rehostAssets(ctx, listingID, result)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		mergeGenerationResult(ctx, s.logg, listing, result)

		if err := txRepo.Save(ctx, listing); err != nil {
			return err
		}
		if result.Success && result.HasMediaOutput() && listing.Media != nil {
			if err := txRepo.UpsertMedia(ctx, listing.Media); err != nil {
				return err
			}
		}

		switch {
		case !result.Success:
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventListingGenerationFailed,
				AggregateType: enums.AggregateListing,
				AggregateID:   listing.ID,
				Data: payloads.ListingGenerationFailedEvent{
					ListingID: listing.ID,
					Reason:    result.failureMessage(),
				},
			})
		case listing.Status == enums.ListingStatusMediaReady:
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventListingMediaReady,
				AggregateType: enums.AggregateListing,
				AggregateID:   listing.ID,
				Data: payloads.ListingMediaReadyEvent{
					ListingID:  listing.ID,
					UserID:     listing.UserID,
					ImageCount: len(result.ImageURLs),
					HasVideo:   strings.TrimSpace(result.VideoURL) != "",
				},
			})
		default:
			return nil
		}
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying generation result")
	}
	return listing, nil
}

// rehostAssets copies each produced URL into owned storage. A failed asset is
// dropped from the result; the merge proceeds with the surviving subset.
func (s *service) rehostAssets(ctx context.Context, listingID string, result GenerationResult) GenerationResult {
	logCtx := s.logg.WithListingID(ctx, listingID)

	if len(result.ImageURLs) > 0 {
		hosted, err := s.rehoster.RehostMany(ctx, result.ImageURLs)
		if err != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "failed", len(result.ImageURLs)-len(hosted)), "some generated images could not be rehosted")
		}
		result.ImageURLs = hosted
	}
	if strings.TrimSpace(result.VideoURL) != "" {
		hosted, err := s.rehoster.Rehost(ctx, result.VideoURL)
		if err != nil {
			s.logg.Warn(logCtx, "generated video could not be rehosted")
			result.VideoURL = ""
		} else {
			result.VideoURL = hosted
		}
	}
	return result
}

func (s *service) ApproveMedia(ctx context.Context, userID uuid.UUID, listingID string) (*models.Listing, error) {
	listing, err := s.loadOwned(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(listing.Status, ActionApproveMedia, guardContextFor(listing)); err != nil {
		return nil, err
	}

	listing.Status = enums.ListingStatusApproved
	clearError(listing)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, listing); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingApproved,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.ListingApprovedEvent{
				ListingID: listing.ID,
				UserID:    userID,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approving media")
	}
	return listing, nil
}

// Publish moves the listing into publishing and calls the marketplace. As
// with generation, the in-progress status commits first and a collaborator
// failure is persisted as the error status rather than propagated.
func (s *service) Publish(ctx context.Context, userID uuid.UUID, listingID string) (*models.Listing, error) {
	acquired, err := s.locker.AcquireListingLock(ctx, listingID, lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring listing lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another operation is in progress for this listing")
	}
	defer func() {
		if err := s.locker.ReleaseListingLock(ctx, listingID); err != nil {
			s.logg.Warn(s.logg.WithListingID(ctx, listingID), "releasing listing lock failed")
		}
	}()

	listing, err := s.loadOwned(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(listing.Status, ActionPublish, guardContextFor(listing)); err != nil {
		return nil, err
	}

	sku := MarketplaceSKU(listing.ID)
	listing.Status = enums.ListingStatusPublishing
	listing.SKU = &sku
	clearError(listing)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, listing); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingPublishStarted,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.ListingPublishStartedEvent{
				ListingID: listing.ID,
				SKU:       sku,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting publish start")
	}

	result, err := s.marketplace.Publish(ctx, listing, sku)
	if err != nil {
		s.logg.Error(s.logg.WithListingID(ctx, listingID), "marketplace publish failed", err)
		return s.ApplyPublishResult(ctx, listingID, PublishResult{
			Success:      false,
			ErrorMessage: err.Error(),
		})
	}
	if result == nil {
		return listing, nil
	}
	if strings.TrimSpace(result.SKU) == "" {
		result.SKU = sku
	}
	return s.ApplyPublishResult(ctx, listingID, *result)
}

// ApplyPublishResult finalizes a publish attempt. A duplicate success
// callback against an already published listing is a no-op; any other late
// callback against a published listing is rejected.
func (s *service) ApplyPublishResult(ctx context.Context, listingID string, result PublishResult) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	if listing.Status == enums.ListingStatusPublished {
		if result.Success {
			return listing, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "listing is already published; stale result rejected")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if !result.Success {
			setError(listing, result.failureMessage())
			if err := txRepo.Save(ctx, listing); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventListingPublishFailed,
				AggregateType: enums.AggregateListing,
				AggregateID:   listing.ID,
				Data: payloads.ListingPublishFailedEvent{
					ListingID: listing.ID,
					Reason:    result.failureMessage(),
				},
			})
		}

		if strings.TrimSpace(result.SKU) == "" {
			result.SKU = MarketplaceSKU(listing.ID)
		}
		now := time.Now().UTC()
		createSnapshot := listing.Published == nil
		applyPublishSuccess(listing, result, now)

		if err := txRepo.Save(ctx, listing); err != nil {
			return err
		}
		if createSnapshot {
			if err := txRepo.CreatePublished(ctx, listing.Published); err != nil {
				return err
			}
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingPublished,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Data: payloads.ListingPublishedEvent{
				ListingID:      listing.ID,
				ExternalItemID: result.ItemID,
				ExternalURL:    result.URL,
				SKU:            result.SKU,
				PublishedAt:    now,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying publish result")
	}
	return listing, nil
}
