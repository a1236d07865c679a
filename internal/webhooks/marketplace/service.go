package marketplacewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/brandinbox/brandinbox-backend/internal/listings"
	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

type listingService interface {
	ApplyPublishResult(ctx context.Context, listingID string, result listings.PublishResult) (*models.Listing, error)
}

// WirePayload is the marketplace publish notification shape. Some senders
// reference the listing directly, others only carry the SKU we submitted.
type WirePayload struct {
	ListingID string         `json:"listing_id"`
	SKU       string         `json:"sku"`
	Status    string         `json:"status"`
	Success   *bool          `json:"success"`
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	ItemID    string         `json:"item_id"`
	OfferID   string         `json:"offer_id"`
	URL       string         `json:"listing_url"`
	Fees      map[string]any `json:"fees"`
}

func (p WirePayload) succeeded() bool {
	if p.Success != nil {
		return *p.Success
	}
	switch strings.ToLower(strings.TrimSpace(p.Status)) {
	case "failure", "failed", "error":
		return false
	}
	return true
}

func (p WirePayload) errorMessage() string {
	if msg := strings.TrimSpace(p.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(p.Message)
}

// Normalize converts the wire payload into the publish result shape the
// listings service consumes.
func Normalize(payload WirePayload) listings.PublishResult {
	return listings.PublishResult{
		Success:      payload.succeeded(),
		ErrorMessage: payload.errorMessage(),
		ItemID:       strings.TrimSpace(payload.ItemID),
		URL:          strings.TrimSpace(payload.URL),
		OfferID:      strings.TrimSpace(payload.OfferID),
		SKU:          strings.TrimSpace(payload.SKU),
		Fees:         payload.Fees,
	}
}

type ServiceParams struct {
	Listings listingService
	Logger   *logger.Logger
}

// Service applies asynchronous marketplace publish notifications to listings.
type Service struct {
	listings listingService
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Listings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listings service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		listings: params.Listings,
		logg:     params.Logger,
	}, nil
}

// HandleNotification decodes the notification body and finalizes the publish
// attempt on the referenced listing.
func (s *Service) HandleNotification(ctx context.Context, body []byte) (*models.Listing, error) {
	var payload WirePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode publish notification")
	}

	listingID := strings.TrimSpace(payload.ListingID)
	if listingID == "" {
		listingID = listings.ListingIDFromSKU(strings.TrimSpace(payload.SKU))
	}
	if listingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification does not reference a listing")
	}

	listing, err := s.listings.ApplyPublishResult(ctx, listingID, Normalize(payload))
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithListingID(ctx, listingID), "publish notification applied")
	return listing, nil
}
