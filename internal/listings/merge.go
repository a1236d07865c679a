package listings

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	dbtypes "github.com/brandinbox/brandinbox-backend/pkg/db/types"
	"github.com/brandinbox/brandinbox-backend/pkg/enums"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

const genericGenerationFailure = "media generation failed"

// GenerationResult is the normalized outcome of a generation run. It is
// produced at the collaborator boundary (trigger client or webhook handler);
// the merge logic below never sees the raw wire payload. Empty string fields
// mean "not produced" and leave the listing untouched.
type GenerationResult struct {
	Success      bool
	ErrorMessage string

	Title       string
	Description string
	Brand       string
	MPN         string
	Condition   string
	Category    string
	SKU         string
	Price       string
	Quantity    *int
	Aspects     map[string]any

	ImageURLs []string
	VideoURL  string
}

// HasMediaOutput reports whether the run produced any asset at all.
func (r GenerationResult) HasMediaOutput() bool {
	return len(r.ImageURLs) > 0 || strings.TrimSpace(r.VideoURL) != ""
}

func (r GenerationResult) failureMessage() string {
	if msg := strings.TrimSpace(r.ErrorMessage); msg != "" {
		return msg
	}
	return genericGenerationFailure
}

// PublishResult is the normalized outcome of a marketplace publish attempt.
type PublishResult struct {
	Success      bool
	ErrorMessage string

	ItemID  string
	URL     string
	OfferID string
	SKU     string
	Fees    map[string]any
}

func (r PublishResult) failureMessage() string {
	if msg := strings.TrimSpace(r.ErrorMessage); msg != "" {
		return msg
	}
	return "marketplace publish failed"
}

// mergeGenerationResult applies a normalized result to the listing and its
// media in memory. Applying the same result twice re-derives the same state:
// every field is overwritten, the image list is replaced rather than
// appended, and a channel the run did not produce keeps its prior value.
// Callers persist listing and listing.Media in a single transaction.
func mergeGenerationResult(ctx context.Context, logg *logger.Logger, listing *models.Listing, result GenerationResult) {
	if !result.Success {
		setError(listing, result.failureMessage())
		return
	}

	enriched := applyEnrichment(ctx, logg, listing, result)
	mediaProduced := upsertMedia(listing, result)

	switch {
	case mediaProduced:
		listing.Status = enums.ListingStatusMediaReady
	case enriched:
		listing.Status = enums.ListingStatusMediaReady
	default:
		// Successful run that produced literally nothing: back to draft so
		// the listing stays actionable.
		listing.Status = enums.ListingStatusDraft
	}
	listing.ErrorMessage = nil
}

// applyEnrichment overwrites listing fields for every result field that is
// present and non-empty, and reports whether anything was applied.
func applyEnrichment(ctx context.Context, logg *logger.Logger, listing *models.Listing, result GenerationResult) bool {
	applied := false

	if v := strings.TrimSpace(result.Title); v != "" {
		listing.Title = v
		applied = true
	}
	if v := strings.TrimSpace(result.Description); v != "" {
		listing.EnrichedDescription = &v
		applied = true
	}
	if v := strings.TrimSpace(result.Brand); v != "" {
		listing.Brand = &v
		applied = true
	}
	if v := strings.TrimSpace(result.MPN); v != "" {
		listing.MPN = &v
		applied = true
	}
	if v := strings.TrimSpace(result.Condition); v != "" {
		listing.Condition = &v
		applied = true
	}
	if v := strings.TrimSpace(result.Category); v != "" {
		listing.Category = &v
		applied = true
	}
	if v := strings.TrimSpace(result.SKU); v != "" {
		listing.EnrichedSKU = &v
		applied = true
	}
	if result.Quantity != nil && *result.Quantity >= 0 {
		listing.Quantity = *result.Quantity
		applied = true
	}
	if len(result.Aspects) > 0 {
		listing.Aspects = dbtypes.JSONMap(result.Aspects)
		applied = true
	}
	if v := strings.TrimSpace(result.Price); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil || price.IsNegative() {
			// Malformed price never aborts the merge; the prior price stands.
			if logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{
					"listing_id": listing.ID,
					"price":      v,
				}), "skipping malformed price in generation result")
			}
		} else {
			listing.Price = price
			applied = true
		}
	}

	return applied
}

// upsertMedia replaces only the channels the run actually produced. A channel
// absent from the result keeps whatever was stored before.
func upsertMedia(listing *models.Listing, result GenerationResult) bool {
	if !result.HasMediaOutput() {
		return false
	}

	if listing.Media == nil {
		listing.Media = &models.ListingMedia{ListingID: listing.ID}
	}
	if len(result.ImageURLs) > 0 {
		listing.Media.ImageURLs = append([]string(nil), result.ImageURLs...)
	}
	if v := strings.TrimSpace(result.VideoURL); v != "" {
		listing.Media.VideoURL = &v
	}
	return true
}

func setError(listing *models.Listing, message string) {
	listing.Status = enums.ListingStatusError
	listing.ErrorMessage = &message
}

func clearError(listing *models.Listing) {
	listing.ErrorMessage = nil
}

// applyPublishSuccess writes the once-only marketplace identifiers and the
// published snapshot.
func applyPublishSuccess(listing *models.Listing, result PublishResult, now time.Time) {
	listing.Status = enums.ListingStatusPublished
	listing.ErrorMessage = nil
	listing.PublishedAt = &now

	if v := strings.TrimSpace(result.ItemID); v != "" {
		listing.ExternalListingID = &v
	}
	if v := strings.TrimSpace(result.OfferID); v != "" {
		listing.OfferID = &v
	}
	if v := strings.TrimSpace(result.SKU); v != "" {
		listing.SKU = &v
	}

	if listing.Published == nil {
		listing.Published = &models.PublishedListing{
			ListingID:      listing.ID,
			ExternalItemID: result.ItemID,
			ExternalURL:    result.URL,
			SKU:            result.SKU,
			Fees:           dbtypes.JSONMap(result.Fees),
			PublishedAt:    now,
		}
	}
}
