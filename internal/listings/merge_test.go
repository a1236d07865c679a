package listings

import (
	"context"
	"io"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	"github.com/brandinbox/brandinbox-backend/pkg/enums"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func strPtr(s string) *string { return &s }

func generatingListing() *models.Listing {
	return &models.Listing{
		ID:              "abc123def456",
		Title:           "Ceramic Mug",
		Price:           decimal.NewFromInt(25),
		Quantity:        1,
		ProductPhotoURL: strPtr("https://storage.googleapis.com/bucket/photo.png"),
		Status:          enums.ListingStatusGeneratingMedia,
	}
}

func TestMergeFailureSetsErrorAndLeavesMediaAlone(t *testing.T) {
	listing := generatingListing()
	listing.Media = &models.ListingMedia{ListingID: listing.ID, ImageURLs: []string{"https://img/1.png"}}

	mergeGenerationResult(context.Background(), testLogger(), listing, GenerationResult{
		Success:      false,
		ErrorMessage: "render timed out",
	})

	if listing.Status != enums.ListingStatusError {
		t.Fatalf("expected error status, got %s", listing.Status)
	}
	if listing.ErrorMessage == nil || *listing.ErrorMessage != "render timed out" {
		t.Fatalf("expected error message preserved, got %v", listing.ErrorMessage)
	}
	if len(listing.Media.ImageURLs) != 1 {
		t.Fatal("failure branch must not touch media")
	}
}

func TestMergeFailureFallbackMessage(t *testing.T) {
	listing := generatingListing()

	mergeGenerationResult(context.Background(), testLogger(), listing, GenerationResult{Success: false})

	if listing.ErrorMessage == nil || *listing.ErrorMessage != genericGenerationFailure {
		t.Fatalf("expected fallback message, got %v", listing.ErrorMessage)
	}
}

func TestMergeSuccessWithImagesOnly(t *testing.T) {
	listing := generatingListing()

	mergeGenerationResult(context.Background(), testLogger(), listing, GenerationResult{
		Success:   true,
		ImageURLs: []string{"https://img/1.png", "https://img/2.png"},
	})

	if listing.Status != enums.ListingStatusMediaReady {
		t.Fatalf("expected media_ready, got %s", listing.Status)
	}
	if listing.Media == nil || len(listing.Media.ImageURLs) != 2 {
		t.Fatalf("expected 2 images, got %+v", listing.Media)
	}
	if listing.Media.VideoURL != nil {
		t.Fatal("video channel must stay untouched")
	}
	if listing.ErrorMessage != nil {
		t.Fatal("error message must be cleared on success")
	}
}

func TestMergeVideoOnlyKeepsPriorImages(t *testing.T) {
	listing := generatingListing()
	listing.Media = &models.ListingMedia{
		ListingID: listing.ID,
		ImageURLs: []string{"https://img/old-1.png", "https://img/old-2.png"},
	}

	mergeGenerationResult(context.Background(), testLogger(), listing, GenerationResult{
		Success:  true,
		VideoURL: "https://video/clip.mp4",
	})

	if len(listing.Media.ImageURLs) != 2 {
		t.Fatalf("prior image list must survive a video-only result, got %v", listing.Media.ImageURLs)
	}
	if listing.Media.VideoURL == nil || *listing.Media.VideoURL != "https://video/clip.mp4" {
		t.Fatalf("expected video set, got %v", listing.Media.VideoURL)
	}
}

func TestMergeImagesReplaceNotAppend(t *testing.T) {
	listing := generatingListing()
	listing.Media = &models.ListingMedia{
		ListingID: listing.ID,
		ImageURLs: []string{"https://img/old.png"},
		VideoURL:  strPtr("https://video/old.mp4"),
	}

	result := GenerationResult{Success: true, ImageURLs: []string{"https://img/new.png"}}
	mergeGenerationResult(context.Background(), testLogger(), listing, result)

	if !reflect.DeepEqual([]string(listing.Media.ImageURLs), []string{"https://img/new.png"}) {
		t.Fatalf("image list must be replaced, got %v", listing.Media.ImageURLs)
	}
	if listing.Media.VideoURL == nil || *listing.Media.VideoURL != "https://video/old.mp4" {
		t.Fatal("image-only result must not clear the stored video")
	}
}

func TestMergeEnrichmentOverwrites(t *testing.T) {
	listing := generatingListing()
	qty := 3

	mergeGenerationResult(context.Background(), testLogger(), listing, GenerationResult{
		Success:     true,
		Title:       "Handmade Ceramic Mug",
		Description: "A rich marketing description.",
		Brand:       "Kilnworks",
		MPN:         "KW-100",
		Condition:   "NEW",
		Category:    "38199",
		SKU:         "MUG-CERAMIC-01",
		Price:       "34.99",
		Quantity:    &qty,
		Aspects:     map[string]any{"Color": "Blue"},
		ImageURLs:   []string{"https://img/1.png"},
	})

	if listing.Title != "Handmade Ceramic Mug" {
		t.Fatalf("title not overwritten: %s", listing.Title)
	}
	if listing.EnrichedDescription == nil || *listing.EnrichedDescription != "A rich marketing description." {
		t.Fatal("description must land in enriched_description")
	}
	if listing.EnrichedSKU == nil || *listing.EnrichedSKU != "MUG-CERAMIC-01" {
		t.Fatal("sku must land in enriched_sku")
	}
	if !listing.Price.Equal(decimal.RequireFromString("34.99")) {
		t.Fatalf("expected price 34.99, got %s", listing.Price)
	}
	if listing.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", listing.Quantity)
	}
	if listing.Aspects["Color"] != "Blue" {
		t.Fatalf("aspects not applied: %v", listing.Aspects)
	}
}

func TestMergeMalformedPriceIsSkipped(t *testing.T) {
	listing := generatingListing()

	mergeGenerationResult(context.Background(), testLogger(), listing, GenerationResult{
		Success:   true,
		Price:     "N/A",
		ImageURLs: []string{"https://img/1.png"},
	})

	if !listing.Price.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("malformed price must leave the prior value, got %s", listing.Price)
	}
	if listing.Status != enums.ListingStatusMediaReady {
		t.Fatalf("malformed price must not fail the merge, got %s", listing.Status)
	}
}

func TestMergeNoOutputRevertsToDraft(t *testing.T) {
	listing := generatingListing()

	mergeGenerationResult(context.Background(), testLogger(), listing, GenerationResult{Success: true})

	if listing.Status != enums.ListingStatusDraft {
		t.Fatalf("no-output success must revert to draft, got %s", listing.Status)
	}
	if listing.Media != nil {
		t.Fatal("no media record should be created")
	}
	if listing.ErrorMessage != nil {
		t.Fatal("error message must be cleared")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	first := generatingListing()
	result := GenerationResult{
		Success:     true,
		Title:       "Handmade Ceramic Mug",
		Description: "Marketing copy.",
		Price:       "19.50",
		ImageURLs:   []string{"https://img/1.png", "https://img/2.png"},
		VideoURL:    "https://video/clip.mp4",
	}

	mergeGenerationResult(context.Background(), testLogger(), first, result)

	second := generatingListing()
	mergeGenerationResult(context.Background(), testLogger(), second, result)
	mergeGenerationResult(context.Background(), testLogger(), second, result)

	if first.Status != second.Status || first.Title != second.Title {
		t.Fatal("double application diverged from single application")
	}
	if !first.Price.Equal(second.Price) {
		t.Fatal("price diverged on re-application")
	}
	if !reflect.DeepEqual([]string(first.Media.ImageURLs), []string(second.Media.ImageURLs)) {
		t.Fatalf("image list diverged: %v vs %v", first.Media.ImageURLs, second.Media.ImageURLs)
	}
}

func TestMergeRecoversFromErrorState(t *testing.T) {
	listing := generatingListing()
	listing.Status = enums.ListingStatusError
	listing.ErrorMessage = strPtr("previous failure")

	mergeGenerationResult(context.Background(), testLogger(), listing, GenerationResult{
		Success:   true,
		ImageURLs: []string{"https://img/1.png"},
	})

	if listing.Status != enums.ListingStatusMediaReady {
		t.Fatalf("expected media_ready, got %s", listing.Status)
	}
	if listing.ErrorMessage != nil {
		t.Fatal("error message must be cleared on recovery")
	}
}
