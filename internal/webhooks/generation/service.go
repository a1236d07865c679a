package generationwebhook

import (
	"context"

	"github.com/brandinbox/brandinbox-backend/internal/generation"
	"github.com/brandinbox/brandinbox-backend/internal/listings"
	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

type listingService interface {
	ApplyGenerationResult(ctx context.Context, listingID string, result listings.GenerationResult) (*models.Listing, error)
}

type ServiceParams struct {
	Listings listingService
	Logger   *logger.Logger
}

// Service applies asynchronous media generation callbacks to listings.
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

// HandleCallback decodes the callback body and merges the result into the
// referenced listing.
func (s *Service) HandleCallback(ctx context.Context, body []byte) (*models.Listing, error) {
	result, listingID, err := generation.ParseResult(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode generation callback")
	}
	if listingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing_id is required")
	}

	listing, err := s.listings.ApplyGenerationResult(ctx, listingID, result)
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithListingID(ctx, listingID), "generation callback applied")
	return listing, nil
}
