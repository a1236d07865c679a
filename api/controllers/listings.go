package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brandinbox/brandinbox-backend/api/middleware"
	"github.com/brandinbox/brandinbox-backend/api/responses"
	"github.com/brandinbox/brandinbox-backend/api/validators"
	listingsvc "github.com/brandinbox/brandinbox-backend/internal/listings"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
	"github.com/brandinbox/brandinbox-backend/pkg/pagination"
)

func requestUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	uid, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return uid, nil
}

func listingIDParam(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "listingID"))
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}
	return id, nil
}

type createListingRequest struct {
	Title           string  `json:"title" validate:"required"`
	Description     *string `json:"description,omitempty"`
	Category        *string `json:"category,omitempty"`
	Price           string  `json:"price,omitempty"`
	Quantity        int     `json:"quantity,omitempty" validate:"omitempty,min=1"`
	Condition       *string `json:"condition,omitempty"`
	Brand           *string `json:"brand,omitempty"`
	MPN             *string `json:"mpn,omitempty"`
	ProductPhotoURL *string `json:"product_photo_url,omitempty"`
	TargetAudience  *string `json:"target_audience,omitempty"`
	Features        *string `json:"features,omitempty"`
	VideoSetting    *string `json:"video_setting,omitempty"`
	ImagePrompt     *string `json:"image_prompt,omitempty"`
	VideoPrompt     *string `json:"video_prompt,omitempty"`
	AvatarURL       *string `json:"avatar_url,omitempty"`
	GenerateImage   *bool   `json:"generate_image,omitempty"`
	GenerateVideo   *bool   `json:"generate_video,omitempty"`
}

func (req createListingRequest) toCreateInput() (listingsvc.CreateListingInput, error) {
	price := decimal.Zero
	if strings.TrimSpace(req.Price) != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(req.Price))
		if err != nil {
			return listingsvc.CreateListingInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
		}
		price = parsed
	}

	return listingsvc.CreateListingInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Price:           price,
		Quantity:        req.Quantity,
		Condition:       req.Condition,
		Brand:           req.Brand,
		MPN:             req.MPN,
		ProductPhotoURL: req.ProductPhotoURL,
		TargetAudience:  req.TargetAudience,
		Features:        req.Features,
		VideoSetting:    req.VideoSetting,
		ImagePrompt:     req.ImagePrompt,
		VideoPrompt:     req.VideoPrompt,
		AvatarURL:       req.AvatarURL,
		GenerateImage:   req.GenerateImage,
		GenerateVideo:   req.GenerateVideo,
	}, nil
}

type updateListingRequest struct {
	Title           *string `json:"title,omitempty"`
	Description     *string `json:"description,omitempty"`
	Category        *string `json:"category,omitempty"`
	Price           *string `json:"price,omitempty"`
	Quantity        *int    `json:"quantity,omitempty" validate:"omitempty,min=1"`
	Condition       *string `json:"condition,omitempty"`
	Brand           *string `json:"brand,omitempty"`
	MPN             *string `json:"mpn,omitempty"`
	ProductPhotoURL *string `json:"product_photo_url,omitempty"`
	TargetAudience  *string `json:"target_audience,omitempty"`
	Features        *string `json:"features,omitempty"`
	VideoSetting    *string `json:"video_setting,omitempty"`
	ImagePrompt     *string `json:"image_prompt,omitempty"`
	VideoPrompt     *string `json:"video_prompt,omitempty"`
	AvatarURL       *string `json:"avatar_url,omitempty"`
	GenerateImage   *bool   `json:"generate_image,omitempty"`
	GenerateVideo   *bool   `json:"generate_video,omitempty"`
}

func (req updateListingRequest) toUpdateInput() (listingsvc.UpdateListingInput, error) {
	input := listingsvc.UpdateListingInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Quantity:        req.Quantity,
		Condition:       req.Condition,
		Brand:           req.Brand,
		MPN:             req.MPN,
		ProductPhotoURL: req.ProductPhotoURL,
		TargetAudience:  req.TargetAudience,
		Features:        req.Features,
		VideoSetting:    req.VideoSetting,
		ImagePrompt:     req.ImagePrompt,
		VideoPrompt:     req.VideoPrompt,
		AvatarURL:       req.AvatarURL,
		GenerateImage:   req.GenerateImage,
		GenerateVideo:   req.GenerateVideo,
	}

	if req.Price != nil {
		parsed, err := decimal.NewFromString(strings.TrimSpace(*req.Price))
		if err != nil {
			return listingsvc.UpdateListingInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
		}
		input.Price = &parsed
	}
	return input, nil
}

// CreateListing drafts a new listing for the authenticated seller.
func CreateListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		uid, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Create(r.Context(), uid, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, listingsvc.ToResponse(listing))
	}
}

// ListListings returns the seller's listings, newest first.
func ListListings(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		uid, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), uid, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"listings":    listingsvc.ToResponses(page.Listings),
			"next_cursor": page.NextCursor,
		})
	}
}

// GetListing returns a single listing owned by the caller.
func GetListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		uid, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Get(r.Context(), uid, listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listingsvc.ToResponse(listing))
	}
}

// UpdateListing applies a partial update to a draft-stage listing.
func UpdateListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		uid, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Update(r.Context(), uid, listingID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listingsvc.ToResponse(listing))
	}
}

// DeleteListing removes a listing and its media records.
func DeleteListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		uid, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), uid, listingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// GenerateListingMedia kicks off media generation for a draft listing.
func GenerateListingMedia(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return listingAction(svc, logg, func(r *http.Request, uid uuid.UUID, listingID string) (any, error) {
		listing, err := svc.RequestGeneration(r.Context(), uid, listingID)
		if err != nil {
			return nil, err
		}
		return listingsvc.ToResponse(listing), nil
	})
}

// ApproveListingMedia records the seller's sign-off on generated media.
func ApproveListingMedia(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return listingAction(svc, logg, func(r *http.Request, uid uuid.UUID, listingID string) (any, error) {
		listing, err := svc.ApproveMedia(r.Context(), uid, listingID)
		if err != nil {
			return nil, err
		}
		return listingsvc.ToResponse(listing), nil
	})
}

// PublishListing hands an approved listing off to the marketplace.
func PublishListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return listingAction(svc, logg, func(r *http.Request, uid uuid.UUID, listingID string) (any, error) {
		listing, err := svc.Publish(r.Context(), uid, listingID)
		if err != nil {
			return nil, err
		}
		return listingsvc.ToResponse(listing), nil
	})
}

func listingAction(svc listingsvc.Service, logg *logger.Logger, action func(*http.Request, uuid.UUID, string) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		uid, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := listingIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := action(r, uid, listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
