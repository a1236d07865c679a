package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brandinbox/brandinbox-backend/internal/listings"
	"github.com/brandinbox/brandinbox-backend/pkg/config"
	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

const responseBodyReadLimit int64 = 1 << 20

// Client triggers the external workflow engine that renders marketing media.
// It implements listings.MediaGenerator.
type Client struct {
	httpClient  *http.Client
	webhookURL  string
	authToken   string
	callbackURL string
	logg        *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the trigger client. callbackURL is where the workflow
// engine posts asynchronous results.
func NewClient(cfg config.GenerationConfig, callbackURL string, logg *logger.Logger, opts ...Option) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, fmt.Errorf("generation webhook url is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		webhookURL:  webhookURL,
		authToken:   strings.TrimSpace(cfg.AuthToken),
		callbackURL: strings.TrimSpace(callbackURL),
		logg:        logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// triggerRequest is the listing snapshot handed to the workflow engine.
type triggerRequest struct {
	ListingID       string         `json:"listing_id"`
	CallbackURL     string         `json:"callback_url,omitempty"`
	ProductPhotoURL string         `json:"product_photo_url"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Category        string         `json:"category,omitempty"`
	Price           string         `json:"price"`
	Quantity        int            `json:"quantity"`
	Condition       string         `json:"condition,omitempty"`
	Brand           string         `json:"brand,omitempty"`
	MPN             string         `json:"mpn,omitempty"`
	TargetAudience  string         `json:"target_audience,omitempty"`
	Features        string         `json:"features,omitempty"`
	VideoSetting    string         `json:"video_setting,omitempty"`
	ImagePrompt     string         `json:"image_prompt,omitempty"`
	VideoPrompt     string         `json:"video_prompt,omitempty"`
	AvatarURL       string         `json:"avatar_url,omitempty"`
	GenerateImage   bool           `json:"generate_image"`
	GenerateVideo   bool           `json:"generate_video"`
	Aspects         map[string]any `json:"aspects,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Trigger posts the listing snapshot to the workflow engine. A 2xx response
// with a JSON body is normalized and returned inline; an empty or accepted
// response means the engine will call back later, signalled by a nil result.
func (c *Client) Trigger(ctx context.Context, listing *models.Listing) (*listings.GenerationResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "generation client not configured")
	}
	if listing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing is required")
	}

	payload := triggerRequest{
		ListingID:       listing.ID,
		CallbackURL:     c.callbackURL,
		ProductPhotoURL: deref(listing.ProductPhotoURL),
		Title:           listing.Title,
		Description:     deref(listing.Description),
		Category:        deref(listing.Category),
		Price:           listing.Price.String(),
		Quantity:        listing.Quantity,
		Condition:       deref(listing.Condition),
		Brand:           deref(listing.Brand),
		MPN:             deref(listing.MPN),
		TargetAudience:  deref(listing.TargetAudience),
		Features:        deref(listing.Features),
		VideoSetting:    deref(listing.VideoSetting),
		ImagePrompt:     deref(listing.ImagePrompt),
		VideoPrompt:     deref(listing.VideoPrompt),
		AvatarURL:       deref(listing.AvatarURL),
		GenerateImage:   listing.GenerateImage,
		GenerateVideo:   listing.GenerateVideo,
		Aspects:         listing.Aspects,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal trigger request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build trigger request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute trigger request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read trigger response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
			"trigger request failed")
	}

	if resp.StatusCode == http.StatusAccepted || len(bytes.TrimSpace(raw)) == 0 {
		if c.logg != nil {
			c.logg.Info(c.logg.WithListingID(ctx, listing.ID), "generation accepted; awaiting webhook callback")
		}
		return nil, nil
	}

	result, _, err := ParseResult(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode trigger response")
	}
	return &result, nil
}
