package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brandinbox/brandinbox-backend/internal/listings"
	"github.com/brandinbox/brandinbox-backend/pkg/config"
	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

const (
	inventoryItemPath = "/sell/inventory/v1/inventory_item/"
	offerPath         = "/sell/inventory/v1/offer"
	marketplaceID     = "EBAY_US"
	currencyCode      = "USD"
	defaultCondition  = "NEW"

	errorBodyReadLimit int64 = 64 << 10
)

// Client publishes approved listings through the eBay Inventory API: upsert
// the inventory item, create an offer, publish the offer. It implements
// listings.MarketplacePublisher.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	listingBaseURL string
	oauthToken     string
	cfg            config.MarketplaceConfig
	logg           *logger.Logger
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

// NewClient builds the marketplace client.
func NewClient(cfg config.MarketplaceConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("marketplace base url is required")
	}
	if strings.TrimSpace(cfg.OAuthToken) == "" {
		return nil, fmt.Errorf("marketplace oauth token is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		listingBaseURL: strings.TrimRight(strings.TrimSpace(cfg.ListingBaseURL), "/"),
		oauthToken:     strings.TrimSpace(cfg.OAuthToken),
		cfg:            cfg,
		logg:           logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Publish runs the three-step choreography and returns the normalized
// outcome. Any failed step aborts with a dependency error naming the step;
// the orchestrator persists that as the listing's error state.
func (c *Client) Publish(ctx context.Context, listing *models.Listing, sku string) (*listings.PublishResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "marketplace client not configured")
	}
	if listing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing is required")
	}
	if strings.TrimSpace(sku) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}

	if err := c.upsertInventoryItem(ctx, listing, sku); err != nil {
		return nil, err
	}
	offerID, err := c.createOffer(ctx, listing, sku)
	if err != nil {
		return nil, err
	}
	itemID, fees, err := c.publishOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	result := &listings.PublishResult{
		Success: true,
		ItemID:  itemID,
		OfferID: offerID,
		SKU:     sku,
		Fees:    fees,
	}
	if c.listingBaseURL != "" && itemID != "" {
		result.URL = c.listingBaseURL + "/" + url.PathEscape(itemID)
	}
	return result, nil
}

type inventoryItemRequest struct {
	Product      inventoryProduct      `json:"product"`
	Condition    string                `json:"condition"`
	Availability inventoryAvailability `json:"availability"`
}

type inventoryProduct struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Brand       string              `json:"brand,omitempty"`
	MPN         string              `json:"mpn,omitempty"`
	Aspects     map[string][]string `json:"aspects,omitempty"`
	ImageURLs   []string            `json:"imageUrls,omitempty"`
	VideoIDs    []string            `json:"videoIds,omitempty"`
}

type inventoryAvailability struct {
	ShipToLocation shipToLocation `json:"shipToLocationAvailability"`
}

type shipToLocation struct {
	Quantity int `json:"quantity"`
}

func (c *Client) upsertInventoryItem(ctx context.Context, listing *models.Listing, sku string) error {
	condition := defaultCondition
	if listing.Condition != nil && strings.TrimSpace(*listing.Condition) != "" {
		condition = strings.ToUpper(strings.TrimSpace(*listing.Condition))
	}

	description := ""
	if listing.EnrichedDescription != nil {
		description = *listing.EnrichedDescription
	} else if listing.Description != nil {
		description = *listing.Description
	}

	payload := inventoryItemRequest{
		Product: inventoryProduct{
			Title:       listing.Title,
			Description: description,
			Brand:       deref(listing.Brand),
			MPN:         deref(listing.MPN),
			Aspects:     aspectsFor(listing),
			ImageURLs:   imageURLsFor(listing),
		},
		Condition: condition,
		Availability: inventoryAvailability{
			ShipToLocation: shipToLocation{Quantity: listing.Quantity},
		},
	}

	endpoint := c.baseURL + inventoryItemPath + url.PathEscape(sku)
	return c.do(ctx, http.MethodPut, endpoint, payload, nil, "upsert inventory item")
}

type offerRequest struct {
	SKU              string          `json:"sku"`
	MarketplaceID    string          `json:"marketplaceId"`
	Format           string          `json:"format"`
	CategoryID       string          `json:"categoryId,omitempty"`
	PricingSummary   pricingSummary  `json:"pricingSummary"`
	ListingPolicies  listingPolicies `json:"listingPolicies"`
	MerchantLocation string          `json:"merchantLocationKey,omitempty"`
	AvailableQty     int             `json:"availableQuantity"`
}

type pricingSummary struct {
	Price moneyAmount `json:"price"`
}

type moneyAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type listingPolicies struct {
	FulfillmentPolicyID string `json:"fulfillmentPolicyId,omitempty"`
	PaymentPolicyID     string `json:"paymentPolicyId,omitempty"`
	ReturnPolicyID      string `json:"returnPolicyId,omitempty"`
}

type offerResponse struct {
	OfferID string `json:"offerId"`
}

func (c *Client) createOffer(ctx context.Context, listing *models.Listing, sku string) (string, error) {
	payload := offerRequest{
		SKU:           sku,
		MarketplaceID: marketplaceID,
		Format:        "FIXED_PRICE",
		CategoryID:    deref(listing.Category),
		PricingSummary: pricingSummary{
			Price: moneyAmount{Value: listing.Price.StringFixed(2), Currency: currencyCode},
		},
		ListingPolicies: listingPolicies{
			FulfillmentPolicyID: c.cfg.FulfillmentPolicyID,
			PaymentPolicyID:     c.cfg.PaymentPolicyID,
			ReturnPolicyID:      c.cfg.ReturnPolicyID,
		},
		MerchantLocation: c.cfg.MerchantLocationKey,
		AvailableQty:     listing.Quantity,
	}

	var resp offerResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+offerPath, payload, &resp, "create offer"); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.OfferID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "create offer: response missing offerId")
	}
	return resp.OfferID, nil
}

type publishResponse struct {
	ListingID string `json:"listingId"`
	Fees      []struct {
		FeeType string `json:"feeType"`
		Amount  struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"amount"`
	} `json:"fees"`
}

func (c *Client) publishOffer(ctx context.Context, offerID string) (string, map[string]any, error) {
	endpoint := c.baseURL + offerPath + "/" + url.PathEscape(offerID) + "/publish/"

	var resp publishResponse
	if err := c.do(ctx, http.MethodPost, endpoint, struct{}{}, &resp, "publish offer"); err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(resp.ListingID) == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeDependency, "publish offer: response missing listingId")
	}

	var fees map[string]any
	if len(resp.Fees) > 0 {
		fees = make(map[string]any, len(resp.Fees))
		for _, fee := range resp.Fees {
			if fee.FeeType == "" {
				continue
			}
			fees[fee.FeeType] = fee.Amount.Value + " " + fee.Amount.Currency
		}
	}
	return resp.ListingID, fees, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, out any, step string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step+": marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step+": build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.oauthToken)
	req.Header.Set("Content-Language", "en-US")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step+": execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
			step+" failed")
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, step+": decode response")
		}
	}
	return nil
}

func imageURLsFor(listing *models.Listing) []string {
	if listing.Media == nil {
		return nil
	}
	return append([]string(nil), listing.Media.ImageURLs...)
}

// aspectsFor converts the stored aspect map to the string-list shape the
// Inventory API requires.
func aspectsFor(listing *models.Listing) map[string][]string {
	if len(listing.Aspects) == 0 {
		return nil
	}
	aspects := make(map[string][]string, len(listing.Aspects))
	for name, value := range listing.Aspects {
		switch v := value.(type) {
		case string:
			if v != "" {
				aspects[name] = []string{v}
			}
		case []any:
			values := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					values = append(values, s)
				}
			}
			if len(values) > 0 {
				aspects[name] = values
			}
		default:
			aspects[name] = []string{fmt.Sprintf("%v", v)}
		}
	}
	if len(aspects) == 0 {
		return nil
	}
	return aspects
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
