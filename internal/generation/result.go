package generation

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/brandinbox/brandinbox-backend/internal/listings"
)

// flexString accepts a JSON string or number. The workflow engine is not
// consistent about how it encodes prices and quantities.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(trimmed)
	return nil
}

type wireAssets struct {
	ImageURL string `json:"image_url"`
	VideoURL string `json:"video_url"`
}

// WirePayload is the raw generation callback body. Two shapes arrive on the
// same endpoint: the legacy one carrying a single image/video pair under
// "assets", and the enriched one carrying full catalog metadata. Both decode
// into this struct; Normalize flattens them.
type WirePayload struct {
	ListingID string `json:"listing_id"`
	Status    string `json:"status"`
	Success   *bool  `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`

	Assets *wireAssets `json:"assets"`

	Title       string         `json:"title"`
	Description string         `json:"description"`
	Brand       string         `json:"brand"`
	MPN         string         `json:"mpn"`
	Condition   string         `json:"condition"`
	Category    string         `json:"category"`
	SKU         string         `json:"sku"`
	Price       flexString     `json:"price"`
	Quantity    *flexString    `json:"quantity"`
	Aspects     map[string]any `json:"aspects"`
	ImageURLs   []string       `json:"image_urls"`
	VideoURL    string         `json:"video_url"`
}

func (p WirePayload) succeeded() bool {
	if p.Success != nil {
		return *p.Success
	}
	switch strings.ToLower(strings.TrimSpace(p.Status)) {
	case "failure", "failed", "error":
		return false
	default:
		return true
	}
}

func (p WirePayload) errorMessage() string {
	if msg := strings.TrimSpace(p.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(p.Message)
}

// Normalize flattens a raw callback into the typed result the merger
// consumes. The legacy single-asset shape folds into the image/video lists.
func Normalize(payload WirePayload) listings.GenerationResult {
	result := listings.GenerationResult{
		Success:     payload.succeeded(),
		Title:       strings.TrimSpace(payload.Title),
		Description: strings.TrimSpace(payload.Description),
		Brand:       strings.TrimSpace(payload.Brand),
		MPN:         strings.TrimSpace(payload.MPN),
		Condition:   strings.TrimSpace(payload.Condition),
		Category:    strings.TrimSpace(payload.Category),
		SKU:         strings.TrimSpace(payload.SKU),
		Price:       strings.TrimSpace(string(payload.Price)),
		Aspects:     payload.Aspects,
		VideoURL:    strings.TrimSpace(payload.VideoURL),
	}
	if !result.Success {
		result.ErrorMessage = payload.errorMessage()
	}

	for _, url := range payload.ImageURLs {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			result.ImageURLs = append(result.ImageURLs, trimmed)
		}
	}
	if payload.Assets != nil {
		if img := strings.TrimSpace(payload.Assets.ImageURL); img != "" && !contains(result.ImageURLs, img) {
			result.ImageURLs = append(result.ImageURLs, img)
		}
		if result.VideoURL == "" {
			result.VideoURL = strings.TrimSpace(payload.Assets.VideoURL)
		}
	}

	if payload.Quantity != nil {
		if qty, err := strconv.Atoi(strings.TrimSpace(string(*payload.Quantity))); err == nil {
			result.Quantity = &qty
		}
	}

	return result
}

// ParseResult decodes and normalizes a raw callback body.
func ParseResult(body []byte) (listings.GenerationResult, string, error) {
	var payload WirePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return listings.GenerationResult{}, "", err
	}
	return Normalize(payload), strings.TrimSpace(payload.ListingID), nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
