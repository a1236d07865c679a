package marketplace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/brandinbox/brandinbox-backend/pkg/config"
	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	dbtypes "github.com/brandinbox/brandinbox-backend/pkg/db/types"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(config.MarketplaceConfig{
		BaseURL:             "https://api.ebay.com",
		ListingBaseURL:      "https://www.ebay.com/itm",
		OAuthToken:          "oauth-token",
		FulfillmentPolicyID: "fulfill-1",
		PaymentPolicyID:     "pay-1",
		ReturnPolicyID:      "return-1",
	}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("building client: %v", err)
	}
	return client
}

func approvedListing() *models.Listing {
	desc := "Enriched copy"
	brand := "Kilnworks"
	category := "38199"
	return &models.Listing{
		ID:                  "abc123def456",
		Title:               "Ceramic Mug",
		EnrichedDescription: &desc,
		Brand:               &brand,
		Category:            &category,
		Price:               decimal.RequireFromString("25.5"),
		Quantity:            2,
		Aspects:             dbtypes.JSONMap{"Color": "Blue", "Material": []any{"Ceramic", "Clay"}},
		Media: &models.ListingMedia{
			ListingID: "abc123def456",
			ImageURLs: []string{"https://cdn.example/1.png"},
		},
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestPublishChoreography(t *testing.T) {
	var calls []string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls = append(calls, req.Method+" "+req.URL.Path)
		if got := req.Header.Get("Authorization"); got != "Bearer oauth-token" {
			t.Fatalf("unexpected auth header %q", got)
		}

		switch {
		case req.Method == http.MethodPut && strings.HasPrefix(req.URL.Path, "/sell/inventory/v1/inventory_item/"):
			var item map[string]any
			body, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(body, &item); err != nil {
				t.Fatalf("decoding inventory item: %v", err)
			}
			product := item["product"].(map[string]any)
			if product["title"] != "Ceramic Mug" {
				t.Fatalf("unexpected product %v", product)
			}
			if product["description"] != "Enriched copy" {
				t.Fatal("enriched description must be preferred")
			}
			aspects := product["aspects"].(map[string]any)
			if len(aspects["Material"].([]any)) != 2 {
				t.Fatalf("aspect list not converted: %v", aspects)
			}
			return jsonResponse(http.StatusNoContent, ""), nil

		case req.Method == http.MethodPost && req.URL.Path == "/sell/inventory/v1/offer":
			var offer map[string]any
			body, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(body, &offer); err != nil {
				t.Fatalf("decoding offer: %v", err)
			}
			if offer["sku"] != "BNB-abc123def456" {
				t.Fatalf("unexpected sku %v", offer["sku"])
			}
			price := offer["pricingSummary"].(map[string]any)["price"].(map[string]any)
			if price["value"] != "25.50" {
				t.Fatalf("price must be fixed to two decimals, got %v", price)
			}
			return jsonResponse(http.StatusCreated, `{"offerId": "offer-789"}`), nil

		case req.Method == http.MethodPost && req.URL.Path == "/sell/inventory/v1/offer/offer-789/publish/":
			return jsonResponse(http.StatusOK, `{
				"listingId": "110552864798",
				"fees": [{"feeType": "INSERTION_FEE", "amount": {"value": "0.35", "currency": "USD"}}]
			}`), nil
		}

		t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		return nil, nil
	})

	result, err := client.Publish(context.Background(), approvedListing(), "BNB-abc123def456")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(calls) != 3 {
		t.Fatalf("expected 3 API calls, got %v", calls)
	}
	if !result.Success || result.ItemID != "110552864798" || result.OfferID != "offer-789" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.URL != "https://www.ebay.com/itm/110552864798" {
		t.Fatalf("unexpected listing url %q", result.URL)
	}
	if result.Fees["INSERTION_FEE"] != "0.35 USD" {
		t.Fatalf("fees not normalized: %v", result.Fees)
	}
}

func TestPublishAbortsWhenOfferFails(t *testing.T) {
	var calls int
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls++
		if req.Method == http.MethodPut {
			return jsonResponse(http.StatusNoContent, ""), nil
		}
		return jsonResponse(http.StatusBadRequest, `{"errors": [{"errorId": 25002, "message": "invalid category"}]}`), nil
	})

	_, err := client.Publish(context.Background(), approvedListing(), "BNB-abc123def456")
	if err == nil {
		t.Fatal("expected error when offer creation fails")
	}
	if !strings.Contains(err.Error(), "create offer failed") {
		t.Fatalf("error must name the failed step, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("publish step must not run after offer failure, got %d calls", calls)
	}
}

func TestPublishRequiresSKU(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})

	if _, err := client.Publish(context.Background(), approvedListing(), "  "); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestPublishMissingOfferID(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodPut {
			return jsonResponse(http.StatusNoContent, ""), nil
		}
		return jsonResponse(http.StatusCreated, `{}`), nil
	})

	_, err := client.Publish(context.Background(), approvedListing(), "BNB-abc123def456")
	if err == nil || !strings.Contains(err.Error(), "missing offerId") {
		t.Fatalf("expected missing offerId error, got %v", err)
	}
}
