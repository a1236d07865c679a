package webhooks

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/brandinbox/brandinbox-backend/api/responses"
	"github.com/brandinbox/brandinbox-backend/internal/listings"
	"github.com/brandinbox/brandinbox-backend/internal/webhooks"
	"github.com/brandinbox/brandinbox-backend/pkg/db/models"
	pkgerrors "github.com/brandinbox/brandinbox-backend/pkg/errors"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
)

// SecretHeader carries the shared secret agreed with the callback senders.
const SecretHeader = "X-BNB-Webhook-Secret"

const maxWebhookBody = 1 << 20

type GenerationWebhookService interface {
	HandleCallback(ctx context.Context, body []byte) (*models.Listing, error)
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// aggregateRef is the minimal slice of the payload needed to key idempotency.
type aggregateRef struct {
	ListingID string `json:"listing_id"`
	SKU       string `json:"sku"`
}

func (ref aggregateRef) id() string {
	if id := strings.TrimSpace(ref.ListingID); id != "" {
		return id
	}
	if id := listings.ListingIDFromSKU(strings.TrimSpace(ref.SKU)); id != "" {
		return id
	}
	return "unknown"
}

func readVerifiedBody(r *http.Request, secret string) ([]byte, error) {
	provided := strings.TrimSpace(r.Header.Get(SecretHeader))
	if provided == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook secret missing")
	}
	if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook secret mismatch")
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body")
	}
	return payload, nil
}

func deliveryID(payload []byte) string {
	var ref aggregateRef
	_ = json.Unmarshal(payload, &ref)
	return webhooks.EventID(ref.id(), payload)
}

// GenerationWebhook receives asynchronous media generation results.
func GenerationWebhook(svc GenerationWebhookService, secret string, guard webhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := readVerifiedBody(r, secret)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		eventID := deliveryID(payload)
		alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		listing, err := svc.HandleCallback(ctx, payload)
		if err != nil {
			_ = guard.Delete(ctx, eventID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("generation callback for %s processed", listing.ID))
		}
		responses.WriteSuccess(w, map[string]string{"status": string(listing.Status)})
	}
}
