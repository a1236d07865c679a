package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/brandinbox/brandinbox-backend/pkg/enums"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
	"github.com/brandinbox/brandinbox-backend/pkg/outbox"
	"github.com/google/uuid"
)

const analyticsConsumerName = "analytics"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type payloadDecoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error)
}

// Consumer writes listing lifecycle events to BigQuery while honoring Redis
// idempotency.
type Consumer struct {
	client      tableInserter
	table       string
	manager     idempotencyChecker
	decoders    payloadDecoder
	logg        *logger.Logger
	eventFilter map[enums.OutboxEventType]struct{}
}

// NewConsumer builds a new analytics consumer.
func NewConsumer(client tableInserter, table string, manager idempotencyChecker, decoders payloadDecoder, logg *logger.Logger) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if decoders == nil {
		return nil, fmt.Errorf("payload decoder registry required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		client:   client,
		table:    strings.TrimSpace(table),
		manager:  manager,
		decoders: decoders,
		logg:     logg,
		eventFilter: map[enums.OutboxEventType]struct{}{
			enums.EventListingCreated:           {},
			enums.EventListingGenerationStarted: {},
			enums.EventListingMediaReady:        {},
			enums.EventListingGenerationFailed:  {},
			enums.EventListingApproved:          {},
			enums.EventListingPublishStarted:    {},
			enums.EventListingPublished:         {},
			enums.EventListingPublishFailed:     {},
			enums.EventListingDeleted:           {},
		},
	}, nil
}

// Process ingests the outbox envelope into BigQuery if the event is supported.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if _, ok := c.eventFilter[eventType]; !ok {
		c.logg.Info(logCtx, "event not handled by analytics consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, analyticsConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	if _, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data); err != nil {
		c.logg.Error(logCtx, "payload failed schema validation", err)
		_ = c.manager.Delete(ctx, analyticsConsumerName, eventID)
		return fmt.Errorf("decode %s payload: %w", eventType, err)
	}

	row, err := buildRow(eventType, envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to build lifecycle row", err)
		_ = c.manager.Delete(ctx, analyticsConsumerName, eventID)
		return err
	}

	if err := c.client.InsertRows(ctx, c.table, []any{row}); err != nil {
		c.logg.Error(logCtx, "failed to insert lifecycle row", err)
		_ = c.manager.Delete(ctx, analyticsConsumerName, eventID)
		return err
	}

	c.logg.Info(logCtx, "lifecycle event ingested")
	return nil
}

type listingLifecycleRow struct {
	EventID        string             `bigquery:"event_id"`
	EventType      string             `bigquery:"event_type"`
	OccurredAt     time.Time          `bigquery:"occurred_at"`
	ListingID      *string            `bigquery:"listing_id"`
	UserID         *string            `bigquery:"user_id"`
	SKU            *string            `bigquery:"sku"`
	ExternalItemID *string            `bigquery:"external_item_id"`
	FailureReason  *string            `bigquery:"failure_reason"`
	Payload        cbigquery.NullJSON `bigquery:"payload"`
}

func buildRow(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (*listingLifecycleRow, error) {
	payload := map[string]any{}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		if payload == nil {
			payload = map[string]any{}
		}
	}

	payloadJSON := cbigquery.NullJSON{}
	if len(envelope.Data) > 0 {
		payloadJSON.Valid = true
		payloadJSON.JSONVal = string(envelope.Data)
	}

	userID := stringValue(payload, "user_id")
	if userID == nil && envelope.Actor != nil {
		actor := envelope.Actor.UserID.String()
		if actor != uuid.Nil.String() {
			userID = &actor
		}
	}

	return &listingLifecycleRow{
		EventID:        envelope.EventID,
		EventType:      string(eventType),
		OccurredAt:     envelope.OccurredAt,
		ListingID:      stringValue(payload, "listing_id"),
		UserID:         userID,
		SKU:            stringValue(payload, "sku"),
		ExternalItemID: stringValue(payload, "external_item_id"),
		FailureReason:  stringValue(payload, "reason"),
		Payload:        payloadJSON,
	}, nil
}

func stringValue(payload map[string]any, key string) *string {
	if payload == nil {
		return nil
	}
	if raw, ok := payload[key]; ok {
		if str, ok := raw.(string); ok {
			trimmed := strings.TrimSpace(str)
			if trimmed != "" {
				return &trimmed
			}
		}
	}
	return nil
}
