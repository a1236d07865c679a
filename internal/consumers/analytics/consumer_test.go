package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/brandinbox/brandinbox-backend/pkg/enums"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
	"github.com/brandinbox/brandinbox-backend/pkg/outbox"
	"github.com/brandinbox/brandinbox-backend/pkg/outbox/registry"
	"github.com/google/uuid"
)

func TestAnalyticsConsumerProcessesListingPublished(t *testing.T) {
	inserter := &fakeInserter{}
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer := mustConsumer(t, inserter, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{
		"listing_id":       "listingaaaaa",
		"external_item_id": "110012345678",
		"sku":              "BNB-listingaaaaa",
		"published_at":     time.Now().UTC().Format(time.RFC3339),
	})

	if err := consumer.Process(context.Background(), enums.EventListingPublished, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	if len(inserter.rows) != 1 {
		t.Fatalf("expected 1 row inserted, got %d", len(inserter.rows))
	}
	row, ok := inserter.rows[0].(*listingLifecycleRow)
	if !ok {
		t.Fatalf("expected listingLifecycleRow, got %T", inserter.rows[0])
	}
	if row.EventType != string(enums.EventListingPublished) {
		t.Fatalf("unexpected event type: %s", row.EventType)
	}
	if row.ListingID == nil || *row.ListingID != "listingaaaaa" {
		t.Fatalf("listing id mismatch")
	}
	if row.SKU == nil || *row.SKU != "BNB-listingaaaaa" {
		t.Fatalf("sku mismatch")
	}
	if row.ExternalItemID == nil || *row.ExternalItemID != "110012345678" {
		t.Fatalf("external item id mismatch")
	}
	if row.FailureReason != nil {
		t.Fatalf("failure reason should be nil for a publish event")
	}
	if !row.Payload.Valid {
		t.Fatalf("payload should be valid json")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(row.Payload.JSONVal), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if _, ok := payload["published_at"]; !ok {
		t.Fatalf("payload missing published_at")
	}
}

func TestAnalyticsConsumerCapturesFailureReason(t *testing.T) {
	inserter := &fakeInserter{}
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer := mustConsumer(t, inserter, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{
		"listing_id": "listingbbbbb",
		"reason":     "upstream render timed out",
	})

	if err := consumer.Process(context.Background(), enums.EventListingGenerationFailed, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	row := inserter.rows[0].(*listingLifecycleRow)
	if row.FailureReason == nil || *row.FailureReason != "upstream render timed out" {
		t.Fatalf("failure reason mismatch: %+v", row.FailureReason)
	}
}

func TestAnalyticsConsumerSkipsUnhandledEvents(t *testing.T) {
	inserter := &fakeInserter{}
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			t.Fatal("idempotency must not be consulted for skipped events")
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer := mustConsumer(t, inserter, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{})
	if err := consumer.Process(context.Background(), enums.EventUserRegistered, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(inserter.rows) != 0 {
		t.Fatalf("expected no rows for unhandled event")
	}
}

func TestAnalyticsConsumerIsIdempotent(t *testing.T) {
	inserter := &fakeInserter{}
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return true, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
	consumer := mustConsumer(t, inserter, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{})
	if err := consumer.Process(context.Background(), enums.EventListingCreated, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(inserter.rows) != 0 {
		t.Fatalf("expected no rows inserted when idempotent")
	}
}

func TestAnalyticsConsumerDeletesOnInsertFailure(t *testing.T) {
	inserter := &fakeInserter{err: errors.New("bigquery down")}
	deleted := false
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	consumer := mustConsumer(t, inserter, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{
		"listing_id": "listingccccc",
	})
	if err := consumer.Process(context.Background(), enums.EventListingCreated, envelope); err == nil {
		t.Fatalf("expected error when insert fails")
	}
	if !deleted {
		t.Fatalf("expected idempotency key deletion on failure")
	}
}

func TestAnalyticsConsumerDeletesOnPayloadDecodeFailure(t *testing.T) {
	inserter := &fakeInserter{}
	deleted := false
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	consumer := mustConsumer(t, inserter, manager)

	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       []byte("{invalid json"),
	}
	if err := consumer.Process(context.Background(), enums.EventListingCreated, envelope); err == nil {
		t.Fatalf("expected error for bad payload")
	}
	if !deleted {
		t.Fatalf("expected idempotency key deletion on payload error")
	}
	if len(inserter.rows) != 0 {
		t.Fatalf("expected no rows inserted on payload failure")
	}
}

func TestAnalyticsConsumerRejectsUnknownEnvelopeVersion(t *testing.T) {
	inserter := &fakeInserter{}
	deleted := false
	manager := fakeIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	consumer := mustConsumer(t, inserter, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{
		"listing_id": "listingddddd",
	})
	envelope.Version = 2
	if err := consumer.Process(context.Background(), enums.EventListingCreated, envelope); err == nil {
		t.Fatalf("expected error for unknown envelope version")
	}
	if !deleted {
		t.Fatalf("expected idempotency key deletion on version error")
	}
	if len(inserter.rows) != 0 {
		t.Fatalf("expected no rows inserted for unknown version")
	}
}

type fakeInserter struct {
	rows []any
	err  error
}

func (f *fakeInserter) InsertRows(ctx context.Context, table string, rows []any) error {
	f.rows = append(f.rows, rows...)
	return f.err
}

type fakeIdempotency struct {
	check    func(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	deleteFn func(ctx context.Context, consumer string, eventID uuid.UUID) error
}

func (f fakeIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	return f.check(ctx, consumer, eventID)
}

func (f fakeIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	return f.deleteFn(ctx, consumer, eventID)
}

func mustConsumer(t *testing.T, inserter *fakeInserter, manager fakeIdempotency) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(inserter, "listing_lifecycle", manager, registry.NewLifecycleDecoderRegistry(), logger.New(logger.Options{
		ServiceName: "analytics-test",
		Level:       logger.ParseLevel("debug"),
		Output:      io.Discard,
	}))
	if err != nil {
		t.Fatalf("failed to build consumer: %v", err)
	}
	return consumer
}

func buildEnvelope(t *testing.T, eventID uuid.UUID, payload any) outbox.PayloadEnvelope {
	t.Helper()
	bytes, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now(),
		Data:       bytes,
	}
}
