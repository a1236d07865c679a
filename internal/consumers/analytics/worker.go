package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/brandinbox/brandinbox-backend/pkg/enums"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
	"github.com/brandinbox/brandinbox-backend/pkg/outbox"
)

// processor applies a decoded outbox envelope. The Consumer satisfies it.
type processor interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Worker drains the domain subscription and feeds lifecycle events into the
// consumer. Undecodable messages are acked so they do not poison the
// subscription; processing failures nack for redelivery.
type Worker struct {
	subscription *gcppubsub.Subscriber
	consumer     processor
	logg         *logger.Logger
}

func NewWorker(subscription *gcppubsub.Subscriber, consumer processor, logg *logger.Logger) (*Worker, error) {
	if subscription == nil {
		return nil, errors.New("subscription is required")
	}
	if consumer == nil {
		return nil, errors.New("consumer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Worker{
		subscription: subscription,
		consumer:     consumer,
		logg:         logg,
	}, nil
}

// Run consumes messages until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return w.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if w.process(innerCtx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (w *Worker) process(ctx context.Context, msg *gcppubsub.Message) (nack bool) {
	logCtx := w.logg.WithField(ctx, "message_id", msg.ID)

	eventType, envelope, err := decodeMessage(msg)
	if err != nil {
		w.logg.Warn(w.logg.WithField(logCtx, "error", err.Error()), "invalid event message")
		return false
	}
	logCtx = w.logg.WithFields(ctx, map[string]any{
		"message_id":  msg.ID,
		"event_id":    envelope.EventID,
		"event_type":  eventType,
		"occurred_at": envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	if err := w.consumer.Process(logCtx, eventType, *envelope); err != nil {
		w.logg.Error(logCtx, "event processing failed", err)
		return true
	}
	return false
}

func decodeMessage(msg *gcppubsub.Message) (enums.OutboxEventType, *outbox.PayloadEnvelope, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return "", nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil {
		return "", nil, fmt.Errorf("event_type: %w", err)
	}

	if strings.TrimSpace(stored.EventID) == "" {
		stored.EventID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	if stored.EventID == "" {
		return "", nil, errors.New("event_id missing")
	}

	if stored.OccurredAt.IsZero() {
		if created := strings.TrimSpace(msg.Attributes["created_at"]); created != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
				stored.OccurredAt = parsed
			}
		}
	}
	stored.OccurredAt = stored.OccurredAt.UTC()

	return eventType, &stored, nil
}
