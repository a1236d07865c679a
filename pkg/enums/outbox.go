package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateListing OutboxAggregateType = "listing"
	AggregateUser    OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateListing,
	AggregateUser,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventListingCreated           OutboxEventType = "listing_created"
	EventListingGenerationStarted OutboxEventType = "listing_generation_started"
	EventListingMediaReady        OutboxEventType = "listing_media_ready"
	EventListingGenerationFailed  OutboxEventType = "listing_generation_failed"
	EventListingApproved          OutboxEventType = "listing_approved"
	EventListingPublishStarted    OutboxEventType = "listing_publish_started"
	EventListingPublished         OutboxEventType = "listing_published"
	EventListingPublishFailed     OutboxEventType = "listing_publish_failed"
	EventListingDeleted           OutboxEventType = "listing_deleted"
	EventUserRegistered           OutboxEventType = "user_registered"
)

var validOutboxEventTypes = []OutboxEventType{
	EventListingCreated,
	EventListingGenerationStarted,
	EventListingMediaReady,
	EventListingGenerationFailed,
	EventListingApproved,
	EventListingPublishStarted,
	EventListingPublished,
	EventListingPublishFailed,
	EventListingDeleted,
	EventUserRegistered,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
