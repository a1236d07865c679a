package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/brandinbox/brandinbox-backend/pkg/enums"
	"github.com/brandinbox/brandinbox-backend/pkg/outbox/payloads"
)

type decoderFunc func(payload json.RawMessage) (interface{}, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]decoderFunc
}

// NewDecoderRegistry builds an empty decoder registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]decoderFunc)}
}

// Register stores a decoder for the given event type and version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// NewLifecycleDecoderRegistry registers the version-1 decoders for every
// listing lifecycle and user event.
func NewLifecycleDecoderRegistry() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventListingCreated, 1, typedDecoder(func() interface{} { return &payloads.ListingCreatedEvent{} }))
	reg.Register(enums.EventListingGenerationStarted, 1, typedDecoder(func() interface{} { return &payloads.ListingGenerationStartedEvent{} }))
	reg.Register(enums.EventListingMediaReady, 1, typedDecoder(func() interface{} { return &payloads.ListingMediaReadyEvent{} }))
	reg.Register(enums.EventListingGenerationFailed, 1, typedDecoder(func() interface{} { return &payloads.ListingGenerationFailedEvent{} }))
	reg.Register(enums.EventListingApproved, 1, typedDecoder(func() interface{} { return &payloads.ListingApprovedEvent{} }))
	reg.Register(enums.EventListingPublishStarted, 1, typedDecoder(func() interface{} { return &payloads.ListingPublishStartedEvent{} }))
	reg.Register(enums.EventListingPublished, 1, typedDecoder(func() interface{} { return &payloads.ListingPublishedEvent{} }))
	reg.Register(enums.EventListingPublishFailed, 1, typedDecoder(func() interface{} { return &payloads.ListingPublishFailedEvent{} }))
	reg.Register(enums.EventListingDeleted, 1, typedDecoder(func() interface{} { return &payloads.ListingDeletedEvent{} }))
	reg.Register(enums.EventUserRegistered, 1, typedDecoder(func() interface{} { return &payloads.UserRegisteredEvent{} }))
	return reg
}

func typedDecoder(factory func() interface{}) decoderFunc {
	return func(payload json.RawMessage) (interface{}, error) {
		target := factory()
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, err
		}
		return target, nil
	}
}

// Decode runs the decoder registered for the event type and version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]; ok {
		return decoder(payload)
	}
	return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
}
