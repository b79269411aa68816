package outbox

import (
	"encoding/json"
	"fmt"

	"github.com/iamteki/kl-mobile-backend/pkg/db/models"
	"github.com/iamteki/kl-mobile-backend/pkg/enums"
)

// Descriptor describes where a resolved event should be published.
type Descriptor struct {
	Topic string
}

// ResolvedEvent pairs the stored row's envelope with its route.
type ResolvedEvent struct {
	Descriptor Descriptor
	Envelope   PayloadEnvelope
}

// NonRetryableError marks publish failures that must go straight to a
// terminal state instead of the retry loop.
type NonRetryableError struct {
	cause error
}

func NewNonRetryableError(cause error) NonRetryableError {
	return NonRetryableError{cause: cause}
}

func (e NonRetryableError) Error() string {
	if e.cause == nil {
		return "non-retryable publish failure"
	}
	return e.cause.Error()
}

func (e NonRetryableError) Unwrap() error { return e.cause }

// Registry routes outbox rows to Pub/Sub topics by event type.
type Registry struct {
	domainTopic string
}

func NewRegistry(domainTopic string) (*Registry, error) {
	if domainTopic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	return &Registry{domainTopic: domainTopic}, nil
}

// Resolve validates the stored event and returns its routing descriptor.
func (r *Registry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	if !event.EventType.IsValid() {
		return nil, NewNonRetryableError(fmt.Errorf("unknown event type %q", event.EventType))
	}
	if !event.AggregateType.IsValid() {
		return nil, NewNonRetryableError(fmt.Errorf("unknown aggregate type %q", event.AggregateType))
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	return &ResolvedEvent{
		Descriptor: Descriptor{Topic: r.topicFor(event.EventType)},
		Envelope:   envelope,
	}, nil
}

// All booking and inventory lifecycle events share the domain topic today;
// the switch exists so future event families can fan out elsewhere.
func (r *Registry) topicFor(eventType enums.OutboxEventType) string {
	switch eventType {
	default:
		return r.domainTopic
	}
}
