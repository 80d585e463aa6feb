// Package bus publishes evaluation progress events to in-process or Kafka
// subscribers.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type (e.g., "evaluation.fold.completed").
	Type string `json:"type"`

	// Source is the process that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// CorrelationID links the events of one evaluation run: it is the run id.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// NewEvent builds an event with a fresh id and the current time.
func NewEvent(eventType, source, correlationID string, payload any) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UnixMilli(),
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

// Topics for evaluation events, before the configured prefix is applied.
const (
	TopicFoldCompleted = "evaluation.fold.completed"
	TopicRunCompleted  = "evaluation.run.completed"
)

// Topic returns the full topic name under prefix.
func Topic(prefix, topic string) string {
	return prefix + topic
}

// Follow subscribes handler to the fold and run completion topics under
// prefix.
func Follow(ctx context.Context, b Bus, prefix string, handler Handler) error {
	for _, topic := range []string{TopicFoldCompleted, TopicRunCompleted} {
		if err := b.Subscribe(ctx, Topic(prefix, topic), handler); err != nil {
			return fmt.Errorf("subscribe to %s: %w", Topic(prefix, topic), err)
		}
	}
	return nil
}

// DecodePayload decodes an event payload into v. It accepts both payloads
// published in process and payloads decoded from JSON by a remote consumer.
func DecodePayload(event Event, v any) error {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event.Type, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	return nil
}
