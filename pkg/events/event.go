package events

import (
	"context"
	"errors"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "chat.completed").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	TypeChatCompleted          = "chat.completed"
	TypeMemoryMigrated         = "memory.migrated"
	TypeConversationSummarized = "memory.summarized"
)

// BaseEvent is the one concrete Event implementation used across the service.
type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func ChatCompleted(requestID, userID, queryType string, retrieval bool, success bool, duration time.Duration) BaseEvent {
	return New(TypeChatCompleted, map[string]interface{}{
		"request_id":      requestID,
		"user_id":         userID,
		"query_type":      queryType,
		"needs_retrieval": retrieval,
		"success":         success,
		"duration_ms":     duration.Milliseconds(),
	})
}

// MemoryMigrated reports a short-term to long-term migration. mode is
// "ai" or "simple".
func MemoryMigrated(userID, mode, conversationID string) BaseEvent {
	return New(TypeMemoryMigrated, map[string]interface{}{
		"user_id":         userID,
		"mode":            mode,
		"conversation_id": conversationID,
	})
}

func ConversationSummarized(userID, conversationID string) BaseEvent {
	return New(TypeConversationSummarized, map[string]interface{}{
		"user_id":         userID,
		"conversation_id": conversationID,
	})
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, event Event) error { return nil }

// Nop discards every event.
var Nop Publisher = nopPublisher{}

// FanOut delivers each event to every publisher and joins their errors.
type FanOut []Publisher

func (f FanOut) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
