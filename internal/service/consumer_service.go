package service

import (
	"context"

	"agentic-rag-be/internal/observability"
	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventSource yields the raw messages published on the in-process bus.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
}

type consumerService struct {
	source  EventSource
	metrics *observability.Metrics
	logger  logger.ILogger
}

func NewConsumerService(source EventSource, metrics *observability.Metrics, log logger.ILogger) IConsumerService {
	return &consumerService{
		source:  source,
		metrics: metrics,
		logger:  log,
	}
}

// Consume subscribes and handles messages in the background until ctx is done.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.source.Subscribe(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	event, err := events.Decode(msg)
	if err != nil {
		cs.logger.Error("EVENTS", "Failed to decode event", map[string]interface{}{"message_id": msg.UUID, "error": err.Error()})
		msg.Ack() // undecodable payloads are never retried
		return
	}

	cs.metrics.EventsConsumed.WithLabelValues(event.Type).Inc()
	payload := event.Payload()

	switch event.Type {
	case events.TypeMemoryMigrated:
		mode, _ := payload["mode"].(string)
		cs.metrics.MemoryMigrations.WithLabelValues(mode).Inc()
		cs.logger.Info("EVENTS", "Short-term memory migrated", payload)
	case events.TypeConversationSummarized:
		cs.metrics.MemorySummaries.Inc()
		cs.logger.Debug("EVENTS", "Conversation summary saved", payload)
	case events.TypeChatCompleted:
		cs.logger.Debug("EVENTS", "Chat turn completed", payload)
	default:
		cs.logger.Warn("EVENTS", "Unknown event type", map[string]interface{}{"type": event.Type})
	}

	msg.Ack()
}
