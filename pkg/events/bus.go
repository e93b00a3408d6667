package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topic is the single in-process topic every domain event goes through.
const Topic = "agentic_rag.events"

// Bus publishes events onto an in-process watermill channel.
type Bus struct {
	pubSub *gochannel.GoChannel
	topic  string
}

func NewBus(pubSub *gochannel.GoChannel) *Bus {
	return &Bus{pubSub: pubSub, topic: Topic}
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(BaseEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	if err := b.pubSub.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.EventType(), err)
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, b.topic)
}

// Decode parses a message produced by Bus.Publish.
func Decode(msg *message.Message) (BaseEvent, error) {
	var e BaseEvent
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return BaseEvent{}, err
	}
	return e, nil
}
