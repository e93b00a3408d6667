package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	HeaderEventType = "Event-Type"
	HeaderUserID    = "User-ID"
)

type Config struct {
	URL            string
	Stream         string
	MaxAge         time.Duration
	PublishTimeout time.Duration
}

func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		Stream:         "AGENTIC_RAG_EVENTS",
		MaxAge:         7 * 24 * time.Hour,
		PublishTimeout: 3 * time.Second,
	}
}

// Publisher mirrors domain events onto a JetStream stream.
type Publisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	timeout time.Duration
	logger  logger.ILogger
}

func NewPublisher(cfg Config, log logger.ILogger) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("agentic-rag"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("EVENTS", "NATS disconnected", map[string]interface{}{"error": err.Error()})
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{"events.chat.>", "events.memory.>"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     cfg.MaxAge,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		log.Warn("EVENTS", "Failed to ensure JetStream stream", map[string]interface{}{"stream": cfg.Stream, "error": err.Error()})
	}

	return &Publisher{nc: nc, js: js, timeout: cfg.PublishTimeout, logger: log}, nil
}

// Subject maps an event type onto the stream, e.g. "events.chat.completed".
func Subject(eventType string) string {
	return "events." + eventType
}

// messageID is the JetStream dedup key. Events carrying a request or
// conversation id dedupe on it; others fall back to the timestamp.
func messageID(event events.Event) string {
	p := event.Payload()
	for _, key := range []string{"request_id", "conversation_id"} {
		if id, ok := p[key].(string); ok && id != "" {
			return event.EventType() + ":" + id
		}
	}
	return fmt.Sprintf("%s:%d", event.EventType(), event.Timestamp().UnixNano())
}

func newMsg(event events.Event) (*nats.Msg, error) {
	data, err := json.Marshal(events.BaseEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := nats.NewMsg(Subject(event.EventType()))
	msg.Data = data
	msg.Header.Set(HeaderEventType, event.EventType())
	if uid, ok := event.Payload()["user_id"].(string); ok {
		msg.Header.Set(HeaderUserID, uid)
	}
	return msg, nil
}

func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	msg, err := newMsg(event)
	if err != nil {
		return err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if _, err := p.js.PublishMsg(ctx, msg, jetstream.WithMsgID(messageID(event))); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", msg.Subject, err)
	}
	return nil
}

// Close drains pending publishes before closing the connection.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
