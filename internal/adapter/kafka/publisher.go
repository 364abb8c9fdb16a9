package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-data-grid/internal/config"
	"github.com/couchcryptid/storm-data-grid/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces pipeline events to a Kafka topic, keyed by model.
// It implements pipeline.EventPublisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured event topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishRunDiscovered emits a run_discovered event.
func (p *Publisher) PublishRunDiscovered(ctx context.Context, e domain.RunDiscovered) error {
	msg, err := serializeToMessage(domain.EventRunDiscovered, e.Model, e, e.DiscoveredAt)
	if err != nil {
		return err
	}
	return p.write(ctx, msg)
}

// PublishRenderCompleted emits a render_completed event.
func (p *Publisher) PublishRenderCompleted(ctx context.Context, e domain.RenderCompleted) error {
	msg, err := serializeToMessage(domain.EventRenderCompleted, e.Model, e, e.RenderedAt)
	if err != nil {
		return err
	}
	return p.write(ctx, msg)
}

func (p *Publisher) write(ctx context.Context, msg kafkago.Message) error {
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", headerValue(msg, "event_type"), err)
	}
	p.logger.Debug("event published", "event_type", headerValue(msg, "event_type"), "key", string(msg.Key))
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an event payload into a Kafka message.
func serializeToMessage(eventType, key string, payload any, emittedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s event: %w", eventType, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "emitted_at", Value: []byte(emittedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}

func headerValue(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
