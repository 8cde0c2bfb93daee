package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/creditx/hold-service/internal/config"
	"github.com/creditx/hold-service/internal/domain/shared"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// HoldEventProducer publishes outbox events to the hold events topic
type HoldEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewHoldEventProducer creates a synchronous producer and ensures the topic exists.
// Writes wait for all in-sync replicas so a nil error means the event was delivered.
func NewHoldEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*HoldEventProducer, error) {
	if cfg.HoldEventsTopic == "" {
		return nil, fmt.Errorf("kafka hold events topic is not configured")
	}

	if err := EnsureTopics(logger, cfg, cfg.HoldEventsTopic); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.HoldEventsTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return newHoldEventProducer(logger, writer, cfg.HoldEventsTopic), nil
}

func newHoldEventProducer(logger *slog.Logger, writer KafkaWriter, topic string) *HoldEventProducer {
	return &HoldEventProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// Publish writes payload keyed by the hold id. The key and event type are also
// carried as headers together with the current trace context.
func (p *HoldEventProducer) Publish(ctx context.Context, key string, payload []byte, eventType string) error {
	if key == "" || len(payload) == 0 || eventType == "" {
		return fmt.Errorf("%w: key, payload and event type are required", ErrInvalidPublishRequest)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []kafka.Header{
		{Key: shared.HeaderKey, Value: []byte(key)},
		{Key: shared.HeaderEventType, Value: []byte(eventType)},
	}
	for _, k := range carrier.Keys() {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(carrier.Get(k))})
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Headers: headers,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish hold event",
			"topic", p.topic,
			"key", key,
			"event_type", eventType,
			"error", err,
		)
		return fmt.Errorf("failed to publish %s to %s: %w", eventType, p.topic, err)
	}

	p.logger.Debug("Published hold event",
		"topic", p.topic,
		"key", key,
		"event_type", eventType,
	)
	return nil
}

func (p *HoldEventProducer) Close() error {
	p.logger.Info("Closing hold event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
