package producers

import (
	"context"
	"errors"

	"github.com/segmentio/kafka-go"
)

// ErrInvalidPublishRequest is returned before any broker call when the key,
// payload or event type of an outbound message is empty.
var ErrInvalidPublishRequest = errors.New("invalid publish request")

// EventPublisher delivers a serialized hold event to the hold events topic
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload []byte, eventType string) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, sourceTopic, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
