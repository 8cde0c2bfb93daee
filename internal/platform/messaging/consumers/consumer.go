package consumers

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/creditx/hold-service/internal/config"
	"github.com/segmentio/kafka-go"
)

// Message is a fetched record with its headers flattened into a map
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

// MessageHandler processes one message. Returning nil commits its offset.
type MessageHandler func(ctx context.Context, msg Message) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// kafkaReader is the subset of kafka.Reader used by KafkaConsumer
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer implements Consumer using a kafka-go group reader over the inbound topics
type KafkaConsumer struct {
	reader       kafkaReader
	logger       *slog.Logger
	topics       []string
	groupID      string
	retryBackoff time.Duration
	// pauses between attempts on a failing message double up to this ceiling
	maxRetryBackoff time.Duration
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	topics := make([]string, 0, 3)
	for topic := range cfg.InboundTopics() {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	return &KafkaConsumer{
		logger:          logger,
		topics:          topics,
		groupID:         cfg.ConsumerGroup,
		retryBackoff:    time.Second,
		maxRetryBackoff: 30 * time.Second,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			GroupID:     cfg.ConsumerGroup,
			GroupTopics: topics,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Topics returns the subscribed topics in sorted order
func (c *KafkaConsumer) Topics() []string {
	return c.topics
}

// Subscribe consumes until ctx is canceled and returns once the in-flight
// message, if any, has been handled. It blocks the caller.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topics",
		"topics", c.topics,
		"group_id", c.groupID,
	)

	c.consume(ctx, handler)
	return nil
}

// consume fetches, handles and commits messages one at a time. A message whose
// handler fails is retried in place, so no later offset on its partition is
// fetched or committed before it succeeds.
func (c *KafkaConsumer) consume(ctx context.Context, handler MessageHandler) {
	for {
		if ctx.Err() != nil {
			c.logger.Info("Context canceled, stopping consumer", "group_id", c.groupID)
			return
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("Context canceled, stopping consumer", "group_id", c.groupID)
				return
			}
			c.logger.Error("Failed to fetch message from Kafka",
				"group_id", c.groupID,
				"error", err,
			)
			if !sleepCtx(ctx, c.retryBackoff) {
				return
			}
			continue
		}

		c.logger.Debug("Received message from Kafka",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)

		if !c.handleUntilDone(ctx, handler, msg) {
			c.logger.Info("Context canceled before message was handled, leaving offset uncommitted",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			return
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message after successful processing",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// handleUntilDone calls handler until it succeeds, doubling the pause between
// attempts up to maxRetryBackoff. It reports false if ctx ended first.
func (c *KafkaConsumer) handleUntilDone(ctx context.Context, handler MessageHandler, msg kafka.Message) bool {
	backoff := c.retryBackoff
	for attempt := 1; ; attempt++ {
		err := handler(ctx, toMessage(msg))
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		c.logger.Error("Failed to process message, retrying before moving on",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"attempt", attempt,
			"retry_in", backoff.String(),
			"error", err,
		)
		if !sleepCtx(ctx, backoff) {
			return false
		}
		if backoff *= 2; c.maxRetryBackoff > 0 && backoff > c.maxRetryBackoff {
			backoff = c.maxRetryBackoff
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

func toMessage(msg kafka.Message) Message {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
	}
}
