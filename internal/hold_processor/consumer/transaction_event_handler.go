package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/creditx/hold-service/internal/domain/shared"
	"github.com/creditx/hold-service/internal/hold_processor/service"
	"github.com/creditx/hold-service/internal/platform/messaging/consumers"
	"github.com/creditx/hold-service/internal/platform/messaging/producers"
	"github.com/creditx/hold-service/internal/platform/metrics"
	"github.com/creditx/hold-service/internal/platform/tracing"
)

// TransactionEventHandler turns inbound Kafka records into processor calls.
// The topic a record arrives on decides its event kind.
type TransactionEventHandler struct {
	processor  service.EventProcessor
	producer   producers.DeadLetterPublisher
	topicKinds map[string]string
	logger     *slog.Logger
}

func NewTransactionEventHandler(
	logger *slog.Logger,
	processor service.EventProcessor,
	producer producers.DeadLetterPublisher,
	topicKinds map[string]string,
) *TransactionEventHandler {
	return &TransactionEventHandler{
		processor:  processor,
		producer:   producer,
		topicKinds: topicKinds,
		logger:     logger,
	}
}

// HandleMessage returns nil for every record that should be committed:
// processed, duplicate, mismatched header, missing holdId or dead-lettered.
func (h *TransactionEventHandler) HandleMessage(ctx context.Context, msg consumers.Message) error {
	kind, ok := h.topicKinds[msg.Topic]
	if !ok {
		h.logger.Warn("Received message from unexpected topic, skipping", "topic", msg.Topic)
		return nil
	}

	ctx, span := tracing.StartConsumerSpan(ctx, kind+" process", msg.Headers)
	defer span.End()

	logger := h.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

	if header, present := msg.Headers[shared.HeaderEventType]; present && !shared.ValidateEventType(msg.Headers, kind) {
		logger.Warn("Event type header does not match topic, skipping", "expected", kind, "actual", header)
		metrics.InboundEvent(kind, metrics.OutcomeSkipped)
		return nil
	}

	event, err := shared.DecodeTransactionEvent(kind, msg.Value)
	if errors.Is(err, shared.ErrMissingHoldID) {
		logger.Warn("Event has no holdId, dropping", "transaction_id", event.TransactionID)
		metrics.InboundEvent(kind, metrics.OutcomeSkipped)
		return nil
	}
	if err != nil {
		return h.deadLetter(ctx, logger, kind, msg, err)
	}
	event.UpstreamID = msg.Headers[shared.HeaderEventID]

	logger.Info("Received transaction event",
		"kind", kind,
		"transaction_id", event.TransactionID,
		"hold_id", event.HoldID,
	)

	if err := h.processor.ProcessEvent(ctx, event); err != nil {
		return fmt.Errorf("processing %s for transaction %d failed: %w", kind, event.TransactionID, err)
	}
	return nil
}

// deadLetter parks an undecodable record. A failed DLQ write keeps the offset uncommitted.
func (h *TransactionEventHandler) deadLetter(ctx context.Context, logger *slog.Logger, kind string, msg consumers.Message, cause error) error {
	logger.Error("Failed to unmarshal transaction event", "error", cause, "message_key", string(msg.Key))
	tracing.RecordError(ctx, cause)

	reason := fmt.Sprintf("failed to unmarshal %s event: %s", kind, cause.Error())
	if h.producer == nil {
		return fmt.Errorf("failed to unmarshal message value: %w", cause)
	}
	if err := h.producer.PublishToDLQ(ctx, msg.Topic, string(msg.Key), msg.Value, reason); err != nil {
		logger.Error("Failed to publish message to DLQ", "dlq_error", err, "original_error", cause)
		return fmt.Errorf("failed to unmarshal message value: %w", cause)
	}

	logger.Info("Published unprocessable message to DLQ", "reason", reason)
	metrics.InboundEvent(kind, metrics.OutcomeDLQ)
	return nil
}
