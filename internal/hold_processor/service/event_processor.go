package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/creditx/hold-service/internal/domain/hold"
	"github.com/creditx/hold-service/internal/domain/processedevent"
	"github.com/creditx/hold-service/internal/domain/shared"
	"github.com/creditx/hold-service/internal/platform/clock"
	"github.com/creditx/hold-service/internal/platform/idempotency"
	"github.com/creditx/hold-service/internal/platform/metrics"
	"github.com/creditx/hold-service/internal/platform/persistence"
	"github.com/creditx/hold-service/internal/platform/tracing"
)

// EventProcessorImpl settles inbound events against the dedup ledger and the hold lifecycle
type EventProcessorImpl struct {
	db            persistence.TxRunner
	holdRepo      hold.Repository
	processedRepo processedevent.Repository
	clock         clock.Clock
	logger        *slog.Logger
}

func NewEventProcessor(
	logger *slog.Logger,
	db persistence.TxRunner,
	holdRepo hold.Repository,
	processedRepo processedevent.Repository,
	clk clock.Clock,
) *EventProcessorImpl {
	return &EventProcessorImpl{
		db:            db,
		holdRepo:      holdRepo,
		processedRepo: processedRepo,
		clock:         clk,
		logger:        logger,
	}
}

// ProcessEvent is a no-op for an event id or payload that already has a SUCCESS
// row. Otherwise it locks the hold, applies the signal and records SUCCESS in one
// transaction. A failure is recorded as a FAILED row and returned.
func (p *EventProcessorImpl) ProcessEvent(ctx context.Context, event *shared.TransactionEvent) error {
	signal, err := hold.SignalForKind(event.Kind)
	if err != nil {
		return err
	}

	eventID := idempotency.EventID(event.Kind, event.TransactionID, event.UpstreamID)
	logger := p.logger.With(
		"event_id", eventID,
		"transaction_id", event.TransactionID,
		"hold_id", event.HoldID,
	)
	tracing.TagTransaction(ctx, event.TransactionID, event.HoldID, event.Kind)
	tracing.TagEventID(ctx, eventID)

	processed, err := p.processedRepo.IsEventProcessed(ctx, eventID)
	if err != nil {
		return p.fail(ctx, logger, event.Kind, eventID, err)
	}
	if processed {
		logger.Info("Event already processed, skipping")
		metrics.InboundEvent(event.Kind, metrics.OutcomeDuplicate)
		return nil
	}

	payloadHash, err := idempotency.NormalizedPayloadHash(event.Kind, event.Payload)
	if err != nil {
		return p.fail(ctx, logger, event.Kind, eventID, err)
	}

	processed, err = p.processedRepo.IsPayloadProcessed(ctx, payloadHash)
	if err != nil {
		return p.fail(ctx, logger, event.Kind, eventID, err)
	}
	if processed {
		logger.Info("Payload already processed, skipping", "payload_hash", payloadHash)
		metrics.InboundEvent(event.Kind, metrics.OutcomeDuplicate)
		return nil
	}

	processedAt := p.clock.Now()
	var outcome string
	var from, to hold.Status
	err = p.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		holds := p.holdRepo.WithTx(tx)
		ledger := p.processedRepo.WithTx(tx)

		h, err := holds.LockByID(ctx, event.HoldID)
		if err != nil {
			return err
		}

		// a concurrent delivery of the same payload may have committed while we waited for the lock
		duplicate, err := ledger.IsPayloadProcessed(ctx, payloadHash)
		if err != nil {
			return err
		}
		if duplicate {
			outcome = metrics.OutcomeDuplicate
			return nil
		}

		from = h.Status
		changed, err := h.Apply(signal, processedAt)
		if err != nil {
			return err
		}
		outcome = metrics.OutcomeNoop
		if changed {
			if err := holds.UpdateStatus(ctx, h.ID, h.Status); err != nil {
				return err
			}
			to = h.Status
			outcome = metrics.OutcomeApplied
		}

		return ledger.Create(ctx, processedevent.NewSuccess(eventID, payloadHash, processedAt))
	})
	if errors.Is(err, processedevent.ErrAlreadyProcessed) {
		logger.Info("Event committed concurrently by another delivery, skipping")
		metrics.InboundEvent(event.Kind, metrics.OutcomeDuplicate)
		return nil
	}
	if err != nil {
		return p.fail(ctx, logger, event.Kind, eventID, err)
	}

	switch outcome {
	case metrics.OutcomeApplied:
		logger.Info("Hold transitioned", "from", string(from), "to", string(to), "signal", string(signal))
		metrics.Transition(string(from), string(to))
	case metrics.OutcomeNoop:
		logger.Info("Event did not change hold", "status", string(from), "signal", string(signal))
	default:
		logger.Info("Payload committed concurrently by another delivery, skipping")
	}
	metrics.InboundEvent(event.Kind, outcome)
	return nil
}

// fail records a FAILED row outside any transaction. Failed rows carry no
// payload hash so a later redelivery can still succeed.
func (p *EventProcessorImpl) fail(ctx context.Context, logger *slog.Logger, kind, eventID string, cause error) error {
	logger.Error("Failed to process event", "error", cause)
	tracing.RecordError(ctx, cause)
	metrics.InboundEvent(kind, metrics.OutcomeFailed)

	if err := p.processedRepo.Create(ctx, processedevent.NewFailure(eventID, p.clock.Now())); err != nil {
		logger.Error("Failed to record event failure", "error", err)
	}
	return fmt.Errorf("processing event %s failed: %w", eventID, cause)
}
