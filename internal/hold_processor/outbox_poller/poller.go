package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/creditx/hold-service/internal/config"
	"github.com/creditx/hold-service/internal/domain/outbox"
	"github.com/creditx/hold-service/internal/platform/clock"
	"github.com/creditx/hold-service/internal/platform/messaging/producers"
	"github.com/creditx/hold-service/internal/platform/metrics"
)

var ErrDrainInProgress = errors.New("outbox drain already in progress")

// Poller publishes pending outbox events to Kafka, oldest first.
// A failed publish marks the event FAILED; there is no retry here.
type Poller struct {
	outboxRepo   outbox.Repository
	publisher    producers.EventPublisher
	archiver     outbox.Archiver
	clock        clock.Clock
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
	mu           sync.Mutex
}

// NewPoller builds a poller. archiver may be nil.
func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher producers.EventPublisher,
	archiver outbox.Archiver,
	clk clock.Clock,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:   outboxRepo,
		publisher:    publisher,
		archiver:     archiver,
		clock:        clk,
		logger:       logger,
		pollInterval: cfg.PollingInterval,
		batchSize:    cfg.BatchSize,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"archive_enabled", p.archiver != nil,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping due to context cancellation")
			return
		case <-ticker.C:
			if err := p.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("Error while draining outbox", "error", err)
			}
		}
	}
}

// Drain publishes one batch of pending events. Per-event failures are logged;
// only the pending query fails the drain.
func (p *Poller) Drain(ctx context.Context) error {
	if !p.mu.TryLock() {
		return ErrDrainInProgress
	}
	defer p.mu.Unlock()

	events, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox events: %w", err)
	}
	if len(events) == 0 {
		p.logger.Debug("No pending outbox events found")
		return nil
	}

	p.logger.Info("Fetched pending outbox events", "count", len(events))
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.relay(ctx, event)
	}
	return nil
}

func (p *Poller) relay(ctx context.Context, event *outbox.Event) {
	logger := p.logger.With(
		"outbox_id", event.ID,
		"event_type", event.EventType,
		"hold_id", event.AggregateID,
	)

	key := strconv.FormatInt(event.AggregateID, 10)
	if err := p.publisher.Publish(ctx, key, event.Payload, event.EventType); err != nil {
		logger.Error("Failed to publish outbox event, marking as FAILED", "error", err)
		metrics.OutboxEvent(event.EventType, metrics.OutcomeFailed)
		if errMark := p.outboxRepo.MarkFailed(ctx, event.ID); errMark != nil {
			logger.Error("Failed to mark outbox event as FAILED", "error", errMark)
		}
		return
	}

	publishedAt := p.clock.Now()
	if err := p.outboxRepo.MarkPublished(ctx, event.ID, publishedAt); err != nil {
		// the event stays PENDING and will be published again
		logger.Error("Failed to mark outbox event as PUBLISHED", "error", err)
		return
	}
	event.MarkAsPublished(publishedAt)
	metrics.OutboxEvent(event.EventType, metrics.OutcomePublished)
	logger.Info("Published outbox event")

	if p.archiver == nil {
		return
	}
	if err := p.archiver.Archive(ctx, event); err != nil {
		logger.Warn("Failed to archive published outbox event", "error", err)
	}
}
