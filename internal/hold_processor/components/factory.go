// Package components assembles the hold processor's inbound pipeline.
package components

import (
	"log/slog"

	"github.com/creditx/hold-service/internal/config"
	"github.com/creditx/hold-service/internal/domain/hold"
	"github.com/creditx/hold-service/internal/domain/processedevent"
	"github.com/creditx/hold-service/internal/hold_processor/consumer"
	"github.com/creditx/hold-service/internal/hold_processor/service"
	"github.com/creditx/hold-service/internal/platform/clock"
	"github.com/creditx/hold-service/internal/platform/messaging/producers"
	"github.com/creditx/hold-service/internal/platform/persistence"
)

// CreateEventProcessor wraps the event processor in a worker pool sized by
// WORKER_POOL_SIZE. If the pool cannot be built the bare processor is returned.
func CreateEventProcessor(
	db persistence.TxRunner,
	holdRepo hold.Repository,
	processedRepo processedevent.Repository,
	clk clock.Clock,
	logger *slog.Logger,
	cfg *config.Config,
) service.EventProcessor {
	base := service.NewEventProcessor(logger.With("component", "event_processor"), db, holdRepo, processedRepo, clk)

	workerPool, err := service.NewWorkerPoolEventProcessor(
		base,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool, falling back to direct processing", "error", err)
		return base
	}

	logger.Info("Created worker pool event processor", "pool_size", cfg.WorkerPool.Size)
	return workerPool
}

// CreateTransactionEventHandler binds the processor to the configured inbound topics
func CreateTransactionEventHandler(
	processor service.EventProcessor,
	dlq producers.DeadLetterPublisher,
	logger *slog.Logger,
	cfg *config.Config,
) *consumer.TransactionEventHandler {
	return consumer.NewTransactionEventHandler(
		logger.With("component", "transaction_event_handler"),
		processor,
		dlq,
		cfg.Kafka.InboundTopics(),
	)
}
