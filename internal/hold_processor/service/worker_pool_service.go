package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/creditx/hold-service/internal/domain/shared"
)

// WorkerPoolEventProcessor runs events on a bounded ants pool. ProcessEvent
// blocks until the task finishes so the caller can decide on the commit.
type WorkerPoolEventProcessor struct {
	base   EventProcessor
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolEventProcessor(
	base EventProcessor,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolEventProcessor, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolEventProcessor{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// ProcessEvent submits the event to the pool and waits for its result
func (s *WorkerPoolEventProcessor) ProcessEvent(ctx context.Context, event *shared.TransactionEvent) error {
	resultChan := make(chan error, 1)
	eventCopy := *event

	err := s.pool.Submit(func() {
		resultChan <- s.base.ProcessEvent(ctx, &eventCopy)
	})
	if err != nil {
		s.logger.Error("Failed to submit event to worker pool",
			"kind", event.Kind,
			"transaction_id", event.TransactionID,
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the pool without waiting for running tasks.
func (s *WorkerPoolEventProcessor) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// ShutdownTimeout releases the pool and waits up to timeout for running tasks to
// return, so stores can be closed afterwards.
func (s *WorkerPoolEventProcessor) ShutdownTimeout(timeout time.Duration) error {
	s.logger.Info("Draining worker pool", "running_workers", s.pool.Running(), "timeout", timeout.String())
	if err := s.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("worker pool did not drain within %s: %w", timeout, err)
	}
	return nil
}

func (s *WorkerPoolEventProcessor) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolEventProcessor) Capacity() int {
	return s.pool.Cap()
}
