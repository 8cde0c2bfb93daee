// Package expiry moves AUTHORIZED holds past their expiry instant to EXPIRED.
package expiry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/creditx/hold-service/internal/domain/hold"
	"github.com/creditx/hold-service/internal/domain/outbox"
	"github.com/creditx/hold-service/internal/platform/clock"
	"github.com/creditx/hold-service/internal/platform/metrics"
	"github.com/creditx/hold-service/internal/platform/persistence"
)

var ErrSweepInProgress = errors.New("expiry sweep already in progress")

// SweepResult counts what one sweep did with its candidates.
// Skipped holds changed status between the query and the row lock.
type SweepResult struct {
	Candidates int
	Expired    int
	Skipped    int
	Failed     int
}

// Scanner expires holds on a fixed interval, one transaction per hold
type Scanner struct {
	db         persistence.TxRunner
	holdRepo   hold.Repository
	outboxRepo outbox.Repository
	clock      clock.Clock
	interval   time.Duration
	logger     *slog.Logger
	mu         sync.Mutex
}

func NewScanner(
	logger *slog.Logger,
	db persistence.TxRunner,
	holdRepo hold.Repository,
	outboxRepo outbox.Repository,
	clk clock.Clock,
	interval time.Duration,
) *Scanner {
	return &Scanner{
		db:         db,
		holdRepo:   holdRepo,
		outboxRepo: outboxRepo,
		clock:      clk,
		interval:   interval,
		logger:     logger,
	}
}

// Start sweeps on every tick until ctx is canceled
func (s *Scanner) Start(ctx context.Context) {
	s.logger.Info("Starting expiry scanner", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry scanner stopping due to context cancellation")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Expiry sweep failed", "error", err)
			}
		}
	}
}

// Sweep expires every AUTHORIZED hold whose expiry is strictly before now.
// Per-hold failures are logged and counted; only the candidate query fails the sweep.
func (s *Scanner) Sweep(ctx context.Context) (SweepResult, error) {
	if !s.mu.TryLock() {
		return SweepResult{}, ErrSweepInProgress
	}
	defer s.mu.Unlock()

	started := time.Now()
	now := s.clock.Now()

	candidates, err := s.holdRepo.FindExpired(ctx, hold.StatusAuthorized, now)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Candidates: len(candidates)}
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		expired, err := s.expire(ctx, candidate.ID, now)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Error("Failed to expire hold", "hold_id", candidate.ID, "error", err)
		case expired:
			result.Expired++
		default:
			result.Skipped++
		}
	}

	metrics.ExpirySweep(time.Since(started), result.Expired)
	if result.Candidates > 0 {
		s.logger.Info("Expiry sweep finished",
			"candidates", result.Candidates,
			"expired", result.Expired,
			"skipped", result.Skipped,
			"failed", result.Failed,
		)
	}
	return result, nil
}

// expire re-reads the hold under lock so a concurrent capture wins
func (s *Scanner) expire(ctx context.Context, holdID int64, now time.Time) (bool, error) {
	var expired bool
	var from hold.Status
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		holds := s.holdRepo.WithTx(tx)

		h, err := holds.LockByID(ctx, holdID)
		if err != nil {
			return err
		}

		from = h.Status
		changed, err := h.Apply(hold.SignalExpiry, now)
		if err != nil || !changed {
			return err
		}

		if err := holds.UpdateStatus(ctx, h.ID, h.Status); err != nil {
			return err
		}

		event, err := outbox.NewHoldExpiredEvent(h, now)
		if err != nil {
			return err
		}
		if err := s.outboxRepo.WithTx(tx).Create(ctx, event); err != nil {
			return err
		}

		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if expired {
		metrics.Transition(string(from), string(hold.StatusExpired))
	}
	return expired, nil
}
