package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/creditx/hold-service/internal/domain/hold"
	"github.com/creditx/hold-service/internal/domain/outbox"
	"github.com/creditx/hold-service/internal/platform/clock"
	"github.com/creditx/hold-service/internal/platform/metrics"
	"github.com/creditx/hold-service/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// HoldServiceImpl implements the HoldService interface
type HoldServiceImpl struct {
	db              persistence.TxRunner
	holdRepo        hold.Repository
	outboxRepo      outbox.Repository
	fraudChecker    hold.FraudChecker
	clock           clock.Clock
	expiryHorizon   time.Duration
	defaultCurrency string
	logger          *slog.Logger
}

// HoldServiceConfig carries the creation rules
type HoldServiceConfig struct {
	ExpiryHorizon   time.Duration
	DefaultCurrency string
}

// NewHoldService creates a new hold service
func NewHoldService(
	logger *slog.Logger,
	db persistence.TxRunner,
	holdRepo hold.Repository,
	outboxRepo outbox.Repository,
	fraudChecker hold.FraudChecker,
	clk clock.Clock,
	cfg HoldServiceConfig,
) HoldService {
	return &HoldServiceImpl{
		db:              db,
		holdRepo:        holdRepo,
		outboxRepo:      outboxRepo,
		fraudChecker:    fraudChecker,
		clock:           clk,
		expiryHorizon:   cfg.ExpiryHorizon,
		defaultCurrency: cfg.DefaultCurrency,
		logger:          logger,
	}
}

// CreateHold runs replay lookup, fraud check, hold insert and the hold.created
// outbox insert in a single transaction.
func (s *HoldServiceImpl) CreateHold(ctx context.Context, req *hold.CreateRequest) (*hold.CreateResult, error) {
	if err := req.Normalize(s.defaultCurrency); err != nil {
		s.logger.Warn("Rejected hold request", "transaction_id", req.TransactionID, "error", err)
		metrics.HoldCreated("rejected")
		return nil, err
	}

	var result *hold.CreateResult
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		holds := s.holdRepo.WithTx(tx)
		events := s.outboxRepo.WithTx(tx)

		if err := holds.LockTransaction(ctx, req.TransactionID); err != nil {
			return err
		}

		existing, err := holds.GetByTransactionID(ctx, req.TransactionID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = &hold.CreateResult{HoldID: existing.ID, Status: existing.Status, Replayed: true}
			return nil
		}

		if err := s.fraudChecker.Check(ctx, req); err != nil {
			return err
		}

		now := s.clock.Now()
		h := hold.NewAuthorizedHold(req, now, s.expiryHorizon)
		if err := holds.Create(ctx, h); err != nil {
			return err
		}

		event, err := outbox.NewHoldCreatedEvent(h, req, now)
		if err != nil {
			return err
		}
		if err := events.Create(ctx, event); err != nil {
			return err
		}

		result = &hold.CreateResult{HoldID: h.ID, Status: h.Status}
		return nil
	})
	if err != nil {
		if hold.IsValidationError(err) {
			s.logger.Warn("Rejected hold request", "transaction_id", req.TransactionID, "error", err)
			metrics.HoldCreated("rejected")
		} else {
			s.logger.Error("Failed to create hold", "transaction_id", req.TransactionID, "error", err)
		}
		return nil, err
	}

	if result.Replayed {
		s.logger.Info("Hold request replayed",
			"transaction_id", req.TransactionID,
			"hold_id", result.HoldID,
			"status", string(result.Status),
		)
		metrics.HoldCreated("replayed")
		return result, nil
	}

	s.logger.Info("Hold authorized",
		"transaction_id", req.TransactionID,
		"hold_id", result.HoldID,
		"amount", req.Amount.String(),
		"currency", req.Currency,
	)
	metrics.HoldCreated("created")
	return result, nil
}

// GetHold retrieves a hold by its ID
func (s *HoldServiceImpl) GetHold(ctx context.Context, id int64) (*hold.Hold, error) {
	h, err := s.holdRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return h, nil
}
