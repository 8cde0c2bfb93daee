// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be rebound to a transaction with WithTx so that hold
// changes, outbox rows and dedup records commit together.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creditx/hold-service/internal/domain/hold"
	"github.com/creditx/hold-service/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const holdColumns = `hold_id, transaction_id, account_id, amount, status, created_at, updated_at, expires_at`

// HoldRepository implements the hold.Repository interface for PostgreSQL
type HoldRepository struct {
	querier persistence.Querier // Can be the pool or pgx.Tx
	logger  *slog.Logger
}

// NewHoldRepository creates a new PostgreSQL hold repository
func NewHoldRepository(logger *slog.Logger, db *persistence.PostgresDB) hold.Repository {
	return &HoldRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *HoldRepository) WithTx(tx pgx.Tx) hold.Repository {
	return &HoldRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the hold and fills in the store-assigned id and timestamps
func (r *HoldRepository) Create(ctx context.Context, h *hold.Hold) error {
	query := `
		INSERT INTO holds (transaction_id, account_id, amount, status, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING hold_id, created_at, updated_at
	`

	err := r.querier.QueryRow(ctx, query,
		h.TransactionID,
		h.AccountID,
		h.Amount,
		h.Status,
		h.ExpiresAt,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create hold", "transaction_id", h.TransactionID, "error", err)
		return fmt.Errorf("failed to create hold: %w", err)
	}

	return nil
}

// LockTransaction takes a transaction-scoped advisory lock keyed by the payment
// transaction id. Concurrent creations for the same id queue behind it.
func (r *HoldRepository) LockTransaction(ctx context.Context, transactionID int64) error {
	if _, err := r.querier.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, transactionID); err != nil {
		r.logger.Error("Failed to lock transaction for hold creation", "transaction_id", transactionID, "error", err)
		return fmt.Errorf("failed to lock transaction %d: %w", transactionID, err)
	}
	return nil
}

// GetByID retrieves a hold by its ID
func (r *HoldRepository) GetByID(ctx context.Context, id int64) (*hold.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE hold_id = $1`

	h, err := scanHold(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hold.ErrHoldNotFound{HoldID: id}
		}
		r.logger.Error("Failed to get hold", "hold_id", id, "error", err)
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}

	return h, nil
}

// GetByTransactionID returns the earliest hold for the transaction, or nil when there is none
func (r *HoldRepository) GetByTransactionID(ctx context.Context, transactionID int64) (*hold.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE transaction_id = $1 ORDER BY hold_id LIMIT 1`

	h, err := scanHold(r.querier.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get hold by transaction ID", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("failed to get hold by transaction ID: %w", err)
	}

	return h, nil
}

// LockByID obtains a row lock on the hold and returns its current state.
// It must run inside a transaction; the lock is released on commit or rollback.
func (r *HoldRepository) LockByID(ctx context.Context, id int64) (*hold.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE hold_id = $1 FOR UPDATE`

	h, err := scanHold(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hold.ErrHoldNotFound{HoldID: id}
		}
		r.logger.Error("Failed to lock hold for update", "hold_id", id, "error", err)
		return nil, fmt.Errorf("failed to lock hold for update: %w", err)
	}

	return h, nil
}

// UpdateStatus sets the status and bumps updated_at
func (r *HoldRepository) UpdateStatus(ctx context.Context, id int64, status hold.Status) error {
	query := `
		UPDATE holds
		SET status = $1, updated_at = NOW()
		WHERE hold_id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update hold status", "hold_id", id, "status", string(status), "error", err)
		return fmt.Errorf("failed to update hold status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return hold.ErrHoldNotFound{HoldID: id}
	}

	return nil
}

// FindExpired lists holds in status whose expiry is strictly before cutoff, soonest first
func (r *HoldRepository) FindExpired(ctx context.Context, status hold.Status, cutoff time.Time) ([]*hold.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE status = $1 AND expires_at < $2 ORDER BY expires_at`

	rows, err := r.querier.Query(ctx, query, status, cutoff)
	if err != nil {
		r.logger.Error("Failed to find expired holds", "error", err)
		return nil, fmt.Errorf("failed to find expired holds: %w", err)
	}
	defer rows.Close()

	var holds []*hold.Hold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			r.logger.Error("Failed to scan hold", "error", err)
			return nil, fmt.Errorf("failed to scan hold: %w", err)
		}
		holds = append(holds, h)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over expired holds", "error", err)
		return nil, fmt.Errorf("error iterating over expired holds: %w", err)
	}

	return holds, nil
}

func scanHold(row pgx.Row) (*hold.Hold, error) {
	var h hold.Hold
	err := row.Scan(
		&h.ID,
		&h.TransactionID,
		&h.AccountID,
		&h.Amount,
		&h.Status,
		&h.CreatedAt,
		&h.UpdatedAt,
		&h.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}
