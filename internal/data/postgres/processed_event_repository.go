package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/creditx/hold-service/internal/domain/processedevent"
	"github.com/creditx/hold-service/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// ProcessedEventRepository implements processedevent.Repository for PostgreSQL
type ProcessedEventRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewProcessedEventRepository creates a new PostgreSQL dedup ledger repository
func NewProcessedEventRepository(logger *slog.Logger, db *persistence.PostgresDB) processedevent.Repository {
	return &ProcessedEventRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *ProcessedEventRepository) WithTx(tx pgx.Tx) processedevent.Repository {
	return &ProcessedEventRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *ProcessedEventRepository) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id = $1 AND status = $2)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, eventID, processedevent.StatusSuccess).Scan(&exists); err != nil {
		r.logger.Error("Failed to check processed event", "event_id", eventID, "error", err)
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return exists, nil
}

func (r *ProcessedEventRepository) IsPayloadProcessed(ctx context.Context, payloadHash string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM processed_events WHERE payload_hash = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, payloadHash).Scan(&exists); err != nil {
		r.logger.Error("Failed to check processed payload", "payload_hash", payloadHash, "error", err)
		return false, fmt.Errorf("failed to check processed payload: %w", err)
	}
	return exists, nil
}

// Create records a delivery outcome. A SUCCESS row colliding with an existing
// SUCCESS row for the same event id or payload yields ErrAlreadyProcessed.
func (r *ProcessedEventRepository) Create(ctx context.Context, event *processedevent.ProcessedEvent) error {
	query := `
		INSERT INTO processed_events (event_id, payload_hash, status, processed_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		event.EventID,
		event.PayloadHash,
		event.Status,
		event.ProcessedAt,
	).Scan(&event.ID)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return processedevent.ErrAlreadyProcessed
		}
		r.logger.Error("Failed to record processed event",
			"event_id", event.EventID,
			"status", string(event.Status),
			"error", err,
		)
		return fmt.Errorf("failed to record processed event: %w", err)
	}

	return nil
}
