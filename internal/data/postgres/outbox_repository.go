package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creditx/hold-service/internal/domain/outbox"
	"github.com/creditx/hold-service/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const outboxColumns = `id, event_type, aggregate_id, payload, status, created_at, published_at`

// OutboxRepository implements the outbox.Repository interface for PostgreSQL
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOutboxRepository creates a new PostgreSQL outbox repository
func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so the event commits
// atomically with the hold change it describes.
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new outbox event in pending status
func (r *OutboxRepository) Create(ctx context.Context, event *outbox.Event) error {
	query := `
		INSERT INTO outbox_events (event_type, aggregate_id, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		event.EventType,
		event.AggregateID,
		event.Payload,
		event.Status,
		event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		r.logger.Error("Failed to create outbox event",
			"event_type", event.EventType,
			"aggregate_id", event.AggregateID,
			"error", err,
		)
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	return nil
}

// GetPending retrieves up to limit pending events, oldest first
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Event, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox_events WHERE status = $1 ORDER BY created_at ASC, id ASC LIMIT $2`

	rows, err := r.querier.Query(ctx, query, outbox.StatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox events", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox events: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// ListByAggregateID returns every event recorded for a hold in creation order
func (r *OutboxRepository) ListByAggregateID(ctx context.Context, aggregateID int64) ([]*outbox.Event, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox_events WHERE aggregate_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.querier.Query(ctx, query, aggregateID)
	if err != nil {
		r.logger.Error("Failed to list outbox events", "aggregate_id", aggregateID, "error", err)
		return nil, fmt.Errorf("failed to list outbox events: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// MarkPublished moves a pending event to PUBLISHED.
// Returns ErrEventNotFound if the event is missing or no longer pending.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id int64, publishedAt time.Time) error {
	query := `
		UPDATE outbox_events
		SET status = $1, published_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, outbox.StatusPublished, publishedAt, id, outbox.StatusPending)
	if err != nil {
		r.logger.Error("Failed to mark outbox event published", "id", id, "error", err)
		return fmt.Errorf("failed to mark outbox event published: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrEventNotFound{ID: id}
	}

	return nil
}

// MarkFailed moves a pending event to the terminal FAILED state
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_events
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.querier.Exec(ctx, query, outbox.StatusFailed, id, outbox.StatusPending)
	if err != nil {
		r.logger.Error("Failed to mark outbox event failed", "id", id, "error", err)
		return fmt.Errorf("failed to mark outbox event failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrEventNotFound{ID: id}
	}

	return nil
}

func (r *OutboxRepository) collect(rows pgx.Rows) ([]*outbox.Event, error) {
	var events []*outbox.Event
	for rows.Next() {
		var event outbox.Event
		err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.AggregateID,
			&event.Payload,
			&event.Status,
			&event.CreatedAt,
			&event.PublishedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan outbox event", "error", err)
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over outbox events", "error", err)
		return nil, fmt.Errorf("error iterating over outbox events: %w", err)
	}

	return events, nil
}
