package outbox

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository defines outbox persistence operations.
// Events are append-only; only the publisher transitions their status.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetPending(ctx context.Context, limit int) ([]*Event, error)
	MarkPublished(ctx context.Context, id int64, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id int64) error
	ListByAggregateID(ctx context.Context, aggregateID int64) ([]*Event, error)
	WithTx(tx pgx.Tx) Repository
}

// Archiver keeps an audit copy of published events outside the primary store
type Archiver interface {
	Archive(ctx context.Context, event *Event) error
}

// ErrEventNotFound indicates a missing or no longer PENDING outbox event
type ErrEventNotFound struct {
	ID int64
}

func (e ErrEventNotFound) Error() string {
	return "outbox event not found: " + strconv.FormatInt(e.ID, 10)
}
