package processedevent

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository defines dedup ledger persistence operations
type Repository interface {
	// IsEventProcessed reports whether a SUCCESS row exists for eventID
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	// IsPayloadProcessed reports whether any row carries payloadHash
	IsPayloadProcessed(ctx context.Context, payloadHash string) (bool, error)
	Create(ctx context.Context, event *ProcessedEvent) error
	WithTx(tx pgx.Tx) Repository
}
