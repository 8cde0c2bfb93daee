package service

import (
	"context"

	"github.com/creditx/hold-service/internal/domain/shared"
)

// EventProcessor applies one inbound transaction event to its hold.
// A nil return means the delivery is settled and its offset may be committed.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, event *shared.TransactionEvent) error
}
