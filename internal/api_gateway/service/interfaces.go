package service

import (
	"context"

	"github.com/creditx/hold-service/internal/domain/hold"
)

// HoldService defines the interface for hold operations exposed over HTTP
type HoldService interface {
	// CreateHold validates the request and authorizes a new hold.
	// A request for a transaction that already has a hold returns that hold with Replayed set.
	// Validation and fraud rejections satisfy hold.IsValidationError.
	CreateHold(ctx context.Context, req *hold.CreateRequest) (*hold.CreateResult, error)

	// GetHold retrieves a hold by its ID
	// Returns ErrHoldNotFound if the hold doesn't exist
	GetHold(ctx context.Context, id int64) (*hold.Hold, error)
}
