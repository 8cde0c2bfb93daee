package hold

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository defines hold persistence operations
type Repository interface {
	Create(ctx context.Context, hold *Hold) error
	GetByID(ctx context.Context, id int64) (*Hold, error)
	// GetByTransactionID returns nil without error when no hold exists
	GetByTransactionID(ctx context.Context, transactionID int64) (*Hold, error)
	// LockTransaction serializes hold creation for transactionID until the
	// surrounding transaction ends
	LockTransaction(ctx context.Context, transactionID int64) error

	// LockByID acquires a row lock for the rest of the surrounding transaction
	LockByID(ctx context.Context, id int64) (*Hold, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error

	// FindExpired returns holds in status whose expires_at is strictly before cutoff
	FindExpired(ctx context.Context, status Status, cutoff time.Time) ([]*Hold, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrHoldNotFound indicates a missing hold. A zero HoldID matches any instance.
type ErrHoldNotFound struct {
	HoldID int64
}

func (e ErrHoldNotFound) Error() string {
	return "hold not found: " + strconv.FormatInt(e.HoldID, 10)
}

func (e ErrHoldNotFound) Is(target error) bool {
	t, ok := target.(ErrHoldNotFound)
	if !ok {
		return false
	}
	return t.HoldID == 0 || t.HoldID == e.HoldID
}
