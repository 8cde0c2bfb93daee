package hold

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a hold
type Status string

const (
	StatusAuthorized Status = "AUTHORIZED"
	StatusCaptured   Status = "CAPTURED"
	StatusVoided     Status = "VOIDED"
	StatusExpired    Status = "EXPIRED"
)

// Valid reports whether s belongs to the closed set of hold statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAuthorized, StatusCaptured, StatusVoided, StatusExpired:
		return true
	}
	return false
}

// Hold is a provisional reservation of funds tied 1:1 to a payment transaction.
// CreatedAt and UpdatedAt are assigned by the store.
type Hold struct {
	ID            int64           `json:"holdId"`
	TransactionID int64           `json:"transactionId"`
	AccountID     int64           `json:"accountId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

// NewAuthorizedHold builds the initial AUTHORIZED hold for a validated request.
func NewAuthorizedHold(req *CreateRequest, now time.Time, horizon time.Duration) *Hold {
	return &Hold{
		TransactionID: req.TransactionID,
		AccountID:     req.IssuerAccountID,
		Amount:        req.Amount,
		Status:        StatusAuthorized,
		ExpiresAt:     now.Add(horizon),
	}
}

// Apply runs the lifecycle for signal against the hold and updates its status in place.
// The expiry signal only applies once ExpiresAt is strictly before now.
func (h *Hold) Apply(signal Signal, now time.Time) (bool, error) {
	if signal == SignalExpiry && !h.ExpiresAt.Before(now) {
		return false, nil
	}

	next, changed, err := Transition(h.Status, signal)
	if err != nil {
		return false, err
	}
	if changed {
		h.Status = next
	}
	return changed, nil
}

// IsExpired reports whether the hold is past its expiry instant.
func (h *Hold) IsExpired(now time.Time) bool {
	return h.ExpiresAt.Before(now)
}
