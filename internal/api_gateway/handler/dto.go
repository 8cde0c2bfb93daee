package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/creditx/hold-service/internal/domain/hold"
)

// CreateHoldRequest represents a request to authorize a hold.
// Amount accepts a JSON number or a decimal string.
type CreateHoldRequest struct {
	TransactionID     int64           `json:"transactionId" binding:"required"`
	IssuerAccountID   int64           `json:"issuerAccountId" binding:"required"`
	MerchantAccountID int64           `json:"merchantAccountId" binding:"required"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency,omitempty"`
}

// CreateHoldResponse is returned for both new and replayed holds
type CreateHoldResponse struct {
	HoldID int64  `json:"holdId"`
	Status string `json:"status"`
}

// HoldResponse represents a hold in API responses
type HoldResponse struct {
	HoldID        int64  `json:"holdId"`
	TransactionID int64  `json:"transactionId"`
	AccountID     int64  `json:"accountId"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
	ExpiresAt     string `json:"expiresAt"`
}

func (r CreateHoldRequest) toDomain() *hold.CreateRequest {
	return &hold.CreateRequest{
		TransactionID:     r.TransactionID,
		IssuerAccountID:   r.IssuerAccountID,
		MerchantAccountID: r.MerchantAccountID,
		Amount:            r.Amount,
		Currency:          r.Currency,
	}
}

func mapHoldToResponse(h *hold.Hold) HoldResponse {
	return HoldResponse{
		HoldID:        h.ID,
		TransactionID: h.TransactionID,
		AccountID:     h.AccountID,
		Amount:        h.Amount.StringFixed(2),
		Status:        string(h.Status),
		CreatedAt:     h.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     h.UpdatedAt.Format(time.RFC3339),
		ExpiresAt:     h.ExpiresAt.Format(time.RFC3339),
	}
}
