package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/creditx/hold-service/internal/domain/hold"
	"github.com/shopspring/decimal"
)

// Status defines outbox publishing states
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPublished Status = "PUBLISHED"
	StatusFailed    Status = "FAILED"
)

const (
	EventTypeHoldCreated = "hold.created"
	EventTypeHoldExpired = "hold.expired"
)

// Event is a hold state change staged for asynchronous publication.
// It is written in the same database transaction as the change it describes.
type Event struct {
	ID          int64           `json:"id"`
	EventType   string          `json:"event_type"`
	AggregateID int64           `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

// HoldCreatedPayload is the snapshot carried by hold.created
type HoldCreatedPayload struct {
	HoldID            int64           `json:"holdId"`
	TransactionID     int64           `json:"transactionId"`
	IssuerAccountID   int64           `json:"issuerAccountId"`
	MerchantAccountID int64           `json:"merchantAccountId"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            hold.Status     `json:"status"`
	ExpiresAt         time.Time       `json:"expiresAt"`
}

// HoldExpiredPayload is the snapshot carried by hold.expired
type HoldExpiredPayload struct {
	HoldID        int64           `json:"holdId"`
	TransactionID int64           `json:"transactionId"`
	AccountID     int64           `json:"accountId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        hold.Status     `json:"status"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

// NewEvent builds a PENDING event with payload serialized as JSON.
func NewEvent(eventType string, aggregateID int64, payload interface{}, now time.Time) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s payload: %w", eventType, err)
	}

	return &Event{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     raw,
		Status:      StatusPending,
		CreatedAt:   now,
	}, nil
}

// NewHoldCreatedEvent snapshots a freshly inserted hold and the request that produced it.
func NewHoldCreatedEvent(h *hold.Hold, req *hold.CreateRequest, now time.Time) (*Event, error) {
	return NewEvent(EventTypeHoldCreated, h.ID, HoldCreatedPayload{
		HoldID:            h.ID,
		TransactionID:     req.TransactionID,
		IssuerAccountID:   req.IssuerAccountID,
		MerchantAccountID: req.MerchantAccountID,
		Amount:            h.Amount,
		Currency:          req.Currency,
		Status:            h.Status,
		ExpiresAt:         h.ExpiresAt,
	}, now)
}

// NewHoldExpiredEvent snapshots a hold that has just moved to EXPIRED.
func NewHoldExpiredEvent(h *hold.Hold, now time.Time) (*Event, error) {
	return NewEvent(EventTypeHoldExpired, h.ID, HoldExpiredPayload{
		HoldID:        h.ID,
		TransactionID: h.TransactionID,
		AccountID:     h.AccountID,
		Amount:        h.Amount,
		Status:        h.Status,
		ExpiresAt:     h.ExpiresAt,
	}, now)
}

func (e *Event) MarkAsPublished(at time.Time) {
	e.Status = StatusPublished
	e.PublishedAt = &at
}

func (e *Event) MarkAsFailed() {
	e.Status = StatusFailed
}
