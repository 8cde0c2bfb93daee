package processedevent

import (
	"errors"
	"time"
)

// Status is the terminal outcome recorded for an inbound delivery
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// ErrAlreadyProcessed is returned when a SUCCESS row for the same event id or
// payload hash was committed concurrently.
var ErrAlreadyProcessed = errors.New("event already processed")

// ProcessedEvent is one row of the inbound dedup ledger
type ProcessedEvent struct {
	ID          int64
	EventID     string
	PayloadHash string
	Status      Status
	ProcessedAt time.Time
}

func NewSuccess(eventID, payloadHash string, at time.Time) *ProcessedEvent {
	return &ProcessedEvent{
		EventID:     eventID,
		PayloadHash: payloadHash,
		Status:      StatusSuccess,
		ProcessedAt: at,
	}
}

// NewFailure records a failed delivery. Failed rows never carry a payload hash
// so they do not suppress a later successful redelivery.
func NewFailure(eventID string, at time.Time) *ProcessedEvent {
	return &ProcessedEvent{
		EventID:     eventID,
		Status:      StatusFailed,
		ProcessedAt: at,
	}
}
