package shared

import (
	"encoding/json"
	"errors"
)

var (
	ErrMissingHoldID        = errors.New("event is missing holdId")
	ErrPayloadNormalization = errors.New("failed to normalize event payload")
)

// TransactionEvent is an inbound transaction lifecycle event decoded from the transport
type TransactionEvent struct {
	Kind          string          `json:"-"`
	UpstreamID    string          `json:"-"`
	TransactionID int64           `json:"transactionId"`
	HoldID        int64           `json:"holdId"`
	Payload       json.RawMessage `json:"-"`
}

// DecodeTransactionEvent parses value as a transaction event of kind.
// The raw bytes are kept for payload hashing.
func DecodeTransactionEvent(kind string, value []byte) (*TransactionEvent, error) {
	var event TransactionEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, err
	}
	event.Kind = kind
	event.Payload = append(json.RawMessage(nil), value...)

	if event.HoldID == 0 {
		return &event, ErrMissingHoldID
	}
	return &event, nil
}
