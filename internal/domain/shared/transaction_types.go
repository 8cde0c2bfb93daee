package shared

// Inbound transaction event kinds
const (
	EventTransactionAuthorized = "transaction.authorized"
	EventTransactionPosted     = "transaction.posted"
	EventTransactionFailed     = "transaction.failed"
)

// Message header names shared by the consumer and the publisher
const (
	HeaderEventType = "eventType"
	HeaderKey       = "key"
	HeaderEventID   = "eventId"
)

// IsTransactionEventKind reports whether kind is one of the inbound kinds.
func IsTransactionEventKind(kind string) bool {
	switch kind {
	case EventTransactionAuthorized, EventTransactionPosted, EventTransactionFailed:
		return true
	}
	return false
}

// ValidateEventType reports whether the eventType header carried by a message
// matches the kind the caller expects. A missing header or expectation fails.
func ValidateEventType(headers map[string]string, expected string) bool {
	if expected == "" || headers == nil {
		return false
	}
	actual, ok := headers[HeaderEventType]
	if !ok {
		return false
	}
	return actual == expected
}
