package hold

import (
	"errors"
	"fmt"
)

// Signal is an input to the hold lifecycle
type Signal string

const (
	SignalAuthorized Signal = "transaction.authorized"
	SignalPosted     Signal = "transaction.posted"
	SignalFailed     Signal = "transaction.failed"
	SignalExpiry     Signal = "hold.expiry"
)

var (
	ErrUnknownStatus = errors.New("unknown hold status")
	ErrUnknownSignal = errors.New("unknown lifecycle signal")
)

// Transition computes the next status for current under signal.
// changed is false for every pair outside the transition table; the caller
// must not persist anything in that case. It never touches storage.
//
//	AUTHORIZED + authorized|posted -> CAPTURED
//	VOIDED     + authorized        -> CAPTURED
//	AUTHORIZED + failed            -> VOIDED
//	AUTHORIZED + expiry            -> EXPIRED
func Transition(current Status, signal Signal) (Status, bool, error) {
	switch signal {
	case SignalAuthorized, SignalPosted, SignalFailed, SignalExpiry:
	default:
		return current, false, fmt.Errorf("%w: %q", ErrUnknownSignal, signal)
	}

	switch current {
	case StatusAuthorized:
		switch signal {
		case SignalAuthorized, SignalPosted:
			return StatusCaptured, true, nil
		case SignalFailed:
			return StatusVoided, true, nil
		case SignalExpiry:
			return StatusExpired, true, nil
		}
	case StatusVoided:
		// A late authorization resurrects a voided hold.
		if signal == SignalAuthorized {
			return StatusCaptured, true, nil
		}
		return current, false, nil
	case StatusCaptured, StatusExpired:
		return current, false, nil
	}

	return current, false, fmt.Errorf("%w: %q", ErrUnknownStatus, current)
}

// SignalForKind maps an inbound event kind onto its lifecycle signal.
func SignalForKind(kind string) (Signal, error) {
	switch Signal(kind) {
	case SignalAuthorized, SignalPosted, SignalFailed:
		return Signal(kind), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSignal, kind)
}
