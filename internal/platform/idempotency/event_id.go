// Package idempotency derives the keys of the inbound dedup ledger.
package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/creditx/hold-service/internal/domain/shared"
)

const suffixLength = 8

// EventID builds "<kind>-<transactionID>-<suffix>". The suffix is the upstream
// message id when one is supplied, otherwise eight random hex characters, which
// makes the id unique per delivery.
func EventID(kind string, transactionID int64, upstreamID string) string {
	suffix := strings.TrimSpace(upstreamID)
	if suffix == "" {
		suffix = strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLength]
	}
	return kind + "-" + strconv.FormatInt(transactionID, 10) + "-" + suffix
}

// NormalizePayload re-encodes a JSON document with sorted object keys, no
// insignificant whitespace and numbers kept verbatim.
func NormalizePayload(payload []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPayloadNormalization, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON document", shared.ErrPayloadNormalization)
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPayloadNormalization, err)
	}
	return normalized, nil
}

// PayloadHash returns the lowercase hex SHA-256 of data.
func PayloadHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NormalizedPayloadHash hashes the event kind together with the normalized form
// of its JSON payload, so byte-identical bodies of different kinds stay distinct.
func NormalizedPayloadHash(kind string, payload []byte) (string, error) {
	normalized, err := NormalizePayload(payload)
	if err != nil {
		return "", err
	}
	return PayloadHash(append([]byte(kind+"\n"), normalized...)), nil
}
