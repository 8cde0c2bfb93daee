package idempotency

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditx/hold-service/internal/domain/shared"
)

func TestEventID_RandomSuffix(t *testing.T) {
	id1 := EventID("hold.created", 123, "")
	id2 := EventID("hold.created", 123, "")

	assert.NotEqual(t, id1, id2)
	assert.True(t, strings.HasPrefix(id1, "hold.created-123-"))
	assert.True(t, strings.HasPrefix(id2, "hold.created-123-"))
	assert.Len(t, id1, len("hold.created")+1+len("123")+1+8)
}

func TestEventID_DifferentKindsAndTransactions(t *testing.T) {
	assert.True(t, strings.HasPrefix(EventID("hold.expired", 456, ""), "hold.expired-456-"))
	assert.True(t, strings.HasPrefix(EventID("hold.voided", 111, ""), "hold.voided-111-"))
	assert.True(t, strings.HasPrefix(EventID("hold.voided", 222, ""), "hold.voided-222-"))
}

func TestEventID_UpstreamIDIsDeterministic(t *testing.T) {
	id1 := EventID("transaction.posted", 7, "msg-42")
	id2 := EventID("transaction.posted", 7, " msg-42 ")

	assert.Equal(t, "transaction.posted-7-msg-42", id1)
	assert.Equal(t, id1, id2)
}

func TestPayloadHash(t *testing.T) {
	h1 := PayloadHash([]byte(`{"holdId":123}`))
	h2 := PayloadHash([]byte(`{"holdId":123}`))
	h3 := PayloadHash([]byte(`{"holdId":124}`))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
	assert.Len(t, PayloadHash(nil), 64)
}

func TestNormalizedPayloadHash(t *testing.T) {
	t.Run("KeyOrderAndWhitespaceDoNotMatter", func(t *testing.T) {
		a, err := NormalizedPayloadHash(shared.EventTransactionPosted, []byte(`{"transactionId":100,"holdId":5}`))
		require.NoError(t, err)
		b, err := NormalizedPayloadHash(shared.EventTransactionPosted, []byte("{ \"holdId\": 5,\n \"transactionId\": 100 }"))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("KindSeparatesIdenticalBodies", func(t *testing.T) {
		body := []byte(`{"transactionId":100,"holdId":5}`)
		failed, err := NormalizedPayloadHash(shared.EventTransactionFailed, body)
		require.NoError(t, err)
		authorized, err := NormalizedPayloadHash(shared.EventTransactionAuthorized, body)
		require.NoError(t, err)
		assert.NotEqual(t, failed, authorized)
		assert.NotEqual(t, PayloadHash(body), failed)
	})

	t.Run("NumbersKeepPrecision", func(t *testing.T) {
		normalized, err := NormalizePayload([]byte(`{"amount":250.10,"id":9007199254740993}`))
		require.NoError(t, err)
		assert.Equal(t, `{"amount":250.10,"id":9007199254740993}`, string(normalized))
	})

	t.Run("MalformedPayload", func(t *testing.T) {
		_, err := NormalizedPayloadHash(shared.EventTransactionPosted, []byte(`{"holdId":`))
		assert.ErrorIs(t, err, shared.ErrPayloadNormalization)
	})

	t.Run("TrailingData", func(t *testing.T) {
		_, err := NormalizedPayloadHash(shared.EventTransactionPosted, []byte(`{"holdId":1} {"holdId":2}`))
		assert.ErrorIs(t, err, shared.ErrPayloadNormalization)
	})
}
