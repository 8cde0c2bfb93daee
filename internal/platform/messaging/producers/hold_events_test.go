package producers

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaWriter mocks KafkaWriter interface
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ KafkaWriter = (*MockKafkaWriter)(nil)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func headerMap(msg kafka.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestHoldEventProducer_Publish(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"holdId":5,"status":"AUTHORIZED"}`)

	t.Run("SuccessfulPublish", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newHoldEventProducer(newTestLogger(), mockWriter, "hold.events")

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			msg := msgs[0]
			headers := headerMap(msg)
			return string(msg.Key) == "5" &&
				string(msg.Value) == string(payload) &&
				headers["key"] == "5" &&
				headers["eventType"] == "hold.created"
		})).Return(nil).Once()

		require.NoError(t, producer.Publish(ctx, "5", payload, "hold.created"))
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newHoldEventProducer(newTestLogger(), mockWriter, "hold.events")
		writerErr := errors.New("leader not available")

		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerErr).Once()

		err := producer.Publish(ctx, "5", payload, "hold.expired")
		assert.ErrorIs(t, err, writerErr)
		mockWriter.AssertExpectations(t)
	})

	invalid := []struct {
		name      string
		key       string
		payload   []byte
		eventType string
	}{
		{"EmptyKey", "", payload, "hold.created"},
		{"EmptyPayload", "5", nil, "hold.created"},
		{"EmptyEventType", "5", payload, ""},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			mockWriter := new(MockKafkaWriter)
			producer := newHoldEventProducer(newTestLogger(), mockWriter, "hold.events")

			err := producer.Publish(ctx, tc.key, tc.payload, tc.eventType)
			assert.ErrorIs(t, err, ErrInvalidPublishRequest)
			mockWriter.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
		})
	}
}

func TestHoldEventProducer_Close(t *testing.T) {
	t.Run("SuccessfulClose", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newHoldEventProducer(newTestLogger(), mockWriter, "hold.events")
		mockWriter.On("Close").Return(nil).Once()

		require.NoError(t, producer.Close())
		mockWriter.AssertExpectations(t)
	})

	t.Run("CloseError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newHoldEventProducer(newTestLogger(), mockWriter, "hold.events")
		closeErr := errors.New("kafka close error")
		mockWriter.On("Close").Return(closeErr).Once()

		assert.ErrorIs(t, producer.Close(), closeErr)
	})
}
