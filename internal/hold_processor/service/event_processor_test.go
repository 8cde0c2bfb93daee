package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/creditx/hold-service/internal/domain/hold"
	"github.com/creditx/hold-service/internal/domain/processedevent"
	"github.com/creditx/hold-service/internal/domain/shared"
	"github.com/creditx/hold-service/internal/mocks"
	"github.com/creditx/hold-service/internal/platform/clock"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

const postedEventID = "transaction.posted-100-up-1"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postedEvent() *shared.TransactionEvent {
	return &shared.TransactionEvent{
		Kind:          shared.EventTransactionPosted,
		UpstreamID:    "up-1",
		TransactionID: 100,
		HoldID:        5,
		Payload:       []byte(`{"transactionId":100,"holdId":5}`),
	}
}

func authorizedHold(status hold.Status) *hold.Hold {
	return &hold.Hold{
		ID:            5,
		TransactionID: 100,
		AccountID:     1,
		Amount:        decimal.RequireFromString("250.00"),
		Status:        status,
		ExpiresAt:     testNow.Add(time.Hour),
	}
}

func isSuccess(e *processedevent.ProcessedEvent) bool {
	return e.Status == processedevent.StatusSuccess && e.EventID == postedEventID && len(e.PayloadHash) == 64
}

func isFailure(e *processedevent.ProcessedEvent) bool {
	return e.Status == processedevent.StatusFailed && e.EventID == postedEventID && e.PayloadHash == ""
}

func TestEventProcessor_ProcessEvent(t *testing.T) {
	tests := []struct {
		name          string
		event         func() *shared.TransactionEvent
		setupMocks    func(holds *mocks.HoldRepository, ledger *mocks.ProcessedEventRepository)
		expectedError error
		expectedTx    int
	}{
		{
			name:  "posted captures an authorized hold",
			event: postedEvent,
			setupMocks: func(holds *mocks.HoldRepository, ledger *mocks.ProcessedEventRepository) {
				ledger.On("IsEventProcessed", mock.Anything, postedEventID).Return(false, nil).Once()
				ledger.On("IsPayloadProcessed", mock.Anything, mock.Anything).Return(false, nil).Twice()
				holds.On("LockByID", mock.Anything, int64(5)).Return(authorizedHold(hold.StatusAuthorized), nil).Once()
				holds.On("UpdateStatus", mock.Anything, int64(5), hold.StatusCaptured).Return(nil).Once()
				ledger.On("Create", mock.Anything, mock.MatchedBy(isSuccess)).Return(nil).Once()
			},
			expectedTx: 1,
		},
		{
			name: "late authorization resurrects a voided hold",
			event: func() *shared.TransactionEvent {
				e := postedEvent()
				e.Kind = shared.EventTransactionAuthorized
				return e
			},
			setupMocks: func(holds *mocks.HoldRepository, ledger *mocks.ProcessedEventRepository) {
				ledger.On("IsEventProcessed", mock.Anything, "transaction.authorized-100-up-1").Return(false, nil).Once()
				ledger.On("IsPayloadProcessed", mock.Anything, mock.Anything).Return(false, nil).Twice()
				holds.On("LockByID", mock.Anything, int64(5)).Return(authorizedHold(hold.StatusVoided), nil).Once()
				holds.On("UpdateStatus", mock.Anything, int64(5), hold.StatusCaptured).Return(nil).Once()
				ledger.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
			},
			expectedTx: 1,
		},
		{
			name:  "no-op transition still records success",
			event: postedEvent,
			setupMocks: func(holds *mocks.HoldRepository, ledger *mocks.ProcessedEventRepository) {
				ledger.On("IsEventProcessed", mock.Anything, postedEventID).Return(false, nil).Once()
				ledger.On("IsPayloadProcessed", mock.Anything, mock.Anything).Return(false, nil).Twice()
				holds.On("LockByID", mock.Anything, int64(5)).Return(authorizedHold(hold.StatusExpired), nil).Once()
				ledger.On("Create", mock.Anything, mock.MatchedBy(isSuccess)).Return(nil).Once()
			},
			expectedTx: 1,
		},
		{
			name:  "processed event id is skipped",
			event: postedEvent,
			setupMocks: func(holds *mocks.HoldRepository, ledger *mocks.ProcessedEventRepository) {
				ledger.On("IsEventProcessed", mock.Anything, postedEventID).Return(true, nil).Once()
			},
		},
		{
			name:  "processed payload is skipped",
			event: postedEvent,
			setupMocks: func(holds *mocks.HoldRepository, ledger *mocks.ProcessedEventRepository) {
				ledger.On("IsEventProcessed", mock.Anything, postedEventID).Return(false, nil).Once()
				ledger.On("IsPayloadProcessed", mock.Anything, mock.Anything).Return(true, nil).Once()
			},
		},
		{
			name:  "payload committed while waiting for the lock",
			event: postedEvent,
			setupMocks: func(holds *mocks.HoldRepository, ledger *mocks.ProcessedEventRepository) {
				ledger.On("IsEventProcessed", mock.Anything, postedEventID).Return(false, nil).Once()
				ledger.On("IsPayloadProcessed", mock.Anything, mock.Anything).Return(false, nil).Once()
				holds.On("LockByID", mock.Anything, int64(5)).Return(authorizedHold(hold.StatusCaptured), nil).Once()
				ledger.On("IsPayloadProcessed", mock.Anything, mock.Anything).Return(true, nil).Once()
			},
			expectedTx: 1,
		},
		{
			name:  "unique violation on success row is a duplicate",
			event: postedEvent,
			setupMocks: func(holds *mocks.HoldRepository, ledger *mocks.ProcessedEventRepository) {
				ledger.On("IsEventProcessed", mock.Anything, postedEventID).Return(false, nil).Once()
				ledger.On("IsPayloadProcessed", mock.Anything, mock.Anything).Return(false, nil).Twice()
				holds.On("LockByID", mock.Anything, int64(5)).Return(authorizedHold(hold.StatusAuthorized), nil).Once()
				holds.On("UpdateStatus", mock.Anything, int64(5), hold.StatusCaptured).Return(nil).Once()
				ledger.On("Create", mock.Anything, mock.MatchedBy(isSuccess)).Return(processedevent.ErrAlreadyProcessed).Once()
			},
			expectedTx: 1,
		},
		{
			name:  "missing hold records a failure",
			event: postedEvent,
			setupMocks: func(holds *mocks.HoldRepository, ledger *mocks.ProcessedEventRepository) {
				ledger.On("IsEventProcessed", mock.Anything, postedEventID).Return(false, nil).Once()
				ledger.On("IsPayloadProcessed", mock.Anything, mock.Anything).Return(false, nil).Once()
				holds.On("LockByID", mock.Anything, int64(5)).Return(nil, hold.ErrHoldNotFound{HoldID: 5}).Once()
				ledger.On("Create", mock.Anything, mock.MatchedBy(isFailure)).Return(nil).Once()
			},
			expectedError: hold.ErrHoldNotFound{HoldID: 5},
			expectedTx:    1,
		},
		{
			name:  "update failure records a failure",
			event: postedEvent,
			setupMocks: func(holds *mocks.HoldRepository, ledger *mocks.ProcessedEventRepository) {
				ledger.On("IsEventProcessed", mock.Anything, postedEventID).Return(false, nil).Once()
				ledger.On("IsPayloadProcessed", mock.Anything, mock.Anything).Return(false, nil).Twice()
				holds.On("LockByID", mock.Anything, int64(5)).Return(authorizedHold(hold.StatusAuthorized), nil).Once()
				holds.On("UpdateStatus", mock.Anything, int64(5), hold.StatusCaptured).Return(errConnReset).Once()
				ledger.On("Create", mock.Anything, mock.MatchedBy(isFailure)).Return(nil).Once()
			},
			expectedError: errConnReset,
			expectedTx:    1,
		},
		{
			name: "malformed payload records a failure",
			event: func() *shared.TransactionEvent {
				e := postedEvent()
				e.Payload = []byte(`{"holdId":5} trailing`)
				return e
			},
			setupMocks: func(holds *mocks.HoldRepository, ledger *mocks.ProcessedEventRepository) {
				ledger.On("IsEventProcessed", mock.Anything, postedEventID).Return(false, nil).Once()
				ledger.On("Create", mock.Anything, mock.MatchedBy(isFailure)).Return(nil).Once()
			},
			expectedError: shared.ErrPayloadNormalization,
		},
		{
			name:  "failure row write error keeps the original error",
			event: postedEvent,
			setupMocks: func(holds *mocks.HoldRepository, ledger *mocks.ProcessedEventRepository) {
				ledger.On("IsEventProcessed", mock.Anything, postedEventID).Return(false, errConnReset).Once()
				ledger.On("Create", mock.Anything, mock.MatchedBy(isFailure)).Return(errors.New("db down")).Once()
			},
			expectedError: errConnReset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mocks.TxRunner{}
			holds := &mocks.HoldRepository{}
			ledger := &mocks.ProcessedEventRepository{}
			tt.setupMocks(holds, ledger)

			processor := NewEventProcessor(newTestLogger(), runner, holds, ledger, clock.NewFixed(testNow))
			err := processor.ProcessEvent(context.Background(), tt.event())

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedTx, runner.Calls)
			holds.AssertExpectations(t)
			ledger.AssertExpectations(t)
		})
	}
}

var errConnReset = errors.New("connection reset by peer")

func TestEventProcessor_UnknownKind(t *testing.T) {
	runner := &mocks.TxRunner{}
	ledger := &mocks.ProcessedEventRepository{}
	processor := NewEventProcessor(newTestLogger(), runner, &mocks.HoldRepository{}, ledger, clock.NewFixed(testNow))

	event := postedEvent()
	event.Kind = "transaction.initiated"

	err := processor.ProcessEvent(context.Background(), event)
	assert.ErrorIs(t, err, hold.ErrUnknownSignal)
	assert.Equal(t, 0, runner.Calls)
	ledger.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEventProcessor_PayloadHashIgnoresKeyOrder(t *testing.T) {
	var hashes []string
	ledger := &mocks.ProcessedEventRepository{}
	ledger.On("IsEventProcessed", mock.Anything, mock.Anything).Return(false, nil)
	ledger.On("IsPayloadProcessed", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		hashes = append(hashes, args.String(1))
	}).Return(true, nil)

	processor := NewEventProcessor(newTestLogger(), &mocks.TxRunner{}, &mocks.HoldRepository{}, ledger, clock.NewFixed(testNow))

	first := postedEvent()
	first.Payload = []byte(`{"transactionId":100,"holdId":5,"amount":250.00}`)
	second := postedEvent()
	second.Payload = []byte(`{ "amount": 250.00, "holdId": 5, "transactionId": 100 }`)

	require.NoError(t, processor.ProcessEvent(context.Background(), first))
	require.NoError(t, processor.ProcessEvent(context.Background(), second))

	require.Len(t, hashes, 2)
	assert.Equal(t, hashes[0], hashes[1])
}
