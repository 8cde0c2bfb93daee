package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/creditx/hold-service/internal/config"
	"github.com/creditx/hold-service/internal/domain/outbox"
	"github.com/creditx/hold-service/internal/mocks"
	"github.com/creditx/hold-service/internal/platform/clock"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingEvent(id, holdID int64, eventType string) *outbox.Event {
	return &outbox.Event{
		ID:          id,
		EventType:   eventType,
		AggregateID: holdID,
		Payload:     json.RawMessage(`{"holdId":` + strconv.FormatInt(holdID, 10) + `}`),
		Status:      outbox.StatusPending,
		CreatedAt:   testNow.Add(-time.Minute),
	}
}

func TestPoller_Drain(t *testing.T) {
	cfg := &config.OutboxConfig{PollingInterval: time.Second, BatchSize: 10}

	tests := []struct {
		name          string
		setupMocks    func(repo *mocks.OutboxRepository, pub *mocks.EventPublisher, arch *mocks.Archiver, created, expired *outbox.Event)
		expectedError string
	}{
		{
			name: "publishes, marks and archives each event",
			setupMocks: func(repo *mocks.OutboxRepository, pub *mocks.EventPublisher, arch *mocks.Archiver, created, expired *outbox.Event) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Event{created, expired}, nil).Once()
				pub.On("Publish", mock.Anything, "5", []byte(created.Payload), outbox.EventTypeHoldCreated).Return(nil).Once()
				pub.On("Publish", mock.Anything, "6", []byte(expired.Payload), outbox.EventTypeHoldExpired).Return(nil).Once()
				repo.On("MarkPublished", mock.Anything, int64(1), testNow).Return(nil).Once()
				repo.On("MarkPublished", mock.Anything, int64(2), testNow).Return(nil).Once()
				arch.On("Archive", mock.Anything, mock.MatchedBy(func(e *outbox.Event) bool {
					return e.Status == outbox.StatusPublished && e.PublishedAt != nil && e.PublishedAt.Equal(testNow)
				})).Return(nil).Twice()
			},
		},
		{
			name: "publish failure marks the event failed and continues",
			setupMocks: func(repo *mocks.OutboxRepository, pub *mocks.EventPublisher, arch *mocks.Archiver, created, expired *outbox.Event) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Event{created, expired}, nil).Once()
				pub.On("Publish", mock.Anything, "5", mock.Anything, outbox.EventTypeHoldCreated).Return(errors.New("broker down")).Once()
				repo.On("MarkFailed", mock.Anything, int64(1)).Return(nil).Once()
				pub.On("Publish", mock.Anything, "6", mock.Anything, outbox.EventTypeHoldExpired).Return(nil).Once()
				repo.On("MarkPublished", mock.Anything, int64(2), testNow).Return(nil).Once()
				arch.On("Archive", mock.Anything, mock.MatchedBy(func(e *outbox.Event) bool { return e.ID == 2 })).Return(nil).Once()
			},
		},
		{
			name: "archive failure is not fatal",
			setupMocks: func(repo *mocks.OutboxRepository, pub *mocks.EventPublisher, arch *mocks.Archiver, created, expired *outbox.Event) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Event{created}, nil).Once()
				pub.On("Publish", mock.Anything, "5", mock.Anything, mock.Anything).Return(nil).Once()
				repo.On("MarkPublished", mock.Anything, int64(1), testNow).Return(nil).Once()
				arch.On("Archive", mock.Anything, mock.Anything).Return(errors.New("mongo unavailable")).Once()
			},
		},
		{
			name: "mark published failure skips archiving",
			setupMocks: func(repo *mocks.OutboxRepository, pub *mocks.EventPublisher, arch *mocks.Archiver, created, expired *outbox.Event) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Event{created}, nil).Once()
				pub.On("Publish", mock.Anything, "5", mock.Anything, mock.Anything).Return(nil).Once()
				repo.On("MarkPublished", mock.Anything, int64(1), testNow).Return(outbox.ErrEventNotFound{ID: 1}).Once()
			},
		},
		{
			name: "no pending events",
			setupMocks: func(repo *mocks.OutboxRepository, pub *mocks.EventPublisher, arch *mocks.Archiver, created, expired *outbox.Event) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Event{}, nil).Once()
			},
		},
		{
			name: "pending query failure",
			setupMocks: func(repo *mocks.OutboxRepository, pub *mocks.EventPublisher, arch *mocks.Archiver, created, expired *outbox.Event) {
				repo.On("GetPending", mock.Anything, 10).Return(nil, errors.New("db down")).Once()
			},
			expectedError: "failed to get pending outbox events: db down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.OutboxRepository{}
			pub := &mocks.EventPublisher{}
			arch := &mocks.Archiver{}
			created := pendingEvent(1, 5, outbox.EventTypeHoldCreated)
			expired := pendingEvent(2, 6, outbox.EventTypeHoldExpired)
			tt.setupMocks(repo, pub, arch, created, expired)

			poller := NewPoller(cfg, repo, pub, arch, clock.NewFixed(testNow), newTestLogger())
			err := poller.Drain(context.Background())

			if tt.expectedError != "" {
				assert.EqualError(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
			arch.AssertExpectations(t)
		})
	}
}

func TestPoller_DrainWithoutArchiver(t *testing.T) {
	store := mocks.NewMemoryStore()
	require.NoError(t, store.Outbox().Create(context.Background(), pendingEvent(0, 5, outbox.EventTypeHoldCreated)))

	pub := &mocks.EventPublisher{}
	pub.On("Publish", mock.Anything, "5", mock.Anything, outbox.EventTypeHoldCreated).Return(nil).Once()

	poller := NewPoller(&config.OutboxConfig{PollingInterval: time.Second, BatchSize: 10},
		store.Outbox(), pub, nil, clock.NewFixed(testNow), newTestLogger())
	require.NoError(t, poller.Drain(context.Background()))

	events := store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, outbox.StatusPublished, events[0].Status)

	// published events are not picked up again
	require.NoError(t, poller.Drain(context.Background()))
	pub.AssertExpectations(t)
}

func TestPoller_BatchSizeLimitsDrain(t *testing.T) {
	store := mocks.NewMemoryStore()
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, store.Outbox().Create(context.Background(), pendingEvent(0, i, outbox.EventTypeHoldCreated)))
	}

	pub := &mocks.EventPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	poller := NewPoller(&config.OutboxConfig{PollingInterval: time.Second, BatchSize: 2},
		store.Outbox(), pub, nil, clock.NewFixed(testNow), newTestLogger())

	require.NoError(t, poller.Drain(context.Background()))
	pub.AssertNumberOfCalls(t, "Publish", 2)

	require.NoError(t, poller.Drain(context.Background()))
	pub.AssertNumberOfCalls(t, "Publish", 3)
}

func TestPoller_DrainInProgress(t *testing.T) {
	repo := &mocks.OutboxRepository{}
	poller := NewPoller(&config.OutboxConfig{PollingInterval: time.Second, BatchSize: 10},
		repo, &mocks.EventPublisher{}, nil, clock.NewFixed(testNow), newTestLogger())

	poller.mu.Lock()
	err := poller.Drain(context.Background())
	poller.mu.Unlock()

	assert.ErrorIs(t, err, ErrDrainInProgress)
	repo.AssertNotCalled(t, "GetPending", mock.Anything, mock.Anything)
}

func TestPoller_StartStopsOnCancel(t *testing.T) {
	store := mocks.NewMemoryStore()
	require.NoError(t, store.Outbox().Create(context.Background(), pendingEvent(0, 5, outbox.EventTypeHoldCreated)))

	pub := &mocks.EventPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	poller := NewPoller(&config.OutboxConfig{PollingInterval: 5 * time.Millisecond, BatchSize: 10},
		store.Outbox(), pub, nil, clock.NewFixed(testNow), newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return store.OutboxEvents()[0].Status == outbox.StatusPublished
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}
