// Package mocks provides testify mocks of the domain repositories and
// messaging ports shared by the service tests.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/creditx/hold-service/internal/domain/hold"
	"github.com/creditx/hold-service/internal/domain/outbox"
	"github.com/creditx/hold-service/internal/domain/processedevent"
)

// TxRunner runs fn with a nil transaction and counts the calls
type TxRunner struct {
	mu    sync.Mutex
	Calls int
}

func (r *TxRunner) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	r.mu.Lock()
	r.Calls++
	r.mu.Unlock()
	return fn(nil)
}

// HoldRepository mocks hold.Repository. WithTx returns the receiver.
type HoldRepository struct {
	mock.Mock
}

var _ hold.Repository = (*HoldRepository)(nil)

func (m *HoldRepository) Create(ctx context.Context, h *hold.Hold) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *HoldRepository) GetByID(ctx context.Context, id int64) (*hold.Hold, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hold.Hold), args.Error(1)
}

func (m *HoldRepository) GetByTransactionID(ctx context.Context, transactionID int64) (*hold.Hold, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hold.Hold), args.Error(1)
}

func (m *HoldRepository) LockTransaction(ctx context.Context, transactionID int64) error {
	args := m.Called(ctx, transactionID)
	return args.Error(0)
}

func (m *HoldRepository) LockByID(ctx context.Context, id int64) (*hold.Hold, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hold.Hold), args.Error(1)
}

func (m *HoldRepository) UpdateStatus(ctx context.Context, id int64, status hold.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *HoldRepository) FindExpired(ctx context.Context, status hold.Status, cutoff time.Time) ([]*hold.Hold, error) {
	args := m.Called(ctx, status, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*hold.Hold), args.Error(1)
}

func (m *HoldRepository) WithTx(_ pgx.Tx) hold.Repository {
	return m
}

// OutboxRepository mocks outbox.Repository. WithTx returns the receiver.
type OutboxRepository struct {
	mock.Mock
}

var _ outbox.Repository = (*OutboxRepository)(nil)

func (m *OutboxRepository) Create(ctx context.Context, event *outbox.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Event, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Event), args.Error(1)
}

func (m *OutboxRepository) MarkPublished(ctx context.Context, id int64, publishedAt time.Time) error {
	args := m.Called(ctx, id, publishedAt)
	return args.Error(0)
}

func (m *OutboxRepository) MarkFailed(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *OutboxRepository) ListByAggregateID(ctx context.Context, aggregateID int64) ([]*outbox.Event, error) {
	args := m.Called(ctx, aggregateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Event), args.Error(1)
}

func (m *OutboxRepository) WithTx(_ pgx.Tx) outbox.Repository {
	return m
}

// ProcessedEventRepository mocks processedevent.Repository. WithTx returns the receiver.
type ProcessedEventRepository struct {
	mock.Mock
}

var _ processedevent.Repository = (*ProcessedEventRepository)(nil)

func (m *ProcessedEventRepository) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *ProcessedEventRepository) IsPayloadProcessed(ctx context.Context, payloadHash string) (bool, error) {
	args := m.Called(ctx, payloadHash)
	return args.Bool(0), args.Error(1)
}

func (m *ProcessedEventRepository) Create(ctx context.Context, event *processedevent.ProcessedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *ProcessedEventRepository) WithTx(_ pgx.Tx) processedevent.Repository {
	return m
}

// FraudChecker mocks hold.FraudChecker
type FraudChecker struct {
	mock.Mock
}

func (m *FraudChecker) Check(ctx context.Context, req *hold.CreateRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// EventPublisher mocks the hold event producer
type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) Publish(ctx context.Context, key string, payload []byte, eventType string) error {
	args := m.Called(ctx, key, payload, eventType)
	return args.Error(0)
}

func (m *EventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// DeadLetterPublisher mocks the DLQ producer
type DeadLetterPublisher struct {
	mock.Mock
}

func (m *DeadLetterPublisher) PublishToDLQ(ctx context.Context, sourceTopic, key string, value []byte, reason string) error {
	args := m.Called(ctx, sourceTopic, key, value, reason)
	return args.Error(0)
}

func (m *DeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Archiver mocks outbox.Archiver
type Archiver struct {
	mock.Mock
}

func (m *Archiver) Archive(ctx context.Context, event *outbox.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
