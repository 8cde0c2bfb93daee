package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/creditx/hold-service/internal/domain/hold"
	"github.com/creditx/hold-service/internal/domain/outbox"
	"github.com/creditx/hold-service/internal/domain/processedevent"
)

// MemoryStore keeps holds, outbox events and processed events in maps. It has
// no rollback, so it suits flows whose transactions succeed.
type MemoryStore struct {
	mu        sync.Mutex
	holds     map[int64]*hold.Hold
	events    []*outbox.Event
	processed []*processedevent.ProcessedEvent
	nextID    int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{holds: make(map[int64]*hold.Hold)}
}

func (s *MemoryStore) Holds() hold.Repository { return memHolds{s} }
func (s *MemoryStore) Outbox() outbox.Repository { return memOutbox{s} }
func (s *MemoryStore) Processed() processedevent.Repository { return memProcessed{s} }

// Hold returns a copy of the stored hold
func (s *MemoryStore) Hold(id int64) hold.Hold {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.holds[id]
}

// PutHold stores h as is, keeping its id
func (s *MemoryStore) PutHold(h hold.Hold) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[h.ID] = &h
	if h.ID > s.nextID {
		s.nextID = h.ID
	}
}

func (s *MemoryStore) OutboxEvents() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]outbox.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, *e)
	}
	return out
}

func (s *MemoryStore) ProcessedEvents() []processedevent.ProcessedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]processedevent.ProcessedEvent, 0, len(s.processed))
	for _, e := range s.processed {
		out = append(out, *e)
	}
	return out
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

type memHolds struct{ s *MemoryStore }

func (r memHolds) Create(_ context.Context, h *hold.Hold) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h.ID = r.s.id()
	cp := *h
	r.s.holds[h.ID] = &cp
	return nil
}

// LockTransaction is a no-op; MemoryStore has no transactions to scope a lock to.
func (memHolds) LockTransaction(context.Context, int64) error { return nil }

func (r memHolds) GetByID(_ context.Context, id int64) (*hold.Hold, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.holds[id]
	if !ok {
		return nil, hold.ErrHoldNotFound{HoldID: id}
	}
	cp := *h
	return &cp, nil
}

func (r memHolds) GetByTransactionID(_ context.Context, transactionID int64) (*hold.Hold, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *hold.Hold
	for _, h := range r.s.holds {
		if h.TransactionID == transactionID && (found == nil || h.ID < found.ID) {
			found = h
		}
	}
	if found == nil {
		return nil, nil
	}
	cp := *found
	return &cp, nil
}

func (r memHolds) LockByID(ctx context.Context, id int64) (*hold.Hold, error) {
	return r.GetByID(ctx, id)
}

func (r memHolds) UpdateStatus(_ context.Context, id int64, status hold.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.holds[id]
	if !ok {
		return hold.ErrHoldNotFound{HoldID: id}
	}
	h.Status = status
	return nil
}

func (r memHolds) FindExpired(_ context.Context, status hold.Status, cutoff time.Time) ([]*hold.Hold, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*hold.Hold
	for _, h := range r.s.holds {
		if h.Status == status && h.ExpiresAt.Before(cutoff) {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (r memHolds) WithTx(_ pgx.Tx) hold.Repository { return r }

type memOutbox struct{ s *MemoryStore }

func (r memOutbox) Create(_ context.Context, event *outbox.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = int64(len(r.s.events) + 1)
	cp := *event
	r.s.events = append(r.s.events, &cp)
	return nil
}

func (r memOutbox) GetPending(_ context.Context, limit int) ([]*outbox.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*outbox.Event
	for _, e := range r.s.events {
		if e.Status == outbox.StatusPending && len(out) < limit {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memOutbox) MarkPublished(_ context.Context, id int64, publishedAt time.Time) error {
	return r.mark(id, func(e *outbox.Event) { e.MarkAsPublished(publishedAt) })
}

func (r memOutbox) MarkFailed(_ context.Context, id int64) error {
	return r.mark(id, func(e *outbox.Event) { e.MarkAsFailed() })
}

func (r memOutbox) mark(id int64, fn func(e *outbox.Event)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.events {
		if e.ID == id && e.Status == outbox.StatusPending {
			fn(e)
			return nil
		}
	}
	return outbox.ErrEventNotFound{ID: id}
}

func (r memOutbox) ListByAggregateID(_ context.Context, aggregateID int64) ([]*outbox.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*outbox.Event
	for _, e := range r.s.events {
		if e.AggregateID == aggregateID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memOutbox) WithTx(_ pgx.Tx) outbox.Repository { return r }

type memProcessed struct{ s *MemoryStore }

func (r memProcessed) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.processed {
		if e.EventID == eventID && e.Status == processedevent.StatusSuccess {
			return true, nil
		}
	}
	return false, nil
}

func (r memProcessed) IsPayloadProcessed(_ context.Context, payloadHash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.processed {
		if e.PayloadHash == payloadHash {
			return true, nil
		}
	}
	return false, nil
}

func (r memProcessed) Create(_ context.Context, event *processedevent.ProcessedEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if event.Status == processedevent.StatusSuccess {
		for _, e := range r.s.processed {
			if e.Status == processedevent.StatusSuccess &&
				(e.EventID == event.EventID || e.PayloadHash == event.PayloadHash) {
				return processedevent.ErrAlreadyProcessed
			}
		}
	}
	event.ID = int64(len(r.s.processed) + 1)
	cp := *event
	r.s.processed = append(r.s.processed, &cp)
	return nil
}

func (r memProcessed) WithTx(_ pgx.Tx) processedevent.Repository { return r }
