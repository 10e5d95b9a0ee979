package persistence

import (
	"context"
	"sync"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// EventStore is an append-only history store for work order events.
type EventStore interface {
	AppendEvent(ctx context.Context, ev api.WorkOrderEvent) error
	ListEvents(ctx context.Context, workOrderID string) ([]api.WorkOrderEvent, error)
}

// NoopEventStore discards all events.
type NoopEventStore struct{}

func (NoopEventStore) AppendEvent(ctx context.Context, ev api.WorkOrderEvent) error { return nil }
func (NoopEventStore) ListEvents(ctx context.Context, workOrderID string) ([]api.WorkOrderEvent, error) {
	return nil, nil
}

// InMemoryEventStore keeps the event trail in process memory, in append
// order per work order.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[string][]api.WorkOrderEvent
}

var _ EventStore = (*InMemoryEventStore)(nil)

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[string][]api.WorkOrderEvent)}
}

func (s *InMemoryEventStore) AppendEvent(ctx context.Context, ev api.WorkOrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[ev.WorkOrderID] = append(s.events[ev.WorkOrderID], ev)
	return nil
}

func (s *InMemoryEventStore) ListEvents(ctx context.Context, workOrderID string) ([]api.WorkOrderEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.events[workOrderID]
	out := make([]api.WorkOrderEvent, len(evs))
	copy(out, evs)
	return out, nil
}
