package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe implementation of
// WorkOrderStore backed by maps.
//
// It stores and returns clones, so a pointer handed to a caller is never
// aliased to the stored record.
type InMemoryStore struct {
	mu         sync.RWMutex
	workorders map[string]*api.WorkOrder
	leases     map[string]memoryLease
}

type memoryLease struct {
	owner     string
	expiresAt time.Time
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		workorders: make(map[string]*api.WorkOrder),
		leases:     make(map[string]memoryLease),
	}
}

// Ensure InMemoryStore implements the interface.
var _ WorkOrderStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveWorkOrder(wo *api.WorkOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workorders[wo.ID] = wo.Clone()
	return nil
}

func (s *InMemoryStore) UpdateWorkOrder(wo *api.WorkOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workorders[wo.ID]; !ok {
		return ErrWorkOrderNotFound
	}

	s.workorders[wo.ID] = wo.Clone()
	return nil
}

func (s *InMemoryStore) GetWorkOrder(id string) (*api.WorkOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wo, ok := s.workorders[id]
	if !ok {
		return nil, ErrWorkOrderNotFound
	}

	return wo.Clone(), nil
}

func (s *InMemoryStore) ListWorkOrders(filter Filter) ([]*api.WorkOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.WorkOrder

	for _, wo := range s.workorders {
		if !filter.Match(wo) {
			continue
		}
		result = append(result, wo.Clone())
	}

	return result, nil
}

func (s *InMemoryStore) TryAcquireLease(ctx context.Context, workOrderID, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	lease, ok := s.leases[workOrderID]
	if ok && lease.owner != owner && now.Before(lease.expiresAt) {
		return false, nil
	}

	s.leases[workOrderID] = memoryLease{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *InMemoryStore) RenewLease(ctx context.Context, workOrderID, owner string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	lease, ok := s.leases[workOrderID]
	if !ok || lease.owner != owner || !now.Before(lease.expiresAt) {
		return api.ErrWorkOrderLocked
	}

	lease.expiresAt = now.Add(ttl)
	s.leases[workOrderID] = lease
	return nil
}

func (s *InMemoryStore) ReleaseLease(ctx context.Context, workOrderID, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lease, ok := s.leases[workOrderID]
	if !ok {
		return nil
	}
	if lease.owner != owner && time.Now().Before(lease.expiresAt) {
		return api.ErrWorkOrderLocked
	}

	delete(s.leases, workOrderID)
	return nil
}
