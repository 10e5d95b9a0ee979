package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// InMemoryDirectory is a goroutine-safe technician roster backed by a map.
// Reserve and Release mutate the counters under one mutex, which makes the
// check-and-increment trivially atomic.
type InMemoryDirectory struct {
	mu    sync.RWMutex
	techs map[string]*api.Technician
}

var _ api.TechnicianDirectory = (*InMemoryDirectory)(nil)

// NewInMemoryDirectory creates a roster seeded with the given technicians.
func NewInMemoryDirectory(techs ...api.Technician) *InMemoryDirectory {
	d := &InMemoryDirectory{techs: make(map[string]*api.Technician, len(techs))}
	for _, t := range techs {
		d.put(t)
	}
	return d
}

// Put adds or replaces a technician entry. Updating an existing entry keeps
// its live ActiveCount: roster refreshes never reset in-flight reservations.
func (d *InMemoryDirectory) Put(t api.Technician) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.put(t)
}

func (d *InMemoryDirectory) put(t api.Technician) {
	cp := t
	cp.Skills = append([]string(nil), t.Skills...)
	if old, ok := d.techs[t.ID]; ok {
		cp.ActiveCount = old.ActiveCount
	}
	d.techs[t.ID] = &cp
}

func (d *InMemoryDirectory) ListTechnicians(ctx context.Context) ([]*api.Technician, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*api.Technician, 0, len(d.techs))
	for _, t := range d.techs {
		cp := *t
		cp.Skills = append([]string(nil), t.Skills...)
		out = append(out, &cp)
	}
	return out, nil
}

func (d *InMemoryDirectory) Reserve(ctx context.Context, technicianID string, limit int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.techs[technicianID]
	if !ok {
		return false, fmt.Errorf("%w: %s", api.ErrTechnicianNotFound, technicianID)
	}
	if t.ActiveCount >= limit {
		return false, nil
	}
	t.ActiveCount++
	return true, nil
}

func (d *InMemoryDirectory) Release(ctx context.Context, technicianID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.techs[technicianID]
	if !ok {
		return fmt.Errorf("%w: %s", api.ErrTechnicianNotFound, technicianID)
	}
	if t.ActiveCount > 0 {
		t.ActiveCount--
	}
	return nil
}
