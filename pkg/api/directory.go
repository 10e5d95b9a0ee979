package api

import (
	"context"
	"errors"
)

// ErrTechnicianNotFound is returned by directory operations when the given
// technician ID is unknown.
var ErrTechnicianNotFound = errors.New("technician not found")

// Technician is a directory entry the engine can assign work to.
type Technician struct {
	ID   string
	Name string

	// Skills the technician holds. Matching is exact string comparison.
	Skills []string

	// ActiveCount is the number of currently assigned, unfinished work
	// orders. Maintained through Reserve/Release.
	ActiveCount int
}

// HasSkills reports whether the technician holds every skill in want.
// An empty want matches everyone.
func (t *Technician) HasSkills(want []string) bool {
	for _, w := range want {
		found := false
		for _, s := range t.Skills {
			if s == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// TechnicianDirectory is the engine's view of the technician roster and
// their workload counters. Implementations must make Reserve an atomic
// check-and-increment so two concurrent assignments can never push a
// technician past the cap.
type TechnicianDirectory interface {
	// ListTechnicians returns the current roster with live active counts.
	ListTechnicians(ctx context.Context) ([]*Technician, error)

	// Reserve increments the technician's active count if and only if it
	// is currently below limit. It returns (true, nil) when the slot was
	// taken, (false, nil) when the technician is at or over the limit.
	// Losing a reservation race is not an error.
	Reserve(ctx context.Context, technicianID string, limit int) (bool, error)

	// Release decrements the technician's active count, not going below
	// zero. Releasing an unknown technician returns
	// ErrTechnicianNotFound.
	Release(ctx context.Context, technicianID string) error
}
