package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// ruleRegistry holds assignment rules in memory. Rules are configuration,
// not state: they are seeded from EngineOptions and mutated via
// PutAssignmentRule, while work order state stays in the durable store.
type ruleRegistry struct {
	mu   sync.RWMutex
	byID map[string]api.AssignmentRule
}

func newRuleRegistry(seed []api.AssignmentRule) (*ruleRegistry, error) {
	r := &ruleRegistry{byID: make(map[string]api.AssignmentRule)}
	for _, rule := range seed {
		if err := r.Put(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *ruleRegistry) Put(rule api.AssignmentRule) error {
	if rule.ID == "" {
		return fmt.Errorf("assignment rule ID is required")
	}
	if rule.Name == "" {
		return fmt.Errorf("assignment rule %q: name is required", rule.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[rule.ID] = rule
	return nil
}

// List returns all rules ordered by Rank, then Name.
func (r *ruleRegistry) List() []api.AssignmentRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]api.AssignmentRule, 0, len(r.byID))
	for _, rule := range r.byID {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Match returns the first active rule applying to the given priority, in
// Rank-then-Name order, or nil when no rule matches.
func (r *ruleRegistry) Match(p api.Priority) *api.AssignmentRule {
	for _, rule := range r.List() {
		if rule.Matches(p) {
			return &rule
		}
	}
	return nil
}
