package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/TheGringo-ai/wrench/pkg/api"
	"github.com/TheGringo-ai/wrench/pkg/directory"
)

func TestAutoAssign_PrefersLeastLoaded(t *testing.T) {
	dir := directory.NewInMemoryDirectory(
		api.Technician{ID: "t1", Skills: []string{"hvac"}, ActiveCount: 5},
		api.Technician{ID: "t2", Skills: []string{"hvac"}, ActiveCount: 2},
	)
	eng, _ := newTestEngine(t, dir, api.EngineOptions{})
	ctx := context.Background()
	wo := mustCreate(t, eng, api.NewWorkOrder{RequiredSkills: []string{"hvac"}})

	got, err := eng.AutoAssign(ctx, wo.ID)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if got.AssigneeID != "t2" {
		t.Fatalf("assignee = %s, want t2 (t1 is at capacity)", got.AssigneeID)
	}
	if got.Status != api.StatusAssigned {
		t.Fatalf("status = %s, want ASSIGNED", got.Status)
	}

	techs, _ := dir.ListTechnicians(ctx)
	for _, tech := range techs {
		if tech.ID == "t2" && tech.ActiveCount != 3 {
			t.Fatalf("t2 active count = %d, want 3", tech.ActiveCount)
		}
	}
}

func TestAutoAssign_ExactSkillMatchWinsTies(t *testing.T) {
	dir := directory.NewInMemoryDirectory(
		api.Technician{ID: "a-generalist", Skills: []string{"hvac", "plumbing", "electrical"}, ActiveCount: 1},
		api.Technician{ID: "z-specialist", Skills: []string{"hvac"}, ActiveCount: 1},
	)
	eng, _ := newTestEngine(t, dir, api.EngineOptions{})
	wo := mustCreate(t, eng, api.NewWorkOrder{RequiredSkills: []string{"hvac"}})

	got, err := eng.AutoAssign(context.Background(), wo.ID)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	// Same load, same skill score: the exact-set match wins even though
	// its ID sorts later.
	if got.AssigneeID != "z-specialist" {
		t.Fatalf("assignee = %s, want z-specialist", got.AssigneeID)
	}
}

func TestAutoAssign_DeterministicIDTieBreak(t *testing.T) {
	dir := directory.NewInMemoryDirectory(
		api.Technician{ID: "t2", Skills: []string{"hvac"}},
		api.Technician{ID: "t1", Skills: []string{"hvac"}},
		api.Technician{ID: "t3", Skills: []string{"hvac"}},
	)
	eng, _ := newTestEngine(t, dir, api.EngineOptions{})
	wo := mustCreate(t, eng, api.NewWorkOrder{RequiredSkills: []string{"hvac"}})

	got, err := eng.AutoAssign(context.Background(), wo.ID)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if got.AssigneeID != "t1" {
		t.Fatalf("assignee = %s, want t1 (lexicographic tie break)", got.AssigneeID)
	}
}

func TestAutoAssign_SkillFiltering(t *testing.T) {
	dir := directory.NewInMemoryDirectory(
		api.Technician{ID: "t1", Skills: []string{"plumbing"}},
		api.Technician{ID: "t2", Skills: []string{"hvac", "electrical"}},
	)
	eng, _ := newTestEngine(t, dir, api.EngineOptions{})
	ctx := context.Background()

	wo := mustCreate(t, eng, api.NewWorkOrder{RequiredSkills: []string{"hvac", "electrical"}})
	got, err := eng.AutoAssign(ctx, wo.ID)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if got.AssigneeID != "t2" {
		t.Fatalf("assignee = %s, want t2", got.AssigneeID)
	}

	// Nobody welds here.
	wo2 := mustCreate(t, eng, api.NewWorkOrder{RequiredSkills: []string{"welding"}})
	_, err = eng.AutoAssign(ctx, wo2.ID)
	if !errors.Is(err, api.ErrNoEligibleTechnician) {
		t.Fatalf("err = %v, want ErrNoEligibleTechnician", err)
	}

	// The failed assignment left the record untouched.
	unchanged, _ := eng.GetWorkOrder(ctx, wo2.ID)
	if unchanged.Status != api.StatusOpen || unchanged.AssigneeID != "" {
		t.Fatalf("record changed on failure: %+v", unchanged)
	}
}

func TestAutoAssign_LegalStatesOnly(t *testing.T) {
	dir := directory.NewInMemoryDirectory(
		api.Technician{ID: "t1", Skills: []string{"hvac"}},
	)
	eng, _ := newTestEngine(t, dir, api.EngineOptions{})
	ctx := context.Background()

	// From OPEN: legal.
	wo := mustCreate(t, eng, api.NewWorkOrder{RequiredSkills: []string{"hvac"}})
	if _, err := eng.AutoAssign(ctx, wo.ID); err != nil {
		t.Fatalf("AutoAssign from OPEN: %v", err)
	}

	// Already assigned: illegal.
	if _, err := eng.AutoAssign(ctx, wo.ID); !errors.Is(err, api.ErrInvalidTransition) {
		t.Fatalf("AutoAssign twice: err = %v, want ErrInvalidTransition", err)
	}

	// From APPROVED: legal.
	wo2 := mustCreate(t, eng, api.NewWorkOrder{RequiredSkills: []string{"hvac"}})
	if _, err := eng.SubmitForApproval(ctx, wo2.ID, []string{"m1"}); err != nil {
		t.Fatalf("SubmitForApproval: %v", err)
	}
	if _, err := eng.Approve(ctx, wo2.ID, "m1", ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := eng.AutoAssign(ctx, wo2.ID); err != nil {
		t.Fatalf("AutoAssign from APPROVED: %v", err)
	}

	// From PENDING_APPROVAL: illegal.
	wo3 := mustCreate(t, eng, api.NewWorkOrder{RequiredSkills: []string{"hvac"}})
	if _, err := eng.SubmitForApproval(ctx, wo3.ID, []string{"m1"}); err != nil {
		t.Fatalf("SubmitForApproval: %v", err)
	}
	if _, err := eng.AutoAssign(ctx, wo3.ID); !errors.Is(err, api.ErrInvalidTransition) {
		t.Fatalf("AutoAssign pending: err = %v, want ErrInvalidTransition", err)
	}
}

func TestAutoAssign_CapacityCapHoldsUnderConcurrency(t *testing.T) {
	dir := directory.NewInMemoryDirectory(
		api.Technician{ID: "t1", Skills: []string{"hvac"}},
	)
	eng, _ := newTestEngine(t, dir, api.EngineOptions{})
	ctx := context.Background()

	// Ten orders race for one technician with five slots.
	const orders = 10
	woIDs := make([]string, orders)
	for i := range woIDs {
		woIDs[i] = mustCreate(t, eng, api.NewWorkOrder{
			Title:          fmt.Sprintf("order %d", i),
			RequiredSkills: []string{"hvac"},
		}).ID
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		assigned int
		rejected int
	)
	for _, id := range woIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := eng.AutoAssign(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				assigned++
			case errors.Is(err, api.ErrNoEligibleTechnician):
				rejected++
			default:
				t.Errorf("AutoAssign(%s): %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	if assigned != api.DefaultMaxActive {
		t.Fatalf("assigned = %d, want %d", assigned, api.DefaultMaxActive)
	}
	if rejected != orders-api.DefaultMaxActive {
		t.Fatalf("rejected = %d, want %d", rejected, orders-api.DefaultMaxActive)
	}

	techs, _ := dir.ListTechnicians(ctx)
	if techs[0].ActiveCount != api.DefaultMaxActive {
		t.Fatalf("active count = %d, cap breached", techs[0].ActiveCount)
	}
}

func TestAutoAssign_MaxActiveIsACeiling(t *testing.T) {
	dir := directory.NewInMemoryDirectory(
		api.Technician{ID: "t1", Skills: []string{"hvac"}},
	)
	eng, _ := newTestEngine(t, dir, api.EngineOptions{MaxActive: 50})
	ctx := context.Background()

	// Options can lower the cap but never raise it past the hard ceiling.
	for i := 0; i < api.DefaultMaxActive; i++ {
		wo := mustCreate(t, eng, api.NewWorkOrder{RequiredSkills: []string{"hvac"}})
		if _, err := eng.AutoAssign(ctx, wo.ID); err != nil {
			t.Fatalf("AutoAssign %d: %v", i, err)
		}
	}
	wo := mustCreate(t, eng, api.NewWorkOrder{RequiredSkills: []string{"hvac"}})
	if _, err := eng.AutoAssign(ctx, wo.ID); !errors.Is(err, api.ErrNoEligibleTechnician) {
		t.Fatalf("AutoAssign past ceiling: err = %v, want ErrNoEligibleTechnician", err)
	}
}

func TestAutoAssign_RuleConstrainsCandidates(t *testing.T) {
	dir := directory.NewInMemoryDirectory(
		api.Technician{ID: "t1", Skills: []string{"hvac"}, ActiveCount: 0},
		api.Technician{ID: "t2", Skills: []string{"hvac", "emergency-response"}, ActiveCount: 3},
	)
	eng, _ := newTestEngine(t, dir, api.EngineOptions{
		Rules: []api.AssignmentRule{
			{
				ID:         "r1",
				Name:       "critical goes to responders",
				Priorities: []api.Priority{api.PriorityCritical},
				SkillsAny:  []string{"emergency-response"},
				MaxActive:  4,
				Rank:       1,
				Active:     true,
			},
		},
	})
	ctx := context.Background()

	// Critical order: the rule filters t1 out despite its lighter load.
	wo := mustCreate(t, eng, api.NewWorkOrder{
		Priority:       api.PriorityCritical,
		RequiredSkills: []string{"hvac"},
	})
	got, err := eng.AutoAssign(ctx, wo.ID)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if got.AssigneeID != "t2" {
		t.Fatalf("assignee = %s, want t2 (rule-constrained)", got.AssigneeID)
	}

	// The rule's MaxActive=4 now excludes t2 as well.
	wo2 := mustCreate(t, eng, api.NewWorkOrder{
		Priority:       api.PriorityCritical,
		RequiredSkills: []string{"hvac"},
	})
	_, err = eng.AutoAssign(ctx, wo2.ID)
	if !errors.Is(err, api.ErrNoEligibleTechnician) {
		t.Fatalf("err = %v, want ErrNoEligibleTechnician", err)
	}

	// Medium order: the rule does not match, t1 is fine.
	wo3 := mustCreate(t, eng, api.NewWorkOrder{RequiredSkills: []string{"hvac"}})
	got, err = eng.AutoAssign(ctx, wo3.ID)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if got.AssigneeID != "t1" {
		t.Fatalf("assignee = %s, want t1", got.AssigneeID)
	}
}

func TestAssignmentRuleRegistry(t *testing.T) {
	eng, _ := newTestEngine(t, nil, api.EngineOptions{})

	if err := eng.PutAssignmentRule(api.AssignmentRule{Name: "no id"}); err == nil {
		t.Fatalf("expected error for rule without ID")
	}
	if err := eng.PutAssignmentRule(api.AssignmentRule{ID: "r2", Name: "b", Rank: 2, Active: true}); err != nil {
		t.Fatalf("PutAssignmentRule: %v", err)
	}
	if err := eng.PutAssignmentRule(api.AssignmentRule{ID: "r1", Name: "a", Rank: 1, Active: true}); err != nil {
		t.Fatalf("PutAssignmentRule: %v", err)
	}

	rules := eng.ListAssignmentRules()
	if len(rules) != 2 || rules[0].ID != "r1" || rules[1].ID != "r2" {
		t.Fatalf("rules out of order: %+v", rules)
	}

	// Replace by ID.
	if err := eng.PutAssignmentRule(api.AssignmentRule{ID: "r1", Name: "a2", Rank: 1}); err != nil {
		t.Fatalf("PutAssignmentRule: %v", err)
	}
	rules = eng.ListAssignmentRules()
	if len(rules) != 2 || rules[0].Name != "a2" {
		t.Fatalf("replace failed: %+v", rules)
	}
}

func TestRankCandidates(t *testing.T) {
	required := []string{"hvac"}
	cands := []*api.Technician{
		{ID: "c", Skills: []string{"hvac", "plumbing"}, ActiveCount: 1},
		{ID: "b", Skills: []string{"hvac"}, ActiveCount: 1},
		{ID: "a", Skills: []string{"hvac"}, ActiveCount: 2},
	}
	ranked := rankCandidates(cands, required)

	want := []string{"b", "c", "a"}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Fatalf("ranked[%d] = %s, want %s (full order %v)", i, ranked[i].ID, id, ids3(ranked))
		}
	}
}

func ids3(ts []*api.Technician) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}
