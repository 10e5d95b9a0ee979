package wrench_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/TheGringo-ai/wrench"
	"github.com/TheGringo-ai/wrench/pkg/directory"
)

// Example_approvalFlow walks a work order through the unanimous-approval
// gate with an in-memory engine.
func Example_approvalFlow() {
	ctx := context.Background()

	eng := wrench.NewInMemoryEngine(directory.NewInMemoryDirectory())

	wo, err := wrench.CreateWorkOrder(ctx, eng, wrench.NewWorkOrderRequest{
		Title:    "compressor rattling",
		Priority: wrench.PriorityHigh,
	})
	if err != nil {
		log.Fatal(err)
	}

	wo, _ = wrench.SubmitForApproval(ctx, eng, wo.ID, []string{"maria", "sam"})
	fmt.Println("after submit:", wo.Status)

	wo, _ = wrench.Approve(ctx, eng, wo.ID, "maria", "parts are budgeted")
	fmt.Println("after first approval:", wo.Status)

	wo, _ = wrench.Approve(ctx, eng, wo.ID, "sam", "")
	fmt.Println("after second approval:", wo.Status)

	// Output:
	// after submit: PENDING_APPROVAL
	// after first approval: PENDING_APPROVAL
	// after second approval: APPROVED
}

// Example_autoAssign shows capacity-aware technician selection.
func Example_autoAssign() {
	ctx := context.Background()

	dir := directory.NewInMemoryDirectory(
		wrench.Technician{ID: "t1", Name: "Ana", Skills: []string{"hvac"}, ActiveCount: 4},
		wrench.Technician{ID: "t2", Name: "Bo", Skills: []string{"hvac", "electrical"}, ActiveCount: 1},
	)
	eng := wrench.NewInMemoryEngine(dir)

	wo, err := wrench.CreateWorkOrder(ctx, eng, wrench.NewWorkOrderRequest{
		Title:          "replace condenser fan",
		RequiredSkills: []string{"hvac"},
	})
	if err != nil {
		log.Fatal(err)
	}

	wo, err = wrench.AutoAssign(ctx, eng, wo.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("assigned to:", wo.AssigneeID)

	// Output:
	// assigned to: t2
}

// Example_localRunner runs the background escalation sweep in-process.
func Example_localRunner() {
	ctx := context.Background()

	runner := wrench.NewLocalRunner(directory.NewInMemoryDirectory())

	wo, err := runner.Engine.CreateWorkOrder(ctx, wrench.NewWorkOrderRequest{Title: "fix pump"})
	if err != nil {
		log.Fatal(err)
	}
	if _, err := runner.Engine.SetSLA(ctx, wo.ID, "gold", 30, 240); err != nil {
		log.Fatal(err)
	}

	if err := runner.Start(ctx, time.Minute); err != nil {
		log.Fatal(err)
	}
	defer runner.Stop()

	status, err := runner.Engine.SLAStatus(ctx, wo.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("sla:", status.Name, "respond due in:", status.FirstResponseDueInMins)

	// Output:
	// sla: gold respond due in: 30
}
