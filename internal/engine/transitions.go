package engine

import "github.com/TheGringo-ai/wrench/pkg/api"

// transitions is the status graph. A work order's status only ever changes
// along these edges; every mutating operation checks here before committing.
var transitions = map[api.Status]map[api.Status]bool{
	api.StatusOpen: {
		api.StatusPendingApproval: true,
		api.StatusAssigned:        true,
		api.StatusCancelled:       true,
	},
	api.StatusPendingApproval: {
		api.StatusApproved:  true,
		api.StatusRejected:  true,
		api.StatusCancelled: true,
	},
	api.StatusApproved: {
		api.StatusAssigned:  true,
		api.StatusCancelled: true,
	},
	api.StatusAssigned: {
		api.StatusInProgress: true,
		api.StatusCancelled:  true,
	},
	api.StatusInProgress: {
		api.StatusCompleted: true,
		api.StatusOnHold:    true,
		api.StatusCancelled: true,
	},
	api.StatusOnHold: {
		api.StatusInProgress: true,
		api.StatusCancelled:  true,
	},
}

// canTransition reports whether the graph allows moving from one status to
// another. Terminal statuses have no outgoing edges.
func canTransition(from, to api.Status) bool {
	return transitions[from][to]
}
