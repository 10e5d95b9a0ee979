package api

import "time"

// DefaultMaxActive is the hard cap on simultaneously active work orders per
// technician when no lower cap is configured.
const DefaultMaxActive = 5

// EngineOptions tunes engine behavior beyond storage wiring. The zero value
// is usable: no observer, wall clock time, no presets or rules, no default
// approvers, and the default capacity cap.
type EngineOptions struct {
	// Observer receives lifecycle callbacks. Nil means NoopObserver.
	Observer Observer

	// Now supplies the engine clock. Nil means time.Now. Tests inject a
	// fake clock here; SLA anchors, decision timestamps, and escalation
	// times all come from this function.
	Now func() time.Time

	// Presets are the named SLA configurations ApplySLAPreset resolves.
	Presets []SLAPreset

	// Rules seed the assignment rule registry.
	Rules []AssignmentRule

	// DefaultApprovers are used by SubmitForApproval when the caller
	// passes an empty approver set.
	DefaultApprovers []string

	// MaxActive lowers the per-technician capacity cap below
	// DefaultMaxActive, which is a hard ceiling. Zero or negative means
	// DefaultMaxActive; values above it are clamped to it.
	MaxActive int
}
