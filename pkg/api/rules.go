package api

import "time"

// AssignmentRule narrows auto-assignment for work orders it matches.
// Rules are consulted in Rank order (then Name); the first active rule
// matching the order's priority applies. A matching rule constrains
// candidates to technicians holding at least one of SkillsAny (when
// non-empty) and lowers the capacity cap to MaxActive (when positive).
type AssignmentRule struct {
	ID   string
	Name string

	// Priorities this rule applies to. Empty matches every priority.
	Priorities []Priority

	// SkillsAny: a candidate must hold at least one, when non-empty.
	SkillsAny []string

	// MaxActive caps concurrent assignments per technician for matching
	// orders. Zero means "no extra cap" (the engine default applies).
	MaxActive int

	// Rank orders rule evaluation; lower ranks are consulted first.
	Rank int

	Active    bool
	CreatedAt time.Time
}

// Matches reports whether the rule applies to the given priority.
func (r *AssignmentRule) Matches(p Priority) bool {
	if !r.Active {
		return false
	}
	if len(r.Priorities) == 0 {
		return true
	}
	for _, rp := range r.Priorities {
		if rp == p {
			return true
		}
	}
	return false
}

// SLAPreset is a named, reusable SLA configuration. Presets are supplied
// via engine Config and applied with ApplySLAPreset.
type SLAPreset struct {
	Name        string
	RespondMins int
	ResolveMins int

	// Priority and WorkType are descriptive hints for preset catalogs;
	// the engine does not match on them.
	Priority Priority
	WorkType WorkType
}
