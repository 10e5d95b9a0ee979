package engine

import (
	"sort"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// skillScore is the number of required skills the technician holds. Every
// eligible candidate already holds all of them, so the score only separates
// candidates when combined with the exact-match tie break below.
func skillScore(t *api.Technician, required []string) int {
	score := 0
	for _, r := range required {
		for _, s := range t.Skills {
			if s == r {
				score++
				break
			}
		}
	}
	return score
}

// exactSkillMatch reports whether the technician's skill set equals the
// required set exactly. A specialist with precisely the needed skills beats
// a generalist who also holds unrelated ones.
func exactSkillMatch(t *api.Technician, required []string) bool {
	if len(required) == 0 {
		return len(t.Skills) == 0
	}
	set := make(map[string]struct{}, len(required))
	for _, r := range required {
		set[r] = struct{}{}
	}
	if len(t.Skills) != len(set) {
		return false
	}
	for _, s := range t.Skills {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

// rankCandidates orders eligible technicians best-first:
//
//  1. ascending active work order count (load balancing)
//  2. descending skill score, exact-set match winning ties
//  3. lexicographically smallest ID (deterministic)
//
// The input slice is sorted in place and returned.
func rankCandidates(cands []*api.Technician, required []string) []*api.Technician {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.ActiveCount != b.ActiveCount {
			return a.ActiveCount < b.ActiveCount
		}
		as, bs := skillScore(a, required), skillScore(b, required)
		if as != bs {
			return as > bs
		}
		ae, be := exactSkillMatch(a, required), exactSkillMatch(b, required)
		if ae != be {
			return ae
		}
		return a.ID < b.ID
	})
	return cands
}
