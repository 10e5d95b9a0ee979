// Package sla computes work order deadline standing. Everything here is a
// pure function of stored SLA data and an explicit clock value, so callers
// (engine reads, the sweeper, tests) get identical answers for identical
// inputs without any locking.
package sla

import (
	"time"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// dueIn returns the whole minutes remaining from 'at' until anchor+budget.
// Elapsed time is truncated to whole minutes before subtracting, so a
// 30-minute budget reads 0 at +30m00s through +30m59s and -1 from +31m.
func dueIn(anchor time.Time, budgetMins int, at time.Time) int {
	elapsed := int(at.Sub(anchor) / time.Minute)
	return budgetMins - elapsed
}

// Status reports where the SLA stands at the given instant. The response
// clock freezes at FirstRespondedAt and the resolve clock at ResolvedAt;
// until then each runs against 'at'.
func Status(s *api.SLA, at time.Time) *api.SLAStatus {
	respondAt := at
	if s.FirstRespondedAt != nil {
		respondAt = *s.FirstRespondedAt
	}
	resolveAt := at
	if s.ResolvedAt != nil {
		resolveAt = *s.ResolvedAt
	}
	return &api.SLAStatus{
		Name:                   s.Name,
		FirstResponseDueInMins: dueIn(s.AnchoredAt, s.RespondMins, respondAt),
		ResolveDueInMins:       dueIn(s.AnchoredAt, s.ResolveMins, resolveAt),
		Responded:              s.FirstRespondedAt != nil,
		Resolved:               s.ResolvedAt != nil,
	}
}

// Overdue reports the channels that are past due at the given instant.
// A channel whose clock has been stopped (responded / resolved) is never
// overdue, regardless of when the stop happened.
func Overdue(s *api.SLA, at time.Time) []api.SLAChannel {
	var out []api.SLAChannel
	if s.FirstRespondedAt == nil && dueIn(s.AnchoredAt, s.RespondMins, at) < 0 {
		out = append(out, api.ChannelResponse)
	}
	if s.ResolvedAt == nil && dueIn(s.AnchoredAt, s.ResolveMins, at) < 0 {
		out = append(out, api.ChannelResolve)
	}
	return out
}
