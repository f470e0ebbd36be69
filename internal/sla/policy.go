// Package sla computes service-level deadlines and breach state. The policy
// is pure: due dates derive from the priority table once at creation, and
// the reported status derives from the clock at read time, so the passage of
// time alone changes what callers see without any background job.
package sla

import (
	"time"

	"github.com/triagehq/request-triage/internal/config"
	"github.com/triagehq/request-triage/internal/domain"
)

// Policy maps priorities to response deadlines.
type Policy struct {
	durations    map[domain.TicketPriority]time.Duration
	atRiskWindow time.Duration
}

// NewPolicy builds a policy from configuration. Non-positive entries fall
// back to the 4/24/72 hour table.
func NewPolicy(cfg config.SLAConfig) *Policy {
	return &Policy{
		durations: map[domain.TicketPriority]time.Duration{
			domain.TicketPriorityHigh:   hoursOr(cfg.HighHours, 4),
			domain.TicketPriorityMedium: hoursOr(cfg.MediumHours, 24),
			domain.TicketPriorityLow:    hoursOr(cfg.LowHours, 72),
		},
		atRiskWindow: minutesOr(cfg.AtRiskWindowMin, 60),
	}
}

// DueAt returns the SLA deadline for a ticket created at createdAt with the
// given priority. Unknown priorities use the MEDIUM duration.
func (p *Policy) DueAt(priority domain.TicketPriority, createdAt time.Time) time.Time {
	d, ok := p.durations[priority]
	if !ok {
		d = p.durations[domain.TicketPriorityMedium]
	}
	return createdAt.Add(d)
}

// StatusAt derives the SLA state at the given instant. RESOLVED and CLOSED
// tickets never report BREACHED: breach means currently open and overdue,
// not historical lateness.
func (p *Policy) StatusAt(dueAt, now time.Time, status domain.TicketStatus) domain.SLAStatus {
	if status == domain.TicketStatusResolved || status == domain.TicketStatusClosed {
		return domain.SLAOnTrack
	}
	if now.After(dueAt) {
		return domain.SLABreached
	}
	if !now.Before(dueAt.Add(-p.atRiskWindow)) {
		return domain.SLAAtRisk
	}
	return domain.SLAOnTrack
}

func hoursOr(hours, fallback int) time.Duration {
	if hours <= 0 {
		hours = fallback
	}
	return time.Duration(hours) * time.Hour
}

func minutesOr(minutes, fallback int) time.Duration {
	if minutes <= 0 {
		minutes = fallback
	}
	return time.Duration(minutes) * time.Minute
}
