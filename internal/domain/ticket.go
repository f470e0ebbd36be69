package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusWaiting    TicketStatus = "WAITING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityLow    TicketPriority = "LOW"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityHigh, TicketPriorityMedium, TicketPriorityLow:
		return true
	}
	return false
}

// RequestedTimeline captures the requester's urgency expectation.
type RequestedTimeline string

const (
	TimelineASAP     RequestedTimeline = "ASAP"
	TimelineToday    RequestedTimeline = "TODAY"
	TimelineThisWeek RequestedTimeline = "THIS_WEEK"
	TimelineNoRush   RequestedTimeline = "NO_RUSH"
)

// ValidTimeline reports whether t is one of the known timelines.
func ValidTimeline(t RequestedTimeline) bool {
	switch t {
	case TimelineASAP, TimelineToday, TimelineThisWeek, TimelineNoRush:
		return true
	}
	return false
}

// SLAStatus is derived from the due date at read time, never stored.
type SLAStatus string

const (
	SLAOnTrack  SLAStatus = "ON_TRACK"
	SLAAtRisk   SLAStatus = "AT_RISK"
	SLABreached SLAStatus = "BREACHED"
)

// Ticket is the aggregate for triaged service requests.
type Ticket struct {
	ID                 string
	Title              string
	Description        string
	AffectedSystem     string
	RequestedTimeline  RequestedTimeline
	IsBlocking         bool
	TryKBFirst         bool
	AssignedTeam       string
	Priority           TicketPriority
	Status             TicketStatus
	RequesterEmail     string
	RequesterName      string
	RequesterDept      string
	AISummaryProblem   string
	AISummaryImpact    string
	AISummaryAction    string
	SLADueAt           time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// KnowledgeSuggestion is a KB pointer proposed by the classifier at
// submission time. Returned to the submitter, not persisted.
type KnowledgeSuggestion struct {
	Title  string
	Reason string
}
