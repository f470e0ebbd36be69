package domain

import "time"

// ActivityType captures what kind of change an activity entry records.
type ActivityType string

const (
	ActivityTicketCreated ActivityType = "TICKET_CREATED"
	ActivityTicketUpdated ActivityType = "TICKET_UPDATED"
)

// ActivityEntry is an immutable audit trail record. One entry is written per
// accepted update, summarizing the whole diff.
type ActivityEntry struct {
	ID         string
	TicketID   string
	ActorEmail string
	ActorName  string
	Type       ActivityType
	OldValue   map[string]any
	NewValue   map[string]any
	Summary    string
	CreatedAt  time.Time
}
