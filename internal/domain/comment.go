package domain

import "time"

// Comment is an append-only entry in a ticket's discussion thread.
// Comments are never edited or deleted.
type Comment struct {
	ID          string
	TicketID    string
	AuthorID    string
	AuthorEmail string
	AuthorName  string
	Body        string
	CreatedAt   time.Time
}
