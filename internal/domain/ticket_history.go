package domain

import "time"

// TicketHistory is an immutable record of one status transition. Status is
// the value the ticket moved to.
type TicketHistory struct {
	ID       string
	TicketID string
	Date     time.Time
	Status   TicketStatus
	Seq      int64
}
