package service

import (
	"time"

	"github.com/tracklane/ticket-tracker/internal/domain"
)

// TicketDiff is the delta between a stored ticket and an update request.
type TicketDiff struct {
	Before        domain.Ticket
	After         domain.Ticket
	StatusChanged bool
}

// diffTicket applies the mutable fields of input to current. Number, type,
// assignee and dateCreated are carried over from current.
func diffTicket(current domain.Ticket, input UpdateTicketInput) TicketDiff {
	after := current
	after.Summary = input.Summary
	after.Detail = input.Detail
	after.Size = input.Size
	after.Status = input.Status
	return TicketDiff{
		Before:        current,
		After:         after,
		StatusChanged: current.Status != input.Status,
	}
}

// storedTime drops precision Postgres TIMESTAMPTZ cannot keep, so values
// returned by a write equal the ones later reads produce.
func storedTime(t time.Time) time.Time {
	return t.Truncate(time.Microsecond)
}

// historyEntries returns the history rows a diff must append: one per status
// transition, none otherwise.
func historyEntries(diff TicketDiff, now time.Time) []domain.TicketHistory {
	if !diff.StatusChanged {
		return nil
	}
	return []domain.TicketHistory{{
		TicketID: diff.After.ID,
		Date:     storedTime(now),
		Status:   diff.After.Status,
	}}
}
