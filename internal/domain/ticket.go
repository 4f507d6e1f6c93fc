package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusTodo       TicketStatus = "todo"
	TicketStatusInProgress TicketStatus = "inProgress"
	TicketStatusBlocked    TicketStatus = "blocked"
	TicketStatusDone       TicketStatus = "done"
)

// Valid reports whether the status is a known lifecycle state.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusTodo, TicketStatusInProgress, TicketStatusBlocked, TicketStatusDone:
		return true
	}
	return false
}

// TicketType enumerates kinds of work.
type TicketType string

const (
	TicketTypeStory TicketType = "story"
	TicketTypeBug   TicketType = "bug"
	TicketTypeTask  TicketType = "task"
	TicketTypeEpic  TicketType = "epic"
)

// Valid reports whether the type is known.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeStory, TicketTypeBug, TicketTypeTask, TicketTypeEpic:
		return true
	}
	return false
}

// Ticket is a trackable unit of work. Assignee and History are populated only
// when a read asks for them.
type Ticket struct {
	ID          string
	Number      string
	Summary     string
	Detail      string
	Size        string
	DateCreated time.Time
	Status      TicketStatus
	Type        TicketType
	AssigneeID  string
	Assignee    *User
	History     []TicketHistory
	CreatedAt   time.Time
	// Version increases on every write to the row.
	Version int64
}
