package dto

import (
	"time"

	"github.com/tracklane/ticket-tracker/internal/domain"
)

// AssigneeRef points at a user by id.
type AssigneeRef struct {
	ID string `json:"id"`
}

// CreateTicketRequest payload. Status and type fall back to configured
// defaults; dateCreated to the server clock.
type CreateTicketRequest struct {
	Number      string              `json:"number"`
	Summary     string              `json:"summary"`
	Detail      string              `json:"detail"`
	Size        string              `json:"size"`
	DateCreated *time.Time          `json:"dateCreated"`
	Status      domain.TicketStatus `json:"status"`
	Type        domain.TicketType   `json:"type"`
	Assignee    *AssigneeRef        `json:"assignee"`
}

// UpdateTicketRequest payload. Other ticket fields in the body are ignored.
type UpdateTicketRequest struct {
	Summary string              `json:"summary"`
	Detail  string              `json:"detail"`
	Size    string              `json:"size"`
	Status  domain.TicketStatus `json:"status"`
}

// TicketHistoryResponse is one status transition.
type TicketHistoryResponse struct {
	ID     string              `json:"id"`
	Date   time.Time           `json:"date"`
	Status domain.TicketStatus `json:"status"`
}

// TicketResponse is the ticket representation. Assignee is omitted when the
// read did not resolve it.
type TicketResponse struct {
	ID          string                  `json:"id"`
	Number      string                  `json:"number"`
	Summary     string                  `json:"summary"`
	Detail      string                  `json:"detail"`
	Size        string                  `json:"size"`
	DateCreated time.Time               `json:"dateCreated"`
	Status      domain.TicketStatus     `json:"status"`
	Type        domain.TicketType       `json:"type"`
	Assignee    *UserResponse           `json:"assignee,omitempty"`
	History     []TicketHistoryResponse `json:"history"`
}

// PageMetadata describes a returned page.
type PageMetadata struct {
	Page  int `json:"page"`
	Per   int `json:"per"`
	Total int `json:"total"`
}

// PageResponse wraps a page of items.
type PageResponse[T any] struct {
	Items    []T          `json:"items"`
	Metadata PageMetadata `json:"metadata"`
}
