package service

import (
	"context"
	"strings"
	"time"

	"github.com/tracklane/ticket-tracker/internal/domain"
	"github.com/tracklane/ticket-tracker/internal/repository"
	apperrors "github.com/tracklane/ticket-tracker/pkg/util/errorutil"
)

// TicketDefaults fills optional fields on creation.
type TicketDefaults struct {
	Status domain.TicketStatus
	Type   domain.TicketType
}

// TicketService coordinates the ticket lifecycle.
type TicketService struct {
	store       repository.Store
	cache       repository.TicketCache
	assignments *AssignmentService
	defaults    TicketDefaults
	paging      Paging
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store       repository.Store
	Cache       repository.TicketCache
	Assignments *AssignmentService
	Defaults    TicketDefaults
	Paging      Paging
	Now         func() time.Time
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Number      string
	Summary     string
	Detail      string
	Size        string
	DateCreated *time.Time
	Status      domain.TicketStatus
	Type        domain.TicketType
	AssigneeID  string
}

// UpdateTicketInput carries the fields Update may change.
type UpdateTicketInput struct {
	Summary string
	Detail  string
	Size    string
	Status  domain.TicketStatus
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	cache := deps.Cache
	if cache == nil {
		cache = repository.NopTicketCache{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	assignments := deps.Assignments
	if assignments == nil {
		assignments = NewAssignmentService(AssignmentDependencies{Store: deps.Store, Cache: cache})
	}
	return &TicketService{
		store:       deps.Store,
		cache:       cache,
		assignments: assignments,
		defaults:    deps.Defaults,
		paging:      deps.Paging,
		now:         now,
	}
}

// Create persists a new ticket with an empty history.
func (s *TicketService) Create(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	ticket, err := s.newTicket(input)
	if err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		assignee, err := repos.Users.GetByID(ctx, ticket.AssigneeID)
		if err != nil {
			return mapError(err, "user", map[string]any{"user_id": ticket.AssigneeID})
		}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			switch repository.ViolatedConstraint(err) {
			case repository.ConstraintTicketNumber:
				return apperrors.NewConflict("ticket number already exists", map[string]any{"number": ticket.Number})
			case repository.ConstraintTicketAssignee:
				return apperrors.NewNotFound("user", map[string]any{"user_id": ticket.AssigneeID})
			}
			return mapError(err, "ticket", nil)
		}
		ticket.Assignee = assignee
		return nil
	})
	if err != nil {
		return nil, err
	}
	ticket.History = []domain.TicketHistory{}
	return ticket, nil
}

func (s *TicketService) newTicket(input CreateTicketInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Number:  strings.TrimSpace(input.Number),
		Summary: strings.TrimSpace(input.Summary),
		Detail:  strings.TrimSpace(input.Detail),
		Size:    strings.TrimSpace(input.Size),
		Status:  input.Status,
		Type:    input.Type,
	}
	if missing := missingFields(
		"number", ticket.Number,
		"summary", ticket.Summary,
		"detail", ticket.Detail,
		"size", ticket.Size,
	); len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if strings.TrimSpace(input.AssigneeID) == "" {
		return nil, apperrors.NewValidationError("assignee is required", nil)
	}
	assigneeID, err := parseID("user", input.AssigneeID)
	if err != nil {
		return nil, err
	}
	ticket.AssigneeID = assigneeID

	if ticket.Status == "" {
		ticket.Status = s.defaults.Status
	}
	if !ticket.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": ticket.Status})
	}
	if ticket.Type == "" {
		ticket.Type = s.defaults.Type
	}
	if !ticket.Type.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket type", map[string]any{"type": ticket.Type})
	}
	if input.DateCreated != nil && !input.DateCreated.IsZero() {
		ticket.DateCreated = storedTime(*input.DateCreated)
	} else {
		ticket.DateCreated = storedTime(s.now())
	}
	return ticket, nil
}

// Get returns one ticket with the relations opts asks for.
func (s *TicketService) Get(ctx context.Context, ticketID string, opts ReadOptions) (*domain.Ticket, error) {
	id, err := parseID("ticket", ticketID)
	if err != nil {
		return nil, err
	}
	repos := s.store.Repositories()
	ticket, err := s.load(ctx, repos, id)
	if err != nil {
		return nil, err
	}
	tickets := []domain.Ticket{*ticket}
	if err := s.hydrate(ctx, repos, tickets, opts); err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

// List returns a page of tickets ordered by creation.
func (s *TicketService) List(ctx context.Context, req domain.PageRequest, opts ReadOptions) (*domain.Page[domain.Ticket], error) {
	req = s.paging.normalize(req)
	repos := s.store.Repositories()
	total, err := repos.Tickets.Count(ctx)
	if err != nil {
		return nil, mapError(err, "ticket", nil)
	}
	tickets, err := repos.Tickets.List(ctx, req.Per, req.Offset())
	if err != nil {
		return nil, mapError(err, "ticket", nil)
	}
	if err := s.hydrate(ctx, repos, tickets, opts); err != nil {
		return nil, err
	}
	return &domain.Page[domain.Ticket]{
		Items:    tickets,
		Metadata: domain.PageMetadata{Page: req.Page, Per: req.Per, Total: total},
	}, nil
}

// Update overwrites the descriptive fields and records a history row when the
// status changes. Both writes commit together.
func (s *TicketService) Update(ctx context.Context, ticketID string, input UpdateTicketInput) (*domain.Ticket, error) {
	id, err := parseID("ticket", ticketID)
	if err != nil {
		return nil, err
	}
	input.Summary = strings.TrimSpace(input.Summary)
	input.Detail = strings.TrimSpace(input.Detail)
	input.Size = strings.TrimSpace(input.Size)
	if missing := missingFields(
		"summary", input.Summary,
		"detail", input.Detail,
		"size", input.Size,
	); len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if !input.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket status", map[string]any{"status": input.Status})
	}

	var updated domain.Ticket
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		current, err := repos.Tickets.GetByID(ctx, id)
		if err != nil {
			return mapError(err, "ticket", map[string]any{"ticket_id": id})
		}
		diff := diffTicket(*current, input)
		if err := repos.Tickets.Update(ctx, &diff.After); err != nil {
			return mapError(err, "ticket", map[string]any{"ticket_id": id})
		}
		for _, entry := range historyEntries(diff, s.now()) {
			entry := entry
			if err := repos.History.Create(ctx, &entry); err != nil {
				return mapError(err, "ticket", map[string]any{"ticket_id": id})
			}
		}
		tickets := []domain.Ticket{diff.After}
		if err := s.hydrate(ctx, repos, tickets, ReadOptions{ResolveAssignee: true, IncludeHistory: true}); err != nil {
			return err
		}
		updated = tickets[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, id)
	return &updated, nil
}

// Delete removes a ticket. History rows go with it.
func (s *TicketService) Delete(ctx context.Context, ticketID string) error {
	id, err := parseID("ticket", ticketID)
	if err != nil {
		return err
	}
	if err := s.store.Repositories().Tickets.Delete(ctx, id); err != nil {
		return mapError(err, "ticket", map[string]any{"ticket_id": id})
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

// load serves a cached row only when its version matches the stored one, so
// deleted or rewritten tickets are never answered from the cache.
func (s *TicketService) load(ctx context.Context, repos repository.Repositories, id string) (*domain.Ticket, error) {
	version, err := repos.Tickets.Version(ctx, id)
	if err != nil {
		return nil, mapError(err, "ticket", map[string]any{"ticket_id": id})
	}
	if ticket, ok := s.cache.Get(ctx, id); ok && ticket.Version == version {
		return ticket, nil
	}
	ticket, err := repos.Tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err, "ticket", map[string]any{"ticket_id": id})
	}
	s.cache.Set(ctx, ticket)
	return ticket, nil
}

func (s *TicketService) hydrate(ctx context.Context, repos repository.Repositories, tickets []domain.Ticket, opts ReadOptions) error {
	if opts.ResolveAssignee {
		if err := s.assignments.attachAssignees(ctx, repos.Users, tickets); err != nil {
			return err
		}
	}
	if opts.IncludeHistory {
		for i := range tickets {
			history, err := repos.History.ListByTicket(ctx, tickets[i].ID)
			if err != nil {
				return mapError(err, "ticket", map[string]any{"ticket_id": tickets[i].ID})
			}
			tickets[i].History = history
		}
	}
	return nil
}
