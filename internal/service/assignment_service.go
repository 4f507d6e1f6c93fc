package service

import (
	"context"
	"fmt"

	"github.com/tracklane/ticket-tracker/internal/domain"
	"github.com/tracklane/ticket-tracker/internal/repository"
	apperrors "github.com/tracklane/ticket-tracker/pkg/util/errorutil"
)

// AssignmentService owns the ticket to user relationship.
type AssignmentService struct {
	store repository.Store
	cache repository.TicketCache
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Store repository.Store
	Cache repository.TicketCache
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	cache := deps.Cache
	if cache == nil {
		cache = repository.NopTicketCache{}
	}
	return &AssignmentService{store: deps.Store, cache: cache}
}

// ResolveAssignee loads the user a ticket points at.
func (s *AssignmentService) ResolveAssignee(ctx context.Context, userID string) (*domain.User, error) {
	id, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Repositories().Users.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err, "user", map[string]any{"user_id": id})
	}
	return user, nil
}

// attachAssignees fills Ticket.Assignee for every ticket with one batched lookup.
func (s *AssignmentService) attachAssignees(ctx context.Context, users repository.UserRepository, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tickets))
	ids := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		if _, ok := seen[ticket.AssigneeID]; ok {
			continue
		}
		seen[ticket.AssigneeID] = struct{}{}
		ids = append(ids, ticket.AssigneeID)
	}
	byID, err := users.GetByIDs(ctx, ids)
	if err != nil {
		return mapError(err, "user", nil)
	}
	for i := range tickets {
		user, ok := byID[tickets[i].AssigneeID]
		if !ok {
			return apperrors.NewInternalError(fmt.Errorf("ticket %s references missing user %s", tickets[i].ID, tickets[i].AssigneeID))
		}
		tickets[i].Assignee = &user
	}
	return nil
}

// Reassign points a ticket at another existing user.
func (s *AssignmentService) Reassign(ctx context.Context, ticketID, userID string) (*domain.Ticket, error) {
	tID, err := parseID("ticket", ticketID)
	if err != nil {
		return nil, err
	}
	uID, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}

	var ticket *domain.Ticket
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Tickets.GetByID(ctx, tID); err != nil {
			return mapError(err, "ticket", map[string]any{"ticket_id": tID})
		}
		user, err := repos.Users.GetByID(ctx, uID)
		if err != nil {
			return mapError(err, "user", map[string]any{"user_id": uID})
		}
		if err := repos.Tickets.SetAssignee(ctx, tID, uID); err != nil {
			return mapError(err, "ticket", map[string]any{"ticket_id": tID, "user_id": uID})
		}
		ticket, err = repos.Tickets.GetByID(ctx, tID)
		if err != nil {
			return mapError(err, "ticket", map[string]any{"ticket_id": tID})
		}
		ticket.Assignee = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, tID)
	return ticket, nil
}

// ListTicketsForUser returns every ticket assigned to the user, assignee resolved.
func (s *AssignmentService) ListTicketsForUser(ctx context.Context, userID string) ([]domain.Ticket, error) {
	id, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	repos := s.store.Repositories()
	user, err := repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, mapError(err, "user", map[string]any{"user_id": id})
	}
	tickets, err := repos.Tickets.ListByAssignee(ctx, id)
	if err != nil {
		return nil, mapError(err, "ticket", nil)
	}
	for i := range tickets {
		assignee := *user
		tickets[i].Assignee = &assignee
	}
	return tickets, nil
}

// OnUserDeleted enforces that a user with assigned tickets cannot be removed.
// It must run inside the transaction that deletes the user.
func (s *AssignmentService) OnUserDeleted(ctx context.Context, repos repository.Repositories, userID string) error {
	count, err := repos.Tickets.CountByAssignee(ctx, userID)
	if err != nil {
		return mapError(err, "ticket", nil)
	}
	if count > 0 {
		return apperrors.NewConflict("user has assigned tickets", map[string]any{
			"user_id":      userID,
			"ticket_count": count,
		})
	}
	return nil
}
