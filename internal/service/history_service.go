package service

import (
	"context"

	"github.com/tracklane/ticket-tracker/internal/domain"
	"github.com/tracklane/ticket-tracker/internal/repository"
)

// HistoryService is the read side of ticket status transitions.
type HistoryService struct {
	store repository.Store
}

// NewHistoryService creates the service.
func NewHistoryService(store repository.Store) *HistoryService {
	return &HistoryService{store: store}
}

// ListHistory returns a ticket's transitions oldest first. A ticket that never
// changed status yields an empty slice.
func (s *HistoryService) ListHistory(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	id, err := parseID("ticket", ticketID)
	if err != nil {
		return nil, err
	}
	repos := s.store.Repositories()
	if _, err := repos.Tickets.GetByID(ctx, id); err != nil {
		return nil, mapError(err, "ticket", map[string]any{"ticket_id": id})
	}
	history, err := repos.History.ListByTicket(ctx, id)
	if err != nil {
		return nil, mapError(err, "ticket", map[string]any{"ticket_id": id})
	}
	return history, nil
}
