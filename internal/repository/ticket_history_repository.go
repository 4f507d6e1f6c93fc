package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/tracklane/ticket-tracker/internal/domain"
)

// TicketHistoryRepository stores status transitions. Rows are append-only.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	// ListByTicket returns transitions oldest first, ties broken by insertion order.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	db DBTX
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(db DBTX) TicketHistoryRepository {
	return &ticketHistoryRepository{db: db}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO ticket_history (id, ticket_id, date, status)
        VALUES ($1,$2,$3,$4)
        RETURNING seq`
	err := r.db.QueryRow(ctx, query,
		history.ID,
		history.TicketID,
		history.Date,
		history.Status,
	).Scan(&history.Seq)
	return translateError(err)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, date, status, seq
        FROM ticket_history WHERE ticket_id=$1 ORDER BY date ASC, seq ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var history domain.TicketHistory
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&history.Date,
			&history.Status,
			&history.Seq,
		); err != nil {
			return nil, translateError(err)
		}
		result = append(result, history)
	}
	return result, translateError(rows.Err())
}
