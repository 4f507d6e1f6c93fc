package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tracklane/ticket-tracker/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update writes the mutable descriptive fields and status and stores the
	// bumped row version in ticket.Version. SetAssignee bumps it too.
	Update(ctx context.Context, ticket *domain.Ticket) error
	SetAssignee(ctx context.Context, ticketID, userID string) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// Version returns the row version, or ErrNotFound when the ticket is gone.
	Version(ctx context.Context, id string) (int64, error)
	List(ctx context.Context, limit, offset int) ([]domain.Ticket, error)
	Count(ctx context.Context) (int, error)
	ListByAssignee(ctx context.Context, userID string) ([]domain.Ticket, error)
	CountByAssignee(ctx context.Context, userID string) (int, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, number, summary, detail, size, date_created, status, type, assignee_id, created_at, version`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO tickets (id, number, summary, detail, size, date_created, status, type, assignee_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at, version`
	err := r.db.QueryRow(ctx, query,
		ticket.ID,
		ticket.Number,
		ticket.Summary,
		ticket.Detail,
		ticket.Size,
		ticket.DateCreated,
		ticket.Status,
		ticket.Type,
		ticket.AssigneeID,
	).Scan(&ticket.CreatedAt, &ticket.Version)
	return translateError(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET summary=$1, detail=$2, size=$3, status=$4, version=version+1
        WHERE id=$5
        RETURNING version`
	err := r.db.QueryRow(ctx, query,
		ticket.Summary,
		ticket.Detail,
		ticket.Size,
		ticket.Status,
		ticket.ID,
	).Scan(&ticket.Version)
	return translateError(err)
}

func (r *ticketRepository) SetAssignee(ctx context.Context, ticketID, userID string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE tickets SET assignee_id=$1, version=version+1 WHERE id=$2`, userID, ticketID)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the ticket; ticket_history rows go with it through ON DELETE CASCADE.
func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.db.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, translateError(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) Version(ctx context.Context, id string) (int64, error) {
	var version int64
	if err := r.db.QueryRow(ctx, `SELECT version FROM tickets WHERE id=$1`, id).Scan(&version); err != nil {
		return 0, translateError(err)
	}
	return version, nil
}

func (r *ticketRepository) List(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        ORDER BY created_at ASC, id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&total); err != nil {
		return 0, translateError(err)
	}
	return total, nil
}

func (r *ticketRepository) ListByAssignee(ctx context.Context, userID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE assignee_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByAssignee(ctx context.Context, userID string) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE assignee_id=$1`, userID).Scan(&total); err != nil {
		return 0, translateError(err)
	}
	return total, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Summary,
		&ticket.Detail,
		&ticket.Size,
		&ticket.DateCreated,
		&ticket.Status,
		&ticket.Type,
		&ticket.AssigneeID,
		&ticket.CreatedAt,
		&ticket.Version,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, translateError(err)
		}
		result = append(result, ticket)
	}
	return result, translateError(rows.Err())
}
