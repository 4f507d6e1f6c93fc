package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique or foreign-key constraint rejects a write.
	ErrConflict = errors.New("constraint violation")
)

// Constraint names shared by the Postgres schema and the in-memory store.
const (
	ConstraintTicketNumber   = "tickets_number_key"
	ConstraintTicketAssignee = "tickets_assignee_id_fkey"
	ConstraintHistoryTicket  = "ticket_history_ticket_id_fkey"
)

// ConstraintError names the constraint that rejected a write. It matches
// ErrConflict under errors.Is.
type ConstraintError struct {
	Constraint string
}

func (e *ConstraintError) Error() string {
	return "constraint violation: " + e.Constraint
}

func (e *ConstraintError) Is(target error) bool {
	return target == ErrConflict
}

// ViolatedConstraint returns the constraint name carried by err, or "".
func ViolatedConstraint(err error) string {
	var constraintErr *ConstraintError
	if errors.As(err, &constraintErr) {
		return constraintErr.Constraint
	}
	return ""
}

// Repositories bundles the entity repositories bound to one connection or transaction.
type Repositories struct {
	Tickets TicketRepository
	Users   UserRepository
	History TicketHistoryRepository
}

// Store hands out repositories and runs units of work.
type Store interface {
	Repositories() Repositories
	// WithinTx runs fn against repositories bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Repositories returns repositories running on the pool.
func (s *PostgresStore) Repositories() Repositories {
	return repositoriesFor(s.pool)
}

// WithinTx runs fn inside a pgx transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, repositoriesFor(tx))
	})
}

func repositoriesFor(db DBTX) Repositories {
	return Repositories{
		Tickets: NewTicketRepository(db),
		Users:   NewUserRepository(db),
		History: NewTicketHistoryRepository(db),
	}
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateError maps driver errors onto the package sentinels and attaches a
// stack to everything else.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return errors.WithStack(&ConstraintError{Constraint: pgErr.ConstraintName})
		}
	}
	return errors.WithStack(err)
}
