// Package memory provides an in-memory implementation of repository.Store for
// tests and for running the service without Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tracklane/ticket-tracker/internal/domain"
	"github.com/tracklane/ticket-tracker/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type state struct {
	users      map[string]domain.User
	userSeq    map[string]int64
	tickets    map[string]domain.Ticket
	ticketSeq  map[string]int64
	history    map[string]domain.TicketHistory
	nextSeq    int64
	historySeq int64
}

func newState() *state {
	return &state{
		users:     map[string]domain.User{},
		userSeq:   map[string]int64{},
		tickets:   map[string]domain.Ticket{},
		ticketSeq: map[string]int64{},
		history:   map[string]domain.TicketHistory{},
	}
}

func (s *state) clone() *state {
	c := &state{
		users:      make(map[string]domain.User, len(s.users)),
		userSeq:    make(map[string]int64, len(s.userSeq)),
		tickets:    make(map[string]domain.Ticket, len(s.tickets)),
		ticketSeq:  make(map[string]int64, len(s.ticketSeq)),
		history:    make(map[string]domain.TicketHistory, len(s.history)),
		nextSeq:    s.nextSeq,
		historySeq: s.historySeq,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.userSeq {
		c.userSeq[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.ticketSeq {
		c.ticketSeq[k] = v
	}
	for k, v := range s.history {
		c.history[k] = v
	}
	return c
}

// Store keeps users, tickets and history in maps guarded by one lock.
// Transactions run on a copy of the state that replaces the live state on
// success, so WithinTx is serializable.
type Store struct {
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{state: newState(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repositories returns repositories that lock the store per call.
func (s *Store) Repositories() repository.Repositories {
	return repositoriesFor(&access{store: s})
}

// WithinTx runs fn against a private copy of the state.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := s.state.clone()
	if err := fn(ctx, repositoriesFor(&access{store: s, tx: tx})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx
	return nil
}

func repositoriesFor(a *access) repository.Repositories {
	return repository.Repositories{
		Tickets: &ticketRepository{a},
		Users:   &userRepository{a},
		History: &historyRepository{a},
	}
}

// access routes a call either to the transaction copy (already locked by
// WithinTx) or to the live state under the store lock.
type access struct {
	store *Store
	tx    *state
}

func (a *access) read(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()
	return fn(a.store.state)
}

func (a *access) write(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.state)
}

func (a *access) now() time.Time {
	return a.store.now()
}

type ticketRepository struct{ *access }

func (r *ticketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.write(func(st *state) error {
		if _, ok := st.users[ticket.AssigneeID]; !ok {
			return violation(repository.ConstraintTicketAssignee)
		}
		for _, existing := range st.tickets {
			if existing.Number == ticket.Number {
				return violation(repository.ConstraintTicketNumber)
			}
		}
		if ticket.ID == "" {
			ticket.ID = uuid.NewString()
		}
		if _, ok := st.tickets[ticket.ID]; ok {
			return repository.ErrConflict
		}
		ticket.CreatedAt = r.now()
		ticket.Version = 1
		st.nextSeq++
		st.tickets[ticket.ID] = rowOf(ticket)
		st.ticketSeq[ticket.ID] = st.nextSeq
		return nil
	})
}

func (r *ticketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.write(func(st *state) error {
		current, ok := st.tickets[ticket.ID]
		if !ok {
			return repository.ErrNotFound
		}
		current.Summary = ticket.Summary
		current.Detail = ticket.Detail
		current.Size = ticket.Size
		current.Status = ticket.Status
		current.Version++
		ticket.Version = current.Version
		st.tickets[ticket.ID] = current
		return nil
	})
}

func (r *ticketRepository) SetAssignee(_ context.Context, ticketID, userID string) error {
	return r.write(func(st *state) error {
		current, ok := st.tickets[ticketID]
		if !ok {
			return repository.ErrNotFound
		}
		if _, ok := st.users[userID]; !ok {
			return violation(repository.ConstraintTicketAssignee)
		}
		current.AssigneeID = userID
		current.Version++
		st.tickets[ticketID] = current
		return nil
	})
}

func (r *ticketRepository) Delete(_ context.Context, id string) error {
	return r.write(func(st *state) error {
		if _, ok := st.tickets[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.tickets, id)
		delete(st.ticketSeq, id)
		for historyID, entry := range st.history {
			if entry.TicketID == id {
				delete(st.history, historyID)
			}
		}
		return nil
	})
}

func (r *ticketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.read(func(st *state) error {
		ticket, ok := st.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &ticket
		return nil
	})
	return out, err
}

func (r *ticketRepository) Version(_ context.Context, id string) (int64, error) {
	var version int64
	err := r.read(func(st *state) error {
		ticket, ok := st.tickets[id]
		if !ok {
			return repository.ErrNotFound
		}
		version = ticket.Version
		return nil
	})
	return version, err
}

func (r *ticketRepository) List(_ context.Context, limit, offset int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.read(func(st *state) error {
		out = page(st.sortedTickets(func(domain.Ticket) bool { return true }), limit, offset)
		return nil
	})
	return out, err
}

func (r *ticketRepository) Count(_ context.Context) (int, error) {
	var total int
	err := r.read(func(st *state) error {
		total = len(st.tickets)
		return nil
	})
	return total, err
}

func (r *ticketRepository) ListByAssignee(_ context.Context, userID string) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.read(func(st *state) error {
		out = st.sortedTickets(func(t domain.Ticket) bool { return t.AssigneeID == userID })
		return nil
	})
	return out, err
}

func (r *ticketRepository) CountByAssignee(ctx context.Context, userID string) (int, error) {
	tickets, err := r.ListByAssignee(ctx, userID)
	return len(tickets), err
}

func (st *state) sortedTickets(keep func(domain.Ticket) bool) []domain.Ticket {
	out := []domain.Ticket{}
	for _, ticket := range st.tickets {
		if keep(ticket) {
			out = append(out, ticket)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return st.ticketSeq[out[i].ID] < st.ticketSeq[out[j].ID]
	})
	return out
}

func rowOf(ticket *domain.Ticket) domain.Ticket {
	row := *ticket
	row.Assignee = nil
	row.History = nil
	return row
}

type userRepository struct{ *access }

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	return r.write(func(st *state) error {
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		if _, ok := st.users[user.ID]; ok {
			return repository.ErrConflict
		}
		user.CreatedAt = r.now()
		st.nextSeq++
		st.users[user.ID] = *user
		st.userSeq[user.ID] = st.nextSeq
		return nil
	})
}

func (r *userRepository) Update(_ context.Context, user *domain.User) error {
	return r.write(func(st *state) error {
		current, ok := st.users[user.ID]
		if !ok {
			return repository.ErrNotFound
		}
		current.Name = user.Name
		current.Email = user.Email
		st.users[user.ID] = current
		return nil
	})
}

// Delete mirrors ON DELETE RESTRICT on tickets.assignee_id.
func (r *userRepository) Delete(_ context.Context, id string) error {
	return r.write(func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return repository.ErrNotFound
		}
		for _, ticket := range st.tickets {
			if ticket.AssigneeID == id {
				return violation(repository.ConstraintTicketAssignee)
			}
		}
		delete(st.users, id)
		delete(st.userSeq, id)
		return nil
	})
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.read(func(st *state) error {
		user, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &user
		return nil
	})
	return out, err
}

func (r *userRepository) GetByIDs(_ context.Context, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(ids))
	err := r.read(func(st *state) error {
		for _, id := range ids {
			if user, ok := st.users[id]; ok {
				out[id] = user
			}
		}
		return nil
	})
	return out, err
}

func (r *userRepository) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	var out []domain.User
	err := r.read(func(st *state) error {
		users := make([]domain.User, 0, len(st.users))
		for _, user := range st.users {
			users = append(users, user)
		}
		sort.Slice(users, func(i, j int) bool {
			return st.userSeq[users[i].ID] < st.userSeq[users[j].ID]
		})
		out = page(users, limit, offset)
		return nil
	})
	return out, err
}

func (r *userRepository) Count(_ context.Context) (int, error) {
	var total int
	err := r.read(func(st *state) error {
		total = len(st.users)
		return nil
	})
	return total, err
}

type historyRepository struct{ *access }

func (r *historyRepository) Create(_ context.Context, entry *domain.TicketHistory) error {
	return r.write(func(st *state) error {
		if _, ok := st.tickets[entry.TicketID]; !ok {
			return violation(repository.ConstraintHistoryTicket)
		}
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		st.historySeq++
		entry.Seq = st.historySeq
		st.history[entry.ID] = *entry
		return nil
	})
}

func (r *historyRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	out := []domain.TicketHistory{}
	err := r.read(func(st *state) error {
		for _, entry := range st.history {
			if entry.TicketID == ticketID {
				out = append(out, entry)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, err
}

func violation(constraint string) error {
	return &repository.ConstraintError{Constraint: constraint}
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return items[offset:end]
}
