package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracklane/ticket-tracker/internal/domain"
	"github.com/tracklane/ticket-tracker/internal/repository"
)

func seed(t *testing.T, store *Store) (domain.User, domain.Ticket) {
	t.Helper()
	ctx := context.Background()
	repos := store.Repositories()

	user := domain.User{Name: "Harry Potter", Email: "harry.potter@hogwarts.edu"}
	require.NoError(t, repos.Users.Create(ctx, &user))

	ticket := domain.Ticket{
		Number:      "TST-0001",
		Summary:     "summary",
		Detail:      "detail",
		Size:        "1",
		DateCreated: time.Now(),
		Status:      domain.TicketStatusTodo,
		Type:        domain.TicketTypeStory,
		AssigneeID:  user.ID,
	}
	require.NoError(t, repos.Tickets.Create(ctx, &ticket))
	return user, ticket
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New()
	_, ticket := seed(t, store)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		changed := ticket
		changed.Status = domain.TicketStatusDone
		require.NoError(t, repos.Tickets.Update(ctx, &changed))
		require.NoError(t, repos.History.Create(ctx, &domain.TicketHistory{
			TicketID: ticket.ID,
			Date:     time.Now(),
			Status:   domain.TicketStatusDone,
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Repositories().Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusTodo, got.Status)
	history, err := store.Repositories().History.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := New()
	_, ticket := seed(t, store)

	err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		changed := ticket
		changed.Status = domain.TicketStatusInProgress
		if err := repos.Tickets.Update(ctx, &changed); err != nil {
			return err
		}
		return repos.History.Create(ctx, &domain.TicketHistory{
			TicketID: ticket.ID,
			Date:     time.Now(),
			Status:   domain.TicketStatusInProgress,
		})
	})
	require.NoError(t, err)

	got, err := store.Repositories().Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, got.Status)
	history, err := store.Repositories().History.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestTicketDelete_CascadesHistory(t *testing.T) {
	ctx := context.Background()
	store := New()
	_, ticket := seed(t, store)
	repos := store.Repositories()

	require.NoError(t, repos.History.Create(ctx, &domain.TicketHistory{TicketID: ticket.ID, Date: time.Now(), Status: domain.TicketStatusDone}))
	require.NoError(t, repos.Tickets.Delete(ctx, ticket.ID))

	history, err := repos.History.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.ErrorIs(t, repos.Tickets.Delete(ctx, ticket.ID), repository.ErrNotFound)
}

func TestUserDelete_RestrictedWhileAssigned(t *testing.T) {
	ctx := context.Background()
	store := New()
	user, ticket := seed(t, store)
	repos := store.Repositories()

	assert.ErrorIs(t, repos.Users.Delete(ctx, user.ID), repository.ErrConflict)

	require.NoError(t, repos.Tickets.Delete(ctx, ticket.ID))
	assert.NoError(t, repos.Users.Delete(ctx, user.ID))
}

func TestTicketConstraints(t *testing.T) {
	ctx := context.Background()
	store := New()
	user, _ := seed(t, store)
	repos := store.Repositories()

	duplicate := domain.Ticket{Number: "TST-0001", AssigneeID: user.ID}
	err := repos.Tickets.Create(ctx, &duplicate)
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, repository.ConstraintTicketNumber, repository.ViolatedConstraint(err))

	orphan := domain.Ticket{Number: "TST-0002", AssigneeID: "missing"}
	err = repos.Tickets.Create(ctx, &orphan)
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, repository.ConstraintTicketAssignee, repository.ViolatedConstraint(err))
}

func TestTicketVersion_BumpsOnEveryWrite(t *testing.T) {
	ctx := context.Background()
	store := New()
	user, ticket := seed(t, store)
	repos := store.Repositories()

	version, err := repos.Tickets.Version(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	ticket.Status = domain.TicketStatusDone
	require.NoError(t, repos.Tickets.Update(ctx, &ticket))
	assert.Equal(t, int64(2), ticket.Version)

	require.NoError(t, repos.Tickets.SetAssignee(ctx, ticket.ID, user.ID))
	version, err = repos.Tickets.Version(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)

	require.NoError(t, repos.Tickets.Delete(ctx, ticket.ID))
	_, err = repos.Tickets.Version(ctx, ticket.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHistoryOrdering_DateThenInsertion(t *testing.T) {
	ctx := context.Background()
	store := New()
	_, ticket := seed(t, store)
	repos := store.Repositories()
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []domain.TicketHistory{
		{TicketID: ticket.ID, Date: stamp.Add(time.Minute), Status: domain.TicketStatusDone},
		{TicketID: ticket.ID, Date: stamp, Status: domain.TicketStatusInProgress},
		{TicketID: ticket.ID, Date: stamp, Status: domain.TicketStatusBlocked},
	}
	for i := range entries {
		require.NoError(t, repos.History.Create(ctx, &entries[i]))
	}

	history, err := repos.History.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.TicketStatusInProgress, history[0].Status)
	assert.Equal(t, domain.TicketStatusBlocked, history[1].Status)
	assert.Equal(t, domain.TicketStatusDone, history[2].Status)
}

func TestTicketList_InsertionOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	store := New()
	user, first := seed(t, store)
	repos := store.Repositories()

	second := domain.Ticket{Number: "TST-0002", AssigneeID: user.ID, Status: domain.TicketStatusTodo}
	third := domain.Ticket{Number: "TST-0003", AssigneeID: user.ID, Status: domain.TicketStatusTodo}
	require.NoError(t, repos.Tickets.Create(ctx, &second))
	require.NoError(t, repos.Tickets.Create(ctx, &third))

	all, err := repos.Tickets.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	pageTwo, err := repos.Tickets.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, pageTwo, 1)
	assert.Equal(t, third.ID, pageTwo[0].ID)

	beyond, err := repos.Tickets.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}
