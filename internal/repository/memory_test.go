package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triagehq/request-triage/internal/domain"
)

func TestMemoryTicketsCreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	tickets := store.Tickets()

	ticket := &domain.Ticket{Title: "broken monitor", Status: domain.TicketStatusNew}
	require.NoError(t, tickets.Create(context.Background(), ticket))
	assert.NotEmpty(t, ticket.ID)
	assert.False(t, ticket.CreatedAt.IsZero())

	got, err := tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "broken monitor", got.Title)

	// reads hand out clones, not store references
	got.Title = "mutated"
	again, err := tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "broken monitor", again.Title)

	_, err = tickets.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryTicketsUpdateAtomicPersistsSideEffects(t *testing.T) {
	store := NewMemoryStore()
	tickets := store.Tickets()

	ticket := &domain.Ticket{Title: "vpn down", Status: domain.TicketStatusNew}
	require.NoError(t, tickets.Create(context.Background(), ticket))

	updated, err := tickets.UpdateAtomic(context.Background(), ticket.ID, func(t *domain.Ticket) (*UpdateSideEffects, error) {
		t.Status = domain.TicketStatusInProgress
		return &UpdateSideEffects{
			Comment:  &domain.Comment{TicketID: t.ID, AuthorEmail: "sam@example.com", Body: "taking a look"},
			Activity: &domain.ActivityEntry{TicketID: t.ID, Type: domain.ActivityTicketUpdated, Summary: "status NEW -> IN_PROGRESS"},
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	comments, err := store.Comments().ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.NotEmpty(t, comments[0].ID)

	entries, err := store.Activity().ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestMemoryTicketsUpdateAtomicRollsBackOnApplyError(t *testing.T) {
	store := NewMemoryStore()
	tickets := store.Tickets()

	ticket := &domain.Ticket{Title: "vpn down", Status: domain.TicketStatusNew}
	require.NoError(t, tickets.Create(context.Background(), ticket))

	_, err := tickets.UpdateAtomic(context.Background(), ticket.ID, func(t *domain.Ticket) (*UpdateSideEffects, error) {
		t.Status = domain.TicketStatusClosed
		return nil, errors.New("rejected")
	})
	require.Error(t, err)

	current, err := tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, current.Status)

	comments, err := store.Comments().ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestMemoryTicketsUpdateAtomicSerializesPerTicket(t *testing.T) {
	store := NewMemoryStore()
	tickets := store.Tickets()

	ticket := &domain.Ticket{Title: "counter", Status: domain.TicketStatusNew}
	require.NoError(t, tickets.Create(context.Background(), ticket))

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, _ = tickets.UpdateAtomic(context.Background(), ticket.ID, func(t *domain.Ticket) (*UpdateSideEffects, error) {
				t.Description += "x"
				return nil, nil
			})
		}()
	}
	wg.Wait()

	current, err := tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, current.Description, workers)
}

func TestMemoryTicketsListWithFilter(t *testing.T) {
	store := NewMemoryStore()
	tickets := store.Tickets()

	for _, seed := range []domain.Ticket{
		{Title: "a", RequesterEmail: "sam@example.com", AssignedTeam: "Network"},
		{Title: "b", RequesterEmail: "Sam@Example.com", AssignedTeam: "IT Support"},
		{Title: "c", RequesterEmail: "lee@example.com", AssignedTeam: "Network"},
	} {
		seed := seed
		require.NoError(t, tickets.Create(context.Background(), &seed))
	}

	all, err := tickets.ListWithFilter(context.Background(), TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	email := "sam@example.com"
	mine, err := tickets.ListWithFilter(context.Background(), TicketFilter{RequesterEmail: &email})
	require.NoError(t, err)
	assert.Len(t, mine, 2) // email match is case-insensitive

	team := "Network"
	routed, err := tickets.ListWithFilter(context.Background(), TicketFilter{AssignedTeam: &team})
	require.NoError(t, err)
	assert.Len(t, routed, 2)

	limited, err := tickets.ListWithFilter(context.Background(), TicketFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	offset, err := tickets.ListWithFilter(context.Background(), TicketFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, offset)
}

func TestMemoryUsers(t *testing.T) {
	store := NewMemoryStore()
	users := store.Users()

	require.NoError(t, users.Create(context.Background(), &domain.User{Email: "Sam@Example.com", Name: "Sam", Role: domain.RoleRequester}))

	got, err := users.GetByEmail(context.Background(), "SAM@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", got.Email)

	got.Role = domain.RoleAgent
	require.NoError(t, users.Update(context.Background(), got))

	updated, err := users.GetByEmail(context.Background(), "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, updated.Role)

	err = users.Update(context.Background(), &domain.User{Email: "ghost@example.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUsersSearch(t *testing.T) {
	store := NewMemoryStore()
	users := store.Users()

	require.NoError(t, users.Create(context.Background(), &domain.User{Email: "sam@example.com", Name: "Samantha Ortiz"}))
	require.NoError(t, users.Create(context.Background(), &domain.User{Email: "lee@example.com", Name: "Lee Chen"}))
	require.NoError(t, users.Create(context.Background(), &domain.User{Email: "kim@example.com", Name: "Kim Park"}))

	byName, err := users.Search(context.Background(), "ortiz", 100)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "sam@example.com", byName[0].Email)

	all, err := users.Search(context.Background(), "", 100)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := users.Search(context.Background(), "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
