package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/triagehq/request-triage/internal/domain"
)

// MemoryStore backs all repositories with mutex-guarded maps. Used when no
// POSTGRES_DSN is configured and by unit tests.
type MemoryStore struct {
	mu       sync.RWMutex
	tickets  map[string]*domain.Ticket
	comments map[string][]domain.Comment
	activity map[string][]domain.ActivityEntry
	users    map[string]*domain.User

	// ticketLocks serializes UpdateAtomic per ticket so the transition
	// check and the write happen under one lock.
	ticketLocks sync.Map
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:  make(map[string]*domain.Ticket),
		comments: make(map[string][]domain.Comment),
		activity: make(map[string][]domain.ActivityEntry),
		users:    make(map[string]*domain.User),
	}
}

// Tickets returns the ticket repository view of the store.
func (s *MemoryStore) Tickets() TicketRepository { return &memoryTickets{store: s} }

// Comments returns the comment repository view of the store.
func (s *MemoryStore) Comments() CommentRepository { return &memoryComments{store: s} }

// Activity returns the activity repository view of the store.
func (s *MemoryStore) Activity() ActivityRepository { return &memoryActivity{store: s} }

// Users returns the user repository view of the store.
func (s *MemoryStore) Users() UserRepository { return &memoryUsers{store: s} }

type memoryTickets struct {
	store *MemoryStore
}

func (m *memoryTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	now := nowUTC()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	clone := *ticket
	m.store.tickets[ticket.ID] = &clone
	return nil
}

func (m *memoryTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	ticket, ok := m.store.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *ticket
	return &clone, nil
}

func (m *memoryTickets) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	m.store.mu.RLock()
	result := make([]domain.Ticket, 0, len(m.store.tickets))
	for _, ticket := range m.store.tickets {
		if filter.RequesterEmail != nil && !strings.EqualFold(ticket.RequesterEmail, *filter.RequesterEmail) {
			continue
		}
		if filter.AssignedTeam != nil && ticket.AssignedTeam != *filter.AssignedTeam {
			continue
		}
		result = append(result, *ticket)
	}
	m.store.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.Ticket{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *memoryTickets) UpdateAtomic(ctx context.Context, id string, apply func(*domain.Ticket) (*UpdateSideEffects, error)) (*domain.Ticket, error) {
	lockAny, _ := m.store.ticketLocks.LoadOrStore(id, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	current, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	effects, err := apply(current)
	if err != nil {
		return nil, err
	}
	current.UpdatedAt = nowUTC()

	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	clone := *current
	m.store.tickets[id] = &clone

	if effects != nil && effects.Comment != nil {
		c := effects.Comment
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CreatedAt = nowUTC()
		m.store.comments[id] = append(m.store.comments[id], *c)
	}
	if effects != nil && effects.Activity != nil {
		a := effects.Activity
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.CreatedAt = nowUTC()
		m.store.activity[id] = append(m.store.activity[id], *a)
	}
	return current, nil
}

type memoryComments struct {
	store *MemoryStore
}

func (m *memoryComments) Create(ctx context.Context, comment *domain.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = nowUTC()
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.comments[comment.TicketID] = append(m.store.comments[comment.TicketID], *comment)
	return nil
}

func (m *memoryComments) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return append([]domain.Comment{}, m.store.comments[ticketID]...), nil
}

type memoryActivity struct {
	store *MemoryStore
}

func (m *memoryActivity) Create(ctx context.Context, entry *domain.ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = nowUTC()
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.activity[entry.TicketID] = append(m.store.activity[entry.TicketID], *entry)
	return nil
}

func (m *memoryActivity) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return append([]domain.ActivityEntry{}, m.store.activity[ticketID]...), nil
}

type memoryUsers struct {
	store *MemoryStore
}

func (m *memoryUsers) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(user.Email)
	now := nowUTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	clone := *user
	m.store.users[user.Email] = &clone
	return nil
}

func (m *memoryUsers) Update(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(user.Email)
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, ok := m.store.users[user.Email]
	if !ok {
		return ErrNotFound
	}
	user.ID = stored.ID
	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = nowUTC()
	clone := *user
	m.store.users[clone.Email] = &clone
	return nil
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	user, ok := m.store.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *memoryUsers) Search(ctx context.Context, query string, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 100
	}
	q := strings.ToLower(strings.TrimSpace(query))

	m.store.mu.RLock()
	result := make([]domain.User, 0, len(m.store.users))
	for _, user := range m.store.users {
		if q != "" &&
			!strings.Contains(strings.ToLower(user.Email), q) &&
			!strings.Contains(strings.ToLower(user.Name), q) {
			continue
		}
		result = append(result, *user)
	}
	m.store.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
