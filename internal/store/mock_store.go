// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without a database

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	users    map[int64]*User
	byEmail  map[string]int64
	tickets  map[int64]*Ticket
	comments map[int64][]*Comment // keyed by ticket ID
	sessions map[string]*Session
	nextID   int64

	// PingErr is returned from Ping when set
	PingErr error
}

// Ensure MockStore implements Store.
var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:    make(map[int64]*User),
		byEmail:  make(map[string]int64),
		tickets:  make(map[int64]*Ticket),
		comments: make(map[int64][]*Comment),
		sessions: make(map[string]*Session),
	}
}

func (m *MockStore) allocID() int64 {
	m.nextID++
	return m.nextID
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[user.Email]; exists {
		return ErrEmailExists
	}

	user.ID = m.allocID()
	user.CreatedAt = normalizeTime(user.CreatedAt)

	u := *user
	m.users[u.ID] = &u
	m.byEmail[u.Email] = u.ID
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *u
	return &result, nil
}

// GetUserByEmail retrieves a user by email.
func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	result := *m.users[id]
	return &result, nil
}

// CreateTicket stores a new ticket.
func (m *MockStore) CreateTicket(ctx context.Context, ticket *Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.users[ticket.UserID]
	if !ok {
		return ErrNotFound
	}

	if ticket.Status == "" {
		ticket.Status = DefaultTicketStatus
	}
	ticket.ID = m.allocID()
	ticket.CreatedAt = normalizeTime(ticket.CreatedAt)
	ticket.OwnerEmail = owner.Email

	t := *ticket
	m.tickets[t.ID] = &t
	return nil
}

// GetTicket retrieves a ticket by ID.
func (m *MockStore) GetTicket(ctx context.Context, id int64) (*Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *t
	return &result, nil
}

// ListTickets returns tickets matching the filter, newest first.
func (m *MockStore) ListTickets(ctx context.Context, filter TicketFilter) ([]*Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Ticket
	for _, t := range m.tickets {
		if filter.matches(t) {
			c := *t
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// UpdateTicketStatus overwrites status and assignee of a ticket.
func (m *MockStore) UpdateTicketStatus(ctx context.Context, id int64, status, assignee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tickets[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	t.Assignee = assignee
	return nil
}

// CreateComment stores a comment on an existing ticket.
func (m *MockStore) CreateComment(ctx context.Context, comment *Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tickets[comment.TicketID]; !ok {
		return ErrNotFound
	}

	comment.ID = m.allocID()
	comment.CreatedAt = normalizeTime(comment.CreatedAt)

	c := *comment
	m.comments[c.TicketID] = append(m.comments[c.TicketID], &c)
	return nil
}

// ListComments returns the comments of a ticket, oldest first.
func (m *MockStore) ListComments(ctx context.Context, ticketID int64) ([]*Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Comment, 0, len(m.comments[ticketID]))
	for _, c := range m.comments[ticketID] {
		cp := *c
		result = append(result, &cp)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// CreateSession stores a session.
func (m *MockStore) CreateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *session
	m.sessions[s.ID] = &s
	return nil
}

// GetSession retrieves an unexpired session.
func (m *MockStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return nil, ErrNotFound
	}
	result := *s
	return &result, nil
}

// DeleteSession removes a session.
func (m *MockStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// DeleteExpiredSessions purges expired sessions.
func (m *MockStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	now := time.Now()
	for id, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Ping returns PingErr.
func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingErr
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}
