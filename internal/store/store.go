// ABOUTME: Store interface and data types for helpdesk persistence
// ABOUTME: Defines User, Ticket, Comment, Session structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registering an email that is already taken
var ErrEmailExists = errors.New("email already exists")

// DefaultTicketStatus is the status every new ticket starts with
const DefaultTicketStatus = "new"

// Column limits shared by both SQL backends and the form validation.
const (
	MaxEmailLen    = 120
	MaxTitleLen    = 200
	MaxTypeLen     = 50
	MaxUrgencyLen  = 20
	MaxStatusLen   = 20
	MaxAssigneeLen = 100
)

// User is a registered account. Users are never updated or deleted in-app.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Ticket is a support request owned by exactly one user.
type Ticket struct {
	ID          int64
	Title       string
	Description string
	Type        string
	Urgency     string
	Status      string
	Assignee    string // empty when unassigned
	UserID      int64
	OwnerEmail  string // filled by list queries, not stored on the ticket row
	CreatedAt   time.Time
}

// Comment is an admin note attached to a ticket. Author is the email of the
// admin at creation time, not a reference to the users table.
type Comment struct {
	ID        int64
	TicketID  int64
	Author    string
	Text      string
	CreatedAt time.Time
}

// Session is a browser login keyed by an opaque token held in a cookie.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// TicketFilter narrows ListTickets. Zero values mean "no constraint"; all set
// fields are combined with AND.
type TicketFilter struct {
	OwnerID     int64 // 0 = any owner
	Type        string
	Urgency     string
	Status      string
	CreatedFrom *time.Time // inclusive
	CreatedTo   *time.Time // inclusive
}

// Store defines the interface for helpdesk persistence
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// Tickets
	CreateTicket(ctx context.Context, ticket *Ticket) error
	GetTicket(ctx context.Context, id int64) (*Ticket, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]*Ticket, error)
	UpdateTicketStatus(ctx context.Context, id int64, status, assignee string) error

	// Comments
	CreateComment(ctx context.Context, comment *Comment) error
	ListComments(ctx context.Context, ticketID int64) ([]*Comment, error)

	// Sessions
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	// Ping reports whether the backing database is reachable
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}

// normalizeTime drops sub-second precision and the location so comparisons
// against day boundaries behave the same in every backend.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
