// ABOUTME: PostgreSQL implementation of the Store interface using pgx/v5
// ABOUTME: Connects through a pgxpool and creates the schema on startup

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes the store maps onto sentinel errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore implements the Store interface on PostgreSQL
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to the database named by dsn and creates the
// schema if it doesn't exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	logger := slog.Default().With("component", "store", "driver", "postgres")

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}

	s := &PostgresStore{pool: pool, logger: logger}

	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("PostgreSQL store initialized", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return s, nil
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email VARCHAR(120) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tickets (
			id BIGSERIAL PRIMARY KEY,
			title VARCHAR(200) NOT NULL,
			description TEXT NOT NULL,
			type VARCHAR(50) NOT NULL,
			urgency VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'new',
			assigned_to VARCHAR(100),
			user_id BIGINT NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_user ON tickets(user_id);
		CREATE INDEX IF NOT EXISTS idx_tickets_created ON tickets(created_at);

		CREATE TABLE IF NOT EXISTS comments (
			id BIGSERIAL PRIMARY KEY,
			ticket_id BIGINT NOT NULL REFERENCES tickets(id),
			author_email VARCHAR(120) NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_comments_ticket ON comments(ticket_id, created_at);

		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	s.logger.Info("closing PostgreSQL store")
	s.pool.Close()
	return nil
}

// CreateUser inserts a new user and sets user.ID.
func (s *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	user.CreatedAt = normalizeTime(user.CreatedAt)
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`,
		user.Email, user.PasswordHash, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Info("created user", "id", user.ID, "email", user.Email)
	return nil
}

// GetUser retrieves a user by ID.
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.queryUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

// GetUserByEmail retrieves a user by email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.queryUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email)
}

func (s *PostgresStore) queryUser(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// CreateTicket inserts a new ticket and sets ticket.ID.
func (s *PostgresStore) CreateTicket(ctx context.Context, ticket *Ticket) error {
	if ticket.Status == "" {
		ticket.Status = DefaultTicketStatus
	}
	ticket.CreatedAt = normalizeTime(ticket.CreatedAt)

	err := s.pool.QueryRow(ctx, `
		INSERT INTO tickets (title, description, type, urgency, status, assigned_to, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		ticket.Title, ticket.Description, ticket.Type, ticket.Urgency, ticket.Status,
		nullIfEmpty(ticket.Assignee), ticket.UserID, ticket.CreatedAt,
	).Scan(&ticket.ID)
	if err != nil {
		return fmt.Errorf("inserting ticket: %w", err)
	}

	s.logger.Debug("created ticket", "id", ticket.ID, "user_id", ticket.UserID)
	return nil
}

const pgTicketColumns = `
	t.id, t.title, t.description, t.type, t.urgency, t.status,
	COALESCE(t.assigned_to, ''), t.user_id, u.email, t.created_at
`

// GetTicket retrieves a ticket by ID.
func (s *PostgresStore) GetTicket(ctx context.Context, id int64) (*Ticket, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgTicketColumns+`
		FROM tickets t
		JOIN users u ON u.id = t.user_id
		WHERE t.id = $1`, id)

	t, err := scanPgTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying ticket: %w", err)
	}
	return t, nil
}

// ListTickets returns tickets matching the filter, newest first.
func (s *PostgresStore) ListTickets(ctx context.Context, filter TicketFilter) ([]*Ticket, error) {
	where, args := buildTicketWhere(filter, dollar, func(t time.Time) any { return t })

	rows, err := s.pool.Query(ctx, `SELECT `+pgTicketColumns+`
		FROM tickets t
		JOIN users u ON u.id = t.user_id
		`+where+`
		ORDER BY t.created_at DESC, t.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		t, err := scanPgTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tickets: %w", err)
	}
	return tickets, nil
}

// UpdateTicketStatus overwrites status and assignee of a ticket.
func (s *PostgresStore) UpdateTicketStatus(ctx context.Context, id int64, status, assignee string) error {
	ct, err := s.pool.Exec(ctx, `UPDATE tickets SET status = $1, assigned_to = $2 WHERE id = $3`,
		status, nullIfEmpty(assignee), id)
	if err != nil {
		return fmt.Errorf("updating ticket: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Info("updated ticket", "id", id, "status", status, "assignee", assignee)
	return nil
}

// CreateComment inserts a comment and sets comment.ID.
func (s *PostgresStore) CreateComment(ctx context.Context, comment *Comment) error {
	comment.CreatedAt = normalizeTime(comment.CreatedAt)
	err := s.pool.QueryRow(ctx, `
		INSERT INTO comments (ticket_id, author_email, text, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		comment.TicketID, comment.Author, comment.Text, comment.CreatedAt,
	).Scan(&comment.ID)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return ErrNotFound
		}
		return fmt.Errorf("inserting comment: %w", err)
	}

	s.logger.Debug("created comment", "id", comment.ID, "ticket_id", comment.TicketID)
	return nil
}

// ListComments returns the comments of a ticket, oldest first.
func (s *PostgresStore) ListComments(ctx context.Context, ticketID int64) ([]*Comment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, ticket_id, author_email, text, created_at
		FROM comments
		WHERE ticket_id = $1
		ORDER BY created_at ASC, id ASC`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.Author, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}
	return comments, nil
}

// CreateSession stores a new browser session.
func (s *PostgresStore) CreateSession(ctx context.Context, session *Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, normalizeTime(session.CreatedAt), normalizeTime(session.ExpiresAt))
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession retrieves a session that has not yet expired.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > now()`, id,
	).Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	session.CreatedAt = session.CreatedAt.UTC()
	session.ExpiresAt = session.ExpiresAt.UTC()
	return &session, nil
}

// DeleteSession removes a session.
func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions purges expired sessions and returns how many were removed.
func (s *PostgresStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	if n := ct.RowsAffected(); n > 0 {
		s.logger.Info("purged expired sessions", "count", n)
	}
	return ct.RowsAffected(), nil
}

func scanPgTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Type, &t.Urgency, &t.Status,
		&t.Assignee, &t.UserID, &t.OwnerEmail, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

// pgErrorCode returns the SQLSTATE of a PostgreSQL error, or "" for other errors.
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
