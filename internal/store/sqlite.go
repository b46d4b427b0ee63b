// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Opens the database with WAL and foreign keys and creates the schema

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// sqlitePragmas are applied to every pooled connection through the DSN, so
// foreign keys hold no matter which connection serves a query.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store", "driver", "sqlite")

	dir := filepath.Dir(sqliteFilePath(path))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// sqliteDSN appends the pragmas to path, which may already carry URI
// query parameters such as file:helpdesk.db?cache=shared.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + sqlitePragmas
}

// sqliteFilePath strips a file: scheme and query from path, leaving the
// filesystem location of the database.
func sqliteFilePath(path string) string {
	p := strings.TrimPrefix(path, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tickets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			type TEXT NOT NULL,
			urgency TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'new',
			assigned_to TEXT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_user ON tickets(user_id);
		CREATE INDEX IF NOT EXISTS idx_tickets_created ON tickets(created_at);

		CREATE TABLE IF NOT EXISTS comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_id INTEGER NOT NULL REFERENCES tickets(id),
			author_email TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_comments_ticket ON comments(ticket_id, created_at);

		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping verifies the database connection is alive
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// CreateUser inserts a new user and sets user.ID.
// Returns ErrEmailExists if the email is already registered.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (email, password_hash, created_at)
		VALUES (?, ?, ?)
	`

	user.CreatedAt = normalizeTime(user.CreatedAt)
	result, err := s.db.ExecContext(ctx, query,
		user.Email,
		user.PasswordHash,
		formatSQLiteTime(user.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting user id: %w", err)
	}

	s.logger.Info("created user", "id", user.ID, "email", user.Email)
	return nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var user User
	var createdAtStr string

	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	user.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &user, nil
}

// CreateTicket inserts a new ticket and sets ticket.ID.
// An empty Status is stored as DefaultTicketStatus.
func (s *SQLiteStore) CreateTicket(ctx context.Context, ticket *Ticket) error {
	query := `
		INSERT INTO tickets (title, description, type, urgency, status, assigned_to, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if ticket.Status == "" {
		ticket.Status = DefaultTicketStatus
	}
	ticket.CreatedAt = normalizeTime(ticket.CreatedAt)

	result, err := s.db.ExecContext(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Type,
		ticket.Urgency,
		ticket.Status,
		nullIfEmpty(ticket.Assignee),
		ticket.UserID,
		formatSQLiteTime(ticket.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting ticket: %w", err)
	}

	ticket.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting ticket id: %w", err)
	}

	s.logger.Debug("created ticket", "id", ticket.ID, "user_id", ticket.UserID)
	return nil
}

const sqliteTicketColumns = `
	t.id, t.title, t.description, t.type, t.urgency, t.status,
	COALESCE(t.assigned_to, ''), t.user_id, u.email, t.created_at
`

// GetTicket retrieves a ticket by ID.
// Returns ErrNotFound if the ticket doesn't exist.
func (s *SQLiteStore) GetTicket(ctx context.Context, id int64) (*Ticket, error) {
	query := `SELECT ` + sqliteTicketColumns + `
		FROM tickets t
		JOIN users u ON u.id = t.user_id
		WHERE t.id = ?
	`

	ticket, err := scanSQLiteTicket(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying ticket: %w", err)
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter, newest first.
func (s *SQLiteStore) ListTickets(ctx context.Context, filter TicketFilter) ([]*Ticket, error) {
	where, args := buildTicketWhere(filter, questionMark, func(t time.Time) any {
		return formatSQLiteTime(t)
	})

	query := `SELECT ` + sqliteTicketColumns + `
		FROM tickets t
		JOIN users u ON u.id = t.user_id
		` + where + `
		ORDER BY t.created_at DESC, t.id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tickets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tickets []*Ticket
	for rows.Next() {
		ticket, err := scanSQLiteTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tickets: %w", err)
	}
	return tickets, nil
}

// UpdateTicketStatus overwrites status and assignee of a ticket.
// An empty assignee clears the assignment.
func (s *SQLiteStore) UpdateTicketStatus(ctx context.Context, id int64, status, assignee string) error {
	query := `UPDATE tickets SET status = ?, assigned_to = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, status, nullIfEmpty(assignee), id)
	if err != nil {
		return fmt.Errorf("updating ticket: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("updated ticket", "id", id, "status", status, "assignee", assignee)
	return nil
}

// CreateComment inserts a comment and sets comment.ID.
// Returns ErrNotFound if the parent ticket doesn't exist.
func (s *SQLiteStore) CreateComment(ctx context.Context, comment *Comment) error {
	query := `
		INSERT INTO comments (ticket_id, author_email, text, created_at)
		VALUES (?, ?, ?, ?)
	`

	comment.CreatedAt = normalizeTime(comment.CreatedAt)
	result, err := s.db.ExecContext(ctx, query,
		comment.TicketID,
		comment.Author,
		comment.Text,
		formatSQLiteTime(comment.CreatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrNotFound
		}
		return fmt.Errorf("inserting comment: %w", err)
	}

	comment.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting comment id: %w", err)
	}

	s.logger.Debug("created comment", "id", comment.ID, "ticket_id", comment.TicketID)
	return nil
}

// ListComments returns the comments of a ticket, oldest first.
func (s *SQLiteStore) ListComments(ctx context.Context, ticketID int64) ([]*Comment, error) {
	query := `
		SELECT id, ticket_id, author_email, text, created_at
		FROM comments
		WHERE ticket_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*Comment
	for rows.Next() {
		var c Comment
		var createdAtStr string
		if err := rows.Scan(&c.ID, &c.TicketID, &c.Author, &c.Text, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		c.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		comments = append(comments, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}
	return comments, nil
}

// CreateSession stores a new browser session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		formatSQLiteTime(session.CreatedAt),
		formatSQLiteTime(session.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession retrieves a session that has not yet expired.
// Returns ErrNotFound for unknown or expired sessions.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, user_id, created_at, expires_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`

	var session Session
	var createdAtStr, expiresAtStr string

	err := s.db.QueryRowContext(ctx, query, id, formatSQLiteTime(time.Now())).Scan(
		&session.ID,
		&session.UserID,
		&createdAtStr,
		&expiresAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	session.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session. Deleting an unknown session is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions purges expired sessions and returns how many were removed.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatSQLiteTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Info("purged expired sessions", "count", n)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTicket(row rowScanner) (*Ticket, error) {
	var t Ticket
	var createdAtStr string

	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Type, &t.Urgency, &t.Status,
		&t.Assignee, &t.UserID, &t.OwnerEmail, &createdAtStr,
	); err != nil {
		return nil, err
	}

	var err error
	t.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &t, nil
}

// formatSQLiteTime renders timestamps as fixed-width UTC RFC3339 so string
// comparison in SQL matches chronological order.
func formatSQLiteTime(t time.Time) string {
	return normalizeTime(t).Format(time.RFC3339)
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyError checks if the error is a SQLite FOREIGN KEY constraint violation
func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
