// Package store provides persistent storage for the helpdesk.
//
// # Architecture
//
// Store is the single persistence interface. Three implementations exist:
//
//   - SQLiteStore: default backend on modernc.org/sqlite (pure Go)
//   - PostgresStore: pgx/v5 connection pool, selected with database.driver
//   - MockStore: in-memory, for unit tests
//
// # Data Models
//
//   - User: registered account, unique email, bcrypt hash
//   - Ticket: support request owned by one user; status starts as "new"
//   - Comment: admin note on a ticket, author stored as an email snapshot
//   - Session: browser login token with an expiry
//
// # Filtering
//
// ListTickets takes a TicketFilter. Every non-zero field adds one AND
// predicate; the SQL backends build the WHERE clause with buildTicketWhere
// and MockStore evaluates the same predicate in Go. Results are ordered
// newest first with id as the tie-breaker; comments are ordered oldest first.
//
// # Timestamps
//
// All timestamps are stored in UTC truncated to whole seconds. SQLite keeps
// them as RFC3339 text, which sorts chronologically; PostgreSQL uses
// TIMESTAMPTZ.
//
// # Error Handling
//
//   - ErrNotFound: requested entity does not exist (or session expired)
//   - ErrEmailExists: unique email violated on CreateUser
//
// Concurrent writes are last-write-wins; the store adds no locking beyond
// what the database provides.
package store
