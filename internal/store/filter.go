// ABOUTME: Dynamic WHERE clause construction for ticket listing
// ABOUTME: Shared by the SQLite and PostgreSQL backends via a placeholder func

package store

import (
	"strconv"
	"strings"
	"time"
)

// placeholder renders the n-th (1-based) bind parameter for a SQL dialect.
type placeholder func(n int) string

func questionMark(int) string { return "?" }

func dollar(n int) string { return "$" + strconv.Itoa(n) }

// buildTicketWhere composes the WHERE clause and args for a TicketFilter.
// formatTime converts bound timestamps to the representation the backend
// stores (RFC3339 text for SQLite, time.Time for pgx).
func buildTicketWhere(f TicketFilter, ph placeholder, formatTime func(time.Time) any) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	add := func(expr string, v any) {
		args = append(args, v)
		clauses = append(clauses, expr+ph(len(args)))
	}

	if f.OwnerID != 0 {
		add("t.user_id = ", f.OwnerID)
	}
	if f.Type != "" {
		add("t.type = ", f.Type)
	}
	if f.Urgency != "" {
		add("t.urgency = ", f.Urgency)
	}
	if f.Status != "" {
		add("t.status = ", f.Status)
	}
	if f.CreatedFrom != nil {
		add("t.created_at >= ", formatTime(normalizeTime(*f.CreatedFrom)))
	}
	if f.CreatedTo != nil {
		add("t.created_at <= ", formatTime(normalizeTime(*f.CreatedTo)))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// matches reports whether a ticket satisfies the filter. Used by MockStore so
// both implementations share one definition of the predicate.
func (f TicketFilter) matches(t *Ticket) bool {
	if f.OwnerID != 0 && t.UserID != f.OwnerID {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Urgency != "" && t.Urgency != f.Urgency {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	created := normalizeTime(t.CreatedAt)
	if f.CreatedFrom != nil && created.Before(normalizeTime(*f.CreatedFrom)) {
		return false
	}
	if f.CreatedTo != nil && created.After(normalizeTime(*f.CreatedTo)) {
		return false
	}
	return true
}
