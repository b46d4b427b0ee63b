// ABOUTME: Behaviour tests shared by every Store implementation
// ABOUTME: Runs the same suite against SQLite, MockStore and (optionally) PostgreSQL

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// storeFactory returns a fresh, empty store for one test.
type storeFactory func(t *testing.T) Store

func TestSQLiteStoreSuite(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return newTestStore(t) })
}

func TestMockStoreSuite(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return NewMockStore() })
}

func TestPostgresStoreSuite(t *testing.T) {
	dsn := os.Getenv("HELPDESK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HELPDESK_TEST_POSTGRES_DSN not set")
	}
	runStoreSuite(t, func(t *testing.T) Store {
		ctx := context.Background()
		s, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			t.Fatalf("NewPostgresStore failed: %v", err)
		}
		if _, err := s.pool.Exec(ctx, `TRUNCATE comments, sessions, tickets, users RESTART IDENTITY CASCADE`); err != nil {
			t.Fatalf("truncating tables: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func runStoreSuite(t *testing.T, newStore storeFactory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"CreateAndGetUser", testCreateAndGetUser},
		{"DuplicateEmail", testDuplicateEmail},
		{"UserNotFound", testUserNotFound},
		{"CreateTicketDefaults", testCreateTicketDefaults},
		{"TicketNotFound", testTicketNotFound},
		{"ListTicketsByOwner", testListTicketsByOwner},
		{"ListTicketsFiltersAreConjunctive", testListTicketsConjunctive},
		{"ListTicketsDateBounds", testListTicketsDateBounds},
		{"ListTicketsNewestFirst", testListTicketsNewestFirst},
		{"UpdateTicketStatus", testUpdateTicketStatus},
		{"UpdateTicketStatusNotFound", testUpdateTicketStatusNotFound},
		{"CommentsOldestFirst", testCommentsOldestFirst},
		{"CommentOnMissingTicket", testCommentOnMissingTicket},
		{"Sessions", testSessions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

var baseTime = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func mustCreateUser(t *testing.T, s Store, email string) *User {
	t.Helper()
	u := &User{Email: email, PasswordHash: "hash-" + email, CreatedAt: baseTime}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%q) failed: %v", email, err)
	}
	return u
}

func mustCreateTicket(t *testing.T, s Store, owner *User, typ, urgency string, created time.Time) *Ticket {
	t.Helper()
	tk := &Ticket{
		Title:       "ticket " + typ,
		Description: "description",
		Type:        typ,
		Urgency:     urgency,
		UserID:      owner.ID,
		CreatedAt:   created,
	}
	if err := s.CreateTicket(context.Background(), tk); err != nil {
		t.Fatalf("CreateTicket failed: %v", err)
	}
	return tk
}

func ticketIDs(tickets []*Ticket) []int64 {
	ids := make([]int64, 0, len(tickets))
	for _, tk := range tickets {
		ids = append(ids, tk.ID)
	}
	return ids
}

func equalIDs(got, want []int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func testCreateAndGetUser(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "a@x.com")
	if u.ID == 0 {
		t.Fatal("expected CreateUser to assign an ID")
	}

	got, err := s.GetUserByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != u.ID || got.PasswordHash != "hash-a@x.com" {
		t.Errorf("GetUserByEmail = %+v, want id %d", got, u.ID)
	}
	if !got.CreatedAt.Equal(baseTime) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, baseTime)
	}

	byID, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if byID.Email != "a@x.com" {
		t.Errorf("GetUser email = %q, want %q", byID.Email, "a@x.com")
	}
}

func testDuplicateEmail(t *testing.T, s Store) {
	mustCreateUser(t, s, "dup@x.com")
	err := s.CreateUser(context.Background(), &User{Email: "dup@x.com", PasswordHash: "other", CreatedAt: baseTime})
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
}

func testUserNotFound(t *testing.T, s Store) {
	if _, err := s.GetUserByEmail(context.Background(), "nobody@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByEmail: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetUser(context.Background(), 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser: expected ErrNotFound, got %v", err)
	}
}

func testCreateTicketDefaults(t *testing.T, s Store) {
	owner := mustCreateUser(t, s, "owner@x.com")
	tk := mustCreateTicket(t, s, owner, "hardware", "high", baseTime.Add(750*time.Millisecond))

	got, err := s.GetTicket(context.Background(), tk.ID)
	if err != nil {
		t.Fatalf("GetTicket failed: %v", err)
	}
	if got.Status != DefaultTicketStatus {
		t.Errorf("Status = %q, want %q", got.Status, DefaultTicketStatus)
	}
	if got.Assignee != "" {
		t.Errorf("Assignee = %q, want empty", got.Assignee)
	}
	if got.OwnerEmail != "owner@x.com" {
		t.Errorf("OwnerEmail = %q, want %q", got.OwnerEmail, "owner@x.com")
	}
	if !got.CreatedAt.Equal(baseTime) {
		t.Errorf("CreatedAt = %v, want %v (truncated to seconds)", got.CreatedAt, baseTime)
	}
}

func testTicketNotFound(t *testing.T, s Store) {
	if _, err := s.GetTicket(context.Background(), 424242); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testListTicketsByOwner(t *testing.T, s Store) {
	alice := mustCreateUser(t, s, "alice@x.com")
	bob := mustCreateUser(t, s, "bob@x.com")
	a1 := mustCreateTicket(t, s, alice, "hardware", "high", baseTime)
	mustCreateTicket(t, s, bob, "software", "low", baseTime.Add(time.Minute))
	a2 := mustCreateTicket(t, s, alice, "network", "low", baseTime.Add(2*time.Minute))

	got, err := s.ListTickets(context.Background(), TicketFilter{OwnerID: alice.ID})
	if err != nil {
		t.Fatalf("ListTickets failed: %v", err)
	}
	if want := []int64{a2.ID, a1.ID}; !equalIDs(ticketIDs(got), want) {
		t.Errorf("ListTickets(owner=alice) = %v, want %v", ticketIDs(got), want)
	}
	for _, tk := range got {
		if tk.UserID != alice.ID {
			t.Errorf("ticket %d belongs to user %d, want %d", tk.ID, tk.UserID, alice.ID)
		}
	}
}

func testListTicketsConjunctive(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "u@x.com")
	match := mustCreateTicket(t, s, u, "hardware", "high", baseTime)
	mustCreateTicket(t, s, u, "hardware", "low", baseTime)
	mustCreateTicket(t, s, u, "software", "high", baseTime)
	closed := mustCreateTicket(t, s, u, "hardware", "high", baseTime)
	if err := s.UpdateTicketStatus(ctx, closed.ID, "closed", ""); err != nil {
		t.Fatalf("UpdateTicketStatus failed: %v", err)
	}

	got, err := s.ListTickets(ctx, TicketFilter{Type: "hardware", Urgency: "high", Status: "new"})
	if err != nil {
		t.Fatalf("ListTickets failed: %v", err)
	}
	if want := []int64{match.ID}; !equalIDs(ticketIDs(got), want) {
		t.Errorf("ListTickets = %v, want %v", ticketIDs(got), want)
	}

	all, err := s.ListTickets(ctx, TicketFilter{})
	if err != nil {
		t.Fatalf("ListTickets(all) failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("ListTickets(all) returned %d tickets, want 4", len(all))
	}
}

func testListTicketsDateBounds(t *testing.T, s Store) {
	u := mustCreateUser(t, s, "dates@x.com")
	dayStart := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2024, 3, 12, 23, 59, 59, 0, time.UTC)

	before := mustCreateTicket(t, s, u, "t", "u", dayStart.Add(-time.Second))
	atStart := mustCreateTicket(t, s, u, "t", "u", dayStart)
	atEnd := mustCreateTicket(t, s, u, "t", "u", dayEnd)
	after := mustCreateTicket(t, s, u, "t", "u", dayEnd.Add(time.Second))

	got, err := s.ListTickets(context.Background(), TicketFilter{CreatedFrom: &dayStart, CreatedTo: &dayEnd})
	if err != nil {
		t.Fatalf("ListTickets failed: %v", err)
	}
	if want := []int64{atEnd.ID, atStart.ID}; !equalIDs(ticketIDs(got), want) {
		t.Errorf("ListTickets(date range) = %v, want %v (excluded %d and %d)",
			ticketIDs(got), want, before.ID, after.ID)
	}
}

func testListTicketsNewestFirst(t *testing.T, s Store) {
	u := mustCreateUser(t, s, "order@x.com")
	older := mustCreateTicket(t, s, u, "t", "u", baseTime)
	newer := mustCreateTicket(t, s, u, "t", "u", baseTime.Add(time.Hour))
	sameSecond := mustCreateTicket(t, s, u, "t", "u", baseTime.Add(time.Hour))

	got, err := s.ListTickets(context.Background(), TicketFilter{})
	if err != nil {
		t.Fatalf("ListTickets failed: %v", err)
	}
	if want := []int64{sameSecond.ID, newer.ID, older.ID}; !equalIDs(ticketIDs(got), want) {
		t.Errorf("ListTickets order = %v, want %v", ticketIDs(got), want)
	}
}

func testUpdateTicketStatus(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "upd@x.com")
	tk := mustCreateTicket(t, s, u, "hardware", "high", baseTime)

	for i := 0; i < 2; i++ {
		if err := s.UpdateTicketStatus(ctx, tk.ID, "in progress", "ops@x.local"); err != nil {
			t.Fatalf("UpdateTicketStatus #%d failed: %v", i+1, err)
		}
		got, err := s.GetTicket(ctx, tk.ID)
		if err != nil {
			t.Fatalf("GetTicket failed: %v", err)
		}
		if got.Status != "in progress" || got.Assignee != "ops@x.local" {
			t.Errorf("after update #%d: status=%q assignee=%q", i+1, got.Status, got.Assignee)
		}
	}

	if err := s.UpdateTicketStatus(ctx, tk.ID, "resolved", ""); err != nil {
		t.Fatalf("UpdateTicketStatus(clear) failed: %v", err)
	}
	got, err := s.GetTicket(ctx, tk.ID)
	if err != nil {
		t.Fatalf("GetTicket failed: %v", err)
	}
	if got.Assignee != "" {
		t.Errorf("Assignee = %q, want cleared", got.Assignee)
	}
}

func testUpdateTicketStatusNotFound(t *testing.T, s Store) {
	err := s.UpdateTicketStatus(context.Background(), 31337, "closed", "x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testCommentsOldestFirst(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "c@x.com")
	tk := mustCreateTicket(t, s, u, "t", "u", baseTime)
	other := mustCreateTicket(t, s, u, "t", "u", baseTime)

	texts := []string{"first", "second", "third"}
	for i, text := range texts {
		c := &Comment{TicketID: tk.ID, Author: "admin@tracker.local", Text: text, CreatedAt: baseTime.Add(time.Duration(i) * time.Minute)}
		if err := s.CreateComment(ctx, c); err != nil {
			t.Fatalf("CreateComment failed: %v", err)
		}
	}
	if err := s.CreateComment(ctx, &Comment{TicketID: other.ID, Author: "a", Text: "elsewhere", CreatedAt: baseTime}); err != nil {
		t.Fatalf("CreateComment(other) failed: %v", err)
	}

	got, err := s.ListComments(ctx, tk.ID)
	if err != nil {
		t.Fatalf("ListComments failed: %v", err)
	}
	if len(got) != len(texts) {
		t.Fatalf("ListComments returned %d comments, want %d", len(got), len(texts))
	}
	for i, c := range got {
		if c.Text != texts[i] {
			t.Errorf("comment[%d] = %q, want %q", i, c.Text, texts[i])
		}
		if c.Author != "admin@tracker.local" {
			t.Errorf("comment[%d] author = %q", i, c.Author)
		}
	}
}

func testCommentOnMissingTicket(t *testing.T, s Store) {
	err := s.CreateComment(context.Background(), &Comment{TicketID: 777, Author: "a", Text: "x", CreatedAt: baseTime})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testSessions(t *testing.T, s Store) {
	ctx := context.Background()
	u := mustCreateUser(t, s, "sess@x.com")
	now := time.Now()

	live := &Session{ID: "live-token", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	expired := &Session{ID: "old-token", UserID: u.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	for _, sess := range []*Session{live, expired} {
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession(%s) failed: %v", sess.ID, err)
		}
	}

	got, err := s.GetSession(ctx, "live-token")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.UserID != u.ID {
		t.Errorf("session user = %d, want %d", got.UserID, u.ID)
	}

	if _, err := s.GetSession(ctx, "old-token"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired session: expected ErrNotFound, got %v", err)
	}

	n, err := s.DeleteExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpiredSessions removed %d, want 1", n)
	}

	if err := s.DeleteSession(ctx, "live-token"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := s.GetSession(ctx, "live-token"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted session: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteSession(ctx, "never-existed"); err != nil {
		t.Errorf("DeleteSession(unknown) returned %v, want nil", err)
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestNewSQLiteStore_FileURIWithQuery(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uri", "test.db")

	store, err := NewSQLiteStore("file:" + dbPath + "?cache=shared")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created at the URI path")
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		path     string
		wantDSN  string
		wantFile string
	}{
		{"/var/lib/helpdesk.db", "/var/lib/helpdesk.db?" + sqlitePragmas, "/var/lib/helpdesk.db"},
		{"file:/var/lib/helpdesk.db?cache=shared", "file:/var/lib/helpdesk.db?cache=shared&" + sqlitePragmas, "/var/lib/helpdesk.db"},
		{"file:helpdesk.db", "file:helpdesk.db?" + sqlitePragmas, "helpdesk.db"},
	}

	for _, tt := range tests {
		if got := sqliteDSN(tt.path); got != tt.wantDSN {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.path, got, tt.wantDSN)
		}
		if got := sqliteFilePath(tt.path); got != tt.wantFile {
			t.Errorf("sqliteFilePath(%q) = %q, want %q", tt.path, got, tt.wantFile)
		}
	}
}

func TestNewSQLiteStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	first, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	u := &User{Email: "keep@x.com", PasswordHash: "h", CreatedAt: baseTime}
	if err := first.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopening store failed: %v", err)
	}
	defer second.Close()

	if _, err := second.GetUserByEmail(context.Background(), "keep@x.com"); err != nil {
		t.Errorf("user lost after reopen: %v", err)
	}
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}
