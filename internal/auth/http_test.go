// ABOUTME: Tests for session middleware and the login redirect gate
// ABOUTME: Covers cookie resolution, expired sessions, admin derivation and redirects

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/2389/helpdesk/internal/store"
)

func seedSession(t *testing.T, email string, expires time.Duration) (*store.MockStore, string) {
	t.Helper()
	ctx := context.Background()
	s := store.NewMockStore()

	user := &store.User{Email: email, PasswordHash: "h", CreatedAt: time.Now()}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	sess := &store.Session{ID: "token-" + email, UserID: user.ID, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(expires)}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	return s, sess.ID
}

func runMiddleware(t *testing.T, s SessionStore, admins *AdminList, cookie string) *Identity {
	t.Helper()
	var got *Identity
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	resolver := StoreResolver{Sessions: s, Admins: admins}
	SessionMiddleware(resolver, nil)(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	return got
}

func TestSessionMiddleware_ValidSession(t *testing.T) {
	s, token := seedSession(t, "a@x.com", time.Hour)

	got := runMiddleware(t, s, NewAdminList(nil), token)
	if got == nil {
		t.Fatal("expected Identity in context")
	}
	if got.Email != "a@x.com" {
		t.Errorf("Email = %q, want %q", got.Email, "a@x.com")
	}
	if got.IsAdmin() {
		t.Error("non-listed user reported as admin")
	}
}

func TestSessionMiddleware_AdminDerivedPerRequest(t *testing.T) {
	s, token := seedSession(t, "admin@tracker.local", time.Hour)

	if got := runMiddleware(t, s, NewAdminList([]string{"admin@tracker.local"}), token); !got.IsAdmin() {
		t.Error("expected admin identity while listed")
	}
	// Same session, list no longer contains the email.
	if got := runMiddleware(t, s, NewAdminList(nil), token); got.IsAdmin() {
		t.Error("admin flag survived removal from the allow-list")
	}
}

func TestSessionMiddleware_Anonymous(t *testing.T) {
	s, _ := seedSession(t, "a@x.com", time.Hour)

	tests := []struct {
		name   string
		cookie string
	}{
		{"no cookie", ""},
		{"unknown token", "does-not-exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runMiddleware(t, s, nil, tt.cookie); got != nil {
				t.Errorf("expected anonymous request, got %+v", got)
			}
		})
	}
}

func TestSessionMiddleware_ExpiredSession(t *testing.T) {
	s, token := seedSession(t, "a@x.com", -time.Minute)
	if got := runMiddleware(t, s, nil, token); got != nil {
		t.Errorf("expired session resolved to %+v", got)
	}
}

type failingSessions struct{}

func (failingSessions) GetSession(ctx context.Context, id string) (*store.Session, error) {
	return nil, errors.New("database is locked")
}

func (failingSessions) GetUser(ctx context.Context, id int64) (*store.User, error) {
	return nil, errors.New("unreachable")
}

func TestSessionMiddleware_StoreErrorIsAnonymous(t *testing.T) {
	if got := runMiddleware(t, failingSessions{}, nil, "any"); got != nil {
		t.Errorf("store failure resolved to %+v", got)
	}
}

func TestRequireUser(t *testing.T) {
	protected := RequireUser("/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("anonymous redirects", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

		if rec.Code != http.StatusSeeOther {
			t.Errorf("expected status 303, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/login" {
			t.Errorf("Location = %q, want /login", loc)
		}
	})

	t.Run("identity passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req = req.WithContext(WithIdentity(req.Context(), &Identity{UserID: 1, Email: "a@x.com"}))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rec.Code)
		}
	})
}
