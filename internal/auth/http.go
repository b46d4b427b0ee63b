// ABOUTME: HTTP middleware resolving the session cookie into an Identity
// ABOUTME: RequireUser redirects anonymous requests to the login page

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/2389/helpdesk/internal/store"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "helpdesk_session"

// SessionStore is the subset of store.Store needed to resolve sessions.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*store.Session, error)
	GetUser(ctx context.Context, id int64) (*store.User, error)
}

// IdentityResolver maps a session token to the Identity it belongs to.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*Identity, error)
}

// LookupIdentity maps a session token to an Identity. It returns
// store.ErrNotFound for unknown or expired sessions and for sessions whose
// user no longer exists.
func LookupIdentity(ctx context.Context, sessions SessionStore, admins *AdminList, token string) (*Identity, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	sess, err := sessions.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := sessions.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return &Identity{
		UserID: user.ID,
		Email:  user.Email,
		Admin:  admins.IsAdmin(user.Email),
	}, nil
}

// SessionMiddleware attaches the Identity for a valid session cookie.
// Requests without one continue anonymously; store failures are logged and
// also treated as anonymous so RequireUser sends the browser to login.
func SessionMiddleware(resolver IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			id, err := resolver.ResolveIdentity(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					logger.Error("resolving session", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// StoreResolver resolves sessions directly against a store.
type StoreResolver struct {
	Sessions SessionStore
	Admins   *AdminList
}

// ResolveIdentity implements IdentityResolver.
func (s StoreResolver) ResolveIdentity(ctx context.Context, token string) (*Identity, error) {
	return LookupIdentity(ctx, s.Sessions, s.Admins, token)
}

// RequireUser redirects to loginPath unless SessionMiddleware attached an Identity.
func RequireUser(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if FromContext(r.Context()) == nil {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
