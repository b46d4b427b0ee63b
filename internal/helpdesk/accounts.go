// ABOUTME: User registration, login and logout
// ABOUTME: Login issues a random session token persisted through the store

package helpdesk

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2389/helpdesk/internal/auth"
	"github.com/2389/helpdesk/internal/store"
)

// sessionTokenBytes is the entropy of a session token before hex encoding.
const sessionTokenBytes = 32

type registerInput struct {
	Email    string `form:"email" validate:"required,max=120"`
	// bcrypt rejects passwords longer than 72 bytes
	Password string `form:"password" validate:"required,maxbytes=72"`
}

// Register creates a new user with a bcrypt-hashed password.
// Returns a ValidationError for empty or over-long fields and
// store.ErrEmailExists when the email is taken.
func (s *Service) Register(ctx context.Context, email, password string) (*store.User, error) {
	in := registerInput{Email: strings.TrimSpace(email), Password: password}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &store.User{
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate verifies credentials and returns the caller's Identity.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*auth.Identity, error) {
	email = strings.TrimSpace(email)

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			auth.BurnPasswordCheck(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return &auth.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Admin:  s.admins.IsAdmin(user.Email),
	}, nil
}

// Login authenticates and opens a new session. The returned Session.ID is
// the cookie value.
func (s *Service) Login(ctx context.Context, email, password string) (*auth.Identity, *store.Session, error) {
	id, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	token, err := generateSecureToken(sessionTokenBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("generating session token: %w", err)
	}

	// Expiry is checked by the store against wall time, so sessions ignore
	// the injected clock.
	now := time.Now().UTC().Truncate(time.Second)
	sess := &store.Session{
		ID:        token,
		UserID:    id.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Info("user logged in", "user_id", id.UserID, "admin", id.Admin)
	return id, sess, nil
}

// Logout deletes the session. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// ResolveIdentity implements auth.IdentityResolver. The admin flag is
// recomputed from the allow-list on every call.
func (s *Service) ResolveIdentity(ctx context.Context, token string) (*auth.Identity, error) {
	return auth.StoreResolver{Sessions: s.store, Admins: s.admins}.ResolveIdentity(ctx, token)
}

// PurgeExpiredSessions removes sessions past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return n, nil
}

// generateSecureToken returns n random bytes, hex encoded.
func generateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
