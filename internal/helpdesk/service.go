// ABOUTME: Service holds the helpdesk rules behind every web handler
// ABOUTME: Registration, login, dashboard filtering and admin ticket mutations

package helpdesk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/2389/helpdesk/internal/auth"
	"github.com/2389/helpdesk/internal/store"
)

// Domain errors. Handlers map these onto flash messages or status codes.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("access denied")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidDate        = errors.New("invalid date")
)

// DefaultSessionTTL is used when WithSessionTTL is not supplied.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Clock supplies the current time. Tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Service implements the helpdesk operations on top of a store.Store.
type Service struct {
	store      store.Store
	admins     *auth.AdminList
	clock      Clock
	sessionTTL time.Duration
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for ticket, comment and user timestamps.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithSessionTTL sets how long new login sessions stay valid.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithLogger sets the logger; the component attribute is added automatically.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service. admins is fixed for the life of the Service.
func New(st store.Store, admins *auth.AdminList, opts ...Option) *Service {
	s := &Service{
		store:      st,
		admins:     admins,
		clock:      realClock{},
		sessionTTL: DefaultSessionTTL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "helpdesk")
	return s
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Second)
}
