// ABOUTME: Browser UI package for the helpdesk
// ABOUTME: Builds the chi router with session auth, CSRF, flash messages and rate limits

package webui

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/2389/helpdesk/internal/auth"
	"github.com/2389/helpdesk/internal/helpdesk"
	"github.com/2389/helpdesk/internal/store"
)

// DefaultAuthRequestsPerMinute limits POST /login and POST /register per client IP.
const DefaultAuthRequestsPerMinute = 20

// Service is what the handlers need from the domain layer.
type Service interface {
	auth.IdentityResolver

	Register(ctx context.Context, email, password string) (*store.User, error)
	Login(ctx context.Context, email, password string) (*auth.Identity, *store.Session, error)
	Logout(ctx context.Context, token string) error

	Dashboard(ctx context.Context, id *auth.Identity, q helpdesk.DashboardQuery) ([]helpdesk.TicketView, error)
	CreateTicket(ctx context.Context, id *auth.Identity, in helpdesk.NewTicket) (*store.Ticket, error)
	UpdateTicket(ctx context.Context, id *auth.Identity, ticketID int64, status, assignee string) error
	AddComment(ctx context.Context, id *auth.Identity, ticketID int64, text string) (*store.Comment, error)

	Ping(ctx context.Context) error
}

// Ensure the domain service satisfies the handler contract.
var _ Service = (*helpdesk.Service)(nil)

// Config holds web UI configuration.
type Config struct {
	// AuthRequestsPerMinute caps login/register submissions per IP. Zero uses
	// the default; a negative value disables the limit.
	AuthRequestsPerMinute int
}

// UI handles helpdesk routes.
type UI struct {
	svc       Service
	flash     *auth.FlashSigner
	config    Config
	logger    *slog.Logger
	templates *templateSet
}

// New creates the UI. flash signs the flash-message cookie.
func New(svc Service, flash *auth.FlashSigner, cfg Config) *UI {
	if cfg.AuthRequestsPerMinute == 0 {
		cfg.AuthRequestsPerMinute = DefaultAuthRequestsPerMinute
	}
	return &UI{
		svc:       svc,
		flash:     flash,
		config:    cfg,
		logger:    slog.Default().With("component", "webui"),
		templates: mustLoadTemplates(),
	}
}

// Handler returns the complete HTTP handler for the application.
func (u *UI) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(u.logger))
	r.Use(Recoverer(u.logger))
	r.Use(auth.SessionMiddleware(u.svc, u.logger))
	r.Use(u.csrfProtect)

	r.Get("/healthz", u.handleHealth)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	limited := r.With(u.authRateLimit())
	r.Get("/register", u.handleRegisterPage)
	limited.Post("/register", u.handleRegister)
	r.Get("/login", u.handleLoginPage)
	limited.Post("/login", u.handleLogin)
	r.Get("/logout", u.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser("/login"))

		r.Get("/dashboard", u.handleDashboard)
		r.Get("/create", u.handleCreatePage)
		r.Post("/create", u.handleCreate)
		r.Post("/update_ticket/{ticket_id}", u.handleUpdateTicket)
		r.Post("/add_comment/{ticket_id}", u.handleAddComment)
	})

	u.logger.Info("routes registered", "auth_requests_per_minute", u.config.AuthRequestsPerMinute)
	return r
}

// authRateLimit limits credential submissions per client IP.
func (u *UI) authRateLimit() func(http.Handler) http.Handler {
	if u.config.AuthRequestsPerMinute < 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(u.config.AuthRequestsPerMinute, time.Minute)
}
