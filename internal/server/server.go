// ABOUTME: Server orchestrator that wires config, store, domain service and web UI
// ABOUTME: Manages the HTTP server and store lifecycle including graceful shutdown

package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/2389/helpdesk/internal/auth"
	"github.com/2389/helpdesk/internal/config"
	"github.com/2389/helpdesk/internal/helpdesk"
	"github.com/2389/helpdesk/internal/store"
	"github.com/2389/helpdesk/internal/webui"
)

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 5 * time.Second

// Server orchestrates the helpdesk components.
type Server struct {
	config     *config.Config
	store      store.Store
	service    *helpdesk.Service
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates the store selected by database.driver. HELPDESK_DB_PATH
// overrides the sqlite path.
func initStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var s store.Store
	var err error

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		s, err = store.NewPostgresStore(ctx, cfg.Database.DSN)
	case config.DriverSQLite:
		dbPath := cfg.Database.Path
		if envPath := os.Getenv("HELPDESK_DB_PATH"); envPath != "" {
			dbPath = envPath
		}
		s, err = store.NewSQLiteStore(dbPath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// sessionSecret returns the configured secret or a random one. A random
// secret invalidates pending flash messages on restart, nothing more.
func sessionSecret(cfg *config.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.Auth.SessionSecret != "" {
		return []byte(cfg.Auth.SessionSecret), nil
	}

	buf := make([]byte, auth.MinSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating session secret: %w", err)
	}
	logger.Warn("auth.session_secret not set, using a random secret for this run")
	return []byte(hex.EncodeToString(buf)), nil
}

// New creates a Server with the given configuration. It opens the store and
// purges expired sessions before returning.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := initStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	secret, err := sessionSecret(cfg, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	flash, err := auth.NewFlashSigner(secret)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating flash signer: %w", err)
	}

	admins := auth.NewAdminList(cfg.Auth.Admins)
	if admins.Len() == 0 {
		logger.Warn("no admins configured, tickets cannot be updated or commented on")
	}

	svc := helpdesk.New(s, admins,
		helpdesk.WithSessionTTL(cfg.Auth.SessionDuration),
		helpdesk.WithLogger(logger),
	)

	srv := &Server{
		config:  cfg,
		store:   s,
		service: svc,
		logger:  logger.With("component", "server"),
	}

	if n, err := svc.PurgeExpiredSessions(ctx); err != nil {
		srv.logger.Warn("failed to purge expired sessions", "error", err)
	} else if n > 0 {
		srv.logger.Info("purged expired sessions", "count", n)
	}

	ui := webui.New(svc, flash, webui.Config{
		AuthRequestsPerMinute: cfg.Auth.AuthRequestsPerMinute,
	})

	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           ui.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv.logger.Info("server configured",
		"driver", cfg.Database.Driver,
		"admins", admins.Len(),
		"session_duration", cfg.Auth.SessionDuration,
	)
	return srv, nil
}

// Handler returns the HTTP handler served by the server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens on server.http_addr and serves until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		_ = s.store.Close()
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until the context is canceled, then shuts
// down and closes the store.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := s.startServer(ln)
	serverErr := s.waitForShutdownSignal(ctx, errCh)

	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// startServer starts the HTTP server in a goroutine, returning its error channel.
func (s *Server) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// The caller's context is already canceled at this point.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops the HTTP server and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "store close", s.store.Close())

	return errors.Join(errs...)
}
