// ABOUTME: HTTP handlers for accounts, the ticket dashboard and admin actions
// ABOUTME: Each handler parses the form, calls the service, then redirects or renders

package webui

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/2389/helpdesk/internal/auth"
	"github.com/2389/helpdesk/internal/helpdesk"
	"github.com/2389/helpdesk/internal/store"
)

// handleHealth reports 200 when the store answers a ping and 503 otherwise.
func (u *UI) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := u.svc.Ping(r.Context()); err != nil {
		u.logger.Warn("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleRegisterPage renders the registration form
func (u *UI) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if auth.FromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	u.renderRegisterPage(w, r, "", nil)
}

// handleRegister processes the registration form
func (u *UI) handleRegister(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	_, err := u.svc.Register(r.Context(), email, password)
	switch {
	case err == nil:
		u.flashRedirect(w, r, "/login", success("registration successful"))
	case errors.Is(err, store.ErrEmailExists):
		u.flashRedirect(w, r, "/register", failure("user already exists"))
	case errors.Is(err, helpdesk.ErrInvalidInput):
		u.renderRegisterPage(w, r, email, validationFlashes(err))
	default:
		u.logger.Error("failed to register user", "error", err)
		http.Error(w, "An error occurred", http.StatusInternalServerError)
	}
}

// handleLoginPage renders the login page
func (u *UI) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if auth.FromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	u.renderLoginPage(w, r, "", "")
}

// handleLogin processes login form submission
func (u *UI) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	id, sess, err := u.svc.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, helpdesk.ErrInvalidCredentials) {
			u.renderLoginPage(w, r, email, "invalid email or password")
			return
		}
		u.logger.Error("failed to log in", "error", err)
		u.renderLoginPage(w, r, email, "An error occurred")
		return
	}

	setSessionCookie(w, r, sess)
	u.logger.Info("login successful", "user_id", id.UserID, "admin", id.IsAdmin())
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleLogout deletes the session and clears cookies
func (u *UI) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		if err := u.svc.Logout(r.Context(), cookie.Value); err != nil {
			u.logger.Error("failed to delete session", "error", err)
		}
	}

	clearCookie(w, auth.SessionCookieName)
	clearCookie(w, CSRFCookieName)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleDashboard renders the ticket list visible to the caller
func (u *UI) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	qv := r.URL.Query()
	query := helpdesk.DashboardQuery{
		Type:     qv.Get("type"),
		Urgency:  qv.Get("urgency"),
		Status:   qv.Get("status"),
		DateFrom: qv.Get("date_from"),
		DateTo:   qv.Get("date_to"),
	}

	views, err := u.svc.Dashboard(r.Context(), id, query)
	if err != nil {
		var dateErr *helpdesk.DateError
		if errors.As(err, &dateErr) {
			http.Error(w, "Bad Request: "+dateErr.Error(), http.StatusBadRequest)
			return
		}
		u.logger.Error("failed to load dashboard", "error", err, "user_id", id.UserID)
		http.Error(w, "Failed to load tickets", http.StatusInternalServerError)
		return
	}

	u.renderDashboard(w, r, id, query, views)
}

// handleCreatePage renders the ticket form
func (u *UI) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	u.renderCreatePage(w, r, helpdesk.NewTicket{}, nil)
}

// handleCreate stores a new ticket for the caller
func (u *UI) handleCreate(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	in := helpdesk.NewTicket{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Type:        r.PostFormValue("type"),
		Urgency:     r.PostFormValue("urgency"),
	}

	if _, err := u.svc.CreateTicket(r.Context(), id, in); err != nil {
		if errors.Is(err, helpdesk.ErrInvalidInput) {
			u.renderCreatePage(w, r, in, validationFlashes(err))
			return
		}
		u.logger.Error("failed to create ticket", "error", err, "user_id", id.UserID)
		http.Error(w, "Failed to create ticket", http.StatusInternalServerError)
		return
	}

	u.flashRedirect(w, r, "/dashboard", success("ticket created"))
}

// handleUpdateTicket changes status and assignee (admin only)
func (u *UI) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	ticketID := ticketIDParam(r)

	err := u.svc.UpdateTicket(r.Context(), id, ticketID, r.PostFormValue("status"), r.PostFormValue("assigned_to"))
	if u.handleMutationError(w, r, err, "update ticket") {
		return
	}
	u.flashRedirect(w, r, "/dashboard", success("ticket updated"))
}

// handleAddComment appends an admin comment to a ticket
func (u *UI) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	ticketID := ticketIDParam(r)

	_, err := u.svc.AddComment(r.Context(), id, ticketID, r.PostFormValue("text"))
	if u.handleMutationError(w, r, err, "add comment") {
		return
	}
	u.flashRedirect(w, r, "/dashboard", success("comment added"))
}

// handleMutationError maps admin action errors onto responses. It returns
// true when a response was written.
func (u *UI) handleMutationError(w http.ResponseWriter, r *http.Request, err error, action string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, helpdesk.ErrForbidden):
		u.flashRedirect(w, r, "/dashboard", failure("access denied"))
	case errors.Is(err, store.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, helpdesk.ErrInvalidInput):
		u.flashRedirect(w, r, "/dashboard", validationFlashes(err)...)
	default:
		u.logger.Error("failed to "+action, "error", err)
		http.Error(w, "Failed to "+action, http.StatusInternalServerError)
	}
	return true
}

// ticketIDParam parses the {ticket_id} path segment. Non-integer ids map to
// 0, which never names a stored ticket, so they fall through to not-found.
func ticketIDParam(r *http.Request) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, "ticket_id"), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// validationFlashes turns a ValidationError into one error flash per problem.
func validationFlashes(err error) []auth.Flash {
	var ve *helpdesk.ValidationError
	if !errors.As(err, &ve) || len(ve.Problems) == 0 {
		return []auth.Flash{failure("invalid input")}
	}
	msgs := make([]auth.Flash, 0, len(ve.Problems))
	for _, p := range ve.Problems {
		msgs = append(msgs, failure(p))
	}
	return msgs
}
