// ABOUTME: Cookie handling for sessions, CSRF double-submit tokens and flash messages
// ABOUTME: Flash messages are signed JWTs that survive exactly one redirect

package webui

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/2389/helpdesk/internal/auth"
	"github.com/2389/helpdesk/internal/store"
)

const (
	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "helpdesk_csrf"

	// FlashCookieName carries pending flash messages between requests
	FlashCookieName = "helpdesk_flash"

	// maxFlashes bounds the pending queue so the cookie stays small
	maxFlashes = 8
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const csrfContextKey contextKey = "csrf_token"

// getCSRFToken retrieves the CSRF token from the request context
func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// csrfProtect ensures every response carries a CSRF cookie and rejects
// unsafe requests whose form token does not match it.
func (u *UI) csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if !u.validateCSRF(r) {
				u.logger.Warn("rejected request with invalid CSRF token", "path", r.URL.Path)
				http.Error(w, "Invalid request, please reload the page and try again", http.StatusForbidden)
				return
			}
		}
		r, _ = u.ensureCSRFToken(w, r)
		next.ServeHTTP(w, r)
	})
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context
func (u *UI) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		u.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from form against cookie
func (u *UI) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.PostFormValue("csrf_token")
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

// setSessionCookie stores the login session token in the browser.
func setSessionCookie(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCookie expires a cookie immediately.
func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// addFlashes queues messages for the next rendered page, after any still
// pending from an earlier redirect.
func (u *UI) addFlashes(w http.ResponseWriter, r *http.Request, msgs ...auth.Flash) {
	pending := append(u.readFlashCookie(r), msgs...)
	if len(pending) > maxFlashes {
		pending = pending[len(pending)-maxFlashes:]
	}

	token, err := u.flash.Sign(pending)
	if err != nil {
		u.logger.Error("failed to sign flash", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.DefaultFlashTTL / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// flashRedirect queues msgs and sends the browser to target.
func (u *UI) flashRedirect(w http.ResponseWriter, r *http.Request, target string, msgs ...auth.Flash) {
	u.addFlashes(w, r, msgs...)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func success(text string) auth.Flash { return auth.Flash{Kind: "success", Text: text} }

func failure(text string) auth.Flash { return auth.Flash{Kind: "error", Text: text} }

// popFlashes returns pending messages and clears the cookie.
func (u *UI) popFlashes(w http.ResponseWriter, r *http.Request) []auth.Flash {
	msgs := u.readFlashCookie(r)
	if _, err := r.Cookie(FlashCookieName); err == nil {
		clearCookie(w, FlashCookieName)
	}
	return msgs
}

func (u *UI) readFlashCookie(r *http.Request) []auth.Flash {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	msgs, err := u.flash.Verify(cookie.Value)
	if err != nil {
		u.logger.Debug("discarding flash cookie", "error", err)
		return nil
	}
	return msgs
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
