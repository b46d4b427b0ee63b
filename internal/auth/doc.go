// Package auth provides authentication and authorization for the helpdesk.
//
// # Sessions
//
// Browsers authenticate with an opaque session token in the
// helpdesk_session cookie. SessionMiddleware resolves the token through the
// store and attaches an Identity to the request context:
//
//	id := auth.FromContext(r.Context()) // nil when anonymous
//
// RequireUser wraps protected routes and redirects anonymous requests to the
// login page.
//
// # Admins
//
// Administrators are a static allow-list of emails provided in config
// (auth.admins). The Admin flag on Identity is recomputed from the
// AdminList on every request and is never stored.
//
// # Passwords
//
// Passwords are hashed with bcrypt. When a login names an unknown email,
// BurnPasswordCheck runs a comparison against a dummy hash so timing does
// not reveal which emails are registered.
//
// # Flash Messages
//
// FlashSigner produces HS256 JWTs carrying one-shot messages. The web layer
// stores them in a cookie across a redirect; tokens expire after
// DefaultFlashTTL.
package auth
