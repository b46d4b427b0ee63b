// Package helpdesk implements the ticket tracker rules independent of HTTP.
//
// A Service wraps a store.Store and the admin allow-list. Every operation
// that acts on behalf of a user takes the caller's *auth.Identity:
//
//	svc := helpdesk.New(st, auth.NewAdminList(cfg.Auth.Admins))
//	views, err := svc.Dashboard(ctx, id, helpdesk.DashboardQuery{Status: "new"})
//
// Errors are sentinels checked with errors.Is. ValidationError and DateError
// carry details for the user and unwrap to ErrInvalidInput and
// ErrInvalidDate respectively. Missing tickets surface as store.ErrNotFound.
package helpdesk
