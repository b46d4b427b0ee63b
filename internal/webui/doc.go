// Package webui serves the helpdesk's server-rendered HTML interface.
//
// Routes:
//
//	GET  /healthz                     store health as JSON
//	GET  /register, POST /register    account creation
//	GET  /login, POST /login          password login, sets the session cookie
//	GET  /logout                      ends the session
//	GET  /dashboard                   tickets visible to the caller, filters for admins
//	GET  /create, POST /create        new ticket form
//	POST /update_ticket/{ticket_id}   admin status and assignee change
//	POST /add_comment/{ticket_id}     admin comment
//
// Every POST must carry the csrf_token form field matching the CSRF cookie.
package webui
