// Package server assembles the helpdesk process.
//
// New opens the configured store (SQLite or PostgreSQL), purges expired
// sessions, builds the domain service and the web UI, and prepares an
// http.Server. Run listens on server.http_addr and blocks until the context
// is canceled, then shuts down within five seconds and closes the store.
package server
