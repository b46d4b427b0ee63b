// ABOUTME: Template rendering functions for the helpdesk UI
// ABOUTME: Parses embedded templates once and renders Markdown with goldmark

package webui

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/helpdesk/internal/auth"
	"github.com/2389/helpdesk/internal/helpdesk"
)

// Template data types
type pageData struct {
	Title     string
	User      *auth.Identity
	Flashes   []auth.Flash
	CSRFToken string
}

type loginData struct {
	pageData
	Email string
	Error string
}

type registerData struct {
	pageData
	Email string
}

type dashboardData struct {
	pageData
	Query   helpdesk.DashboardQuery
	Tickets []helpdesk.TicketView
}

type createData struct {
	pageData
	Form helpdesk.NewTicket
}

// templateSet holds one parsed template per page, each combined with base.html.
type templateSet struct {
	pages map[string]*template.Template
}

// markdown renders user-supplied text. goldmark omits raw HTML unless
// html.WithUnsafe is set, so the output is safe to embed.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

var templateFuncs = template.FuncMap{
	"markdown": renderMarkdown,
	"datetime": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
}

func mustLoadTemplates() *templateSet {
	pages := map[string]*template.Template{}
	for _, name := range []string{"login.html", "register.html", "dashboard.html", "create_ticket.html"} {
		pages[name] = template.Must(template.New("base.html").Funcs(templateFuncs).
			ParseFS(templateFS, "templates/base.html", "templates/"+name))
	}
	return &templateSet{pages: pages}
}

// base collects data every page needs and consumes pending flashes.
func (u *UI) base(w http.ResponseWriter, r *http.Request, title string, extra []auth.Flash) pageData {
	return pageData{
		Title:     title,
		User:      auth.FromContext(r.Context()),
		Flashes:   append(u.popFlashes(w, r), extra...),
		CSRFToken: getCSRFToken(r),
	}
}

func (u *UI) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := u.templates.pages[name]
	if !ok {
		u.logger.Error("unknown template", "name", name)
		http.Error(w, "An error occurred", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		u.logger.Error("failed to render "+name, "error", err)
		http.Error(w, "An error occurred", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// renderLoginPage renders the login page
func (u *UI) renderLoginPage(w http.ResponseWriter, r *http.Request, email, errorMsg string) {
	u.render(w, "login.html", loginData{
		pageData: u.base(w, r, "Login", nil),
		Email:    email,
		Error:    errorMsg,
	})
}

// renderRegisterPage renders the registration page
func (u *UI) renderRegisterPage(w http.ResponseWriter, r *http.Request, email string, msgs []auth.Flash) {
	u.render(w, "register.html", registerData{
		pageData: u.base(w, r, "Register", msgs),
		Email:    email,
	})
}

// renderDashboard renders the ticket list
func (u *UI) renderDashboard(w http.ResponseWriter, r *http.Request, id *auth.Identity, q helpdesk.DashboardQuery, views []helpdesk.TicketView) {
	data := dashboardData{
		pageData: u.base(w, r, "Dashboard", nil),
		Query:    q,
		Tickets:  views,
	}
	data.User = id
	u.render(w, "dashboard.html", data)
}

// renderCreatePage renders the ticket form, refilled after a validation failure
func (u *UI) renderCreatePage(w http.ResponseWriter, r *http.Request, form helpdesk.NewTicket, msgs []auth.Flash) {
	u.render(w, "create_ticket.html", createData{
		pageData: u.base(w, r, "New Ticket", msgs),
		Form:     form,
	})
}
