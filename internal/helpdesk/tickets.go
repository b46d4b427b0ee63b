// ABOUTME: Ticket dashboard, creation, admin status updates and comments
// ABOUTME: Non-admins see only their own tickets; admins may filter all tickets

package helpdesk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2389/helpdesk/internal/auth"
	"github.com/2389/helpdesk/internal/store"
)

// DateLayout is the accepted format of date_from and date_to.
const DateLayout = "2006-01-02"

// DashboardQuery carries the raw admin filter parameters. Empty fields are ignored.
type DashboardQuery struct {
	Type     string
	Urgency  string
	Status   string
	DateFrom string
	DateTo   string
}

// DateError reports which query parameter held an unparseable date.
// It matches ErrInvalidDate with errors.Is.
type DateError struct {
	Param string
	Value string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("%s: %q is not a YYYY-MM-DD date", e.Param, e.Value)
}

// Unwrap lets errors.Is(err, ErrInvalidDate) succeed.
func (e *DateError) Unwrap() error {
	return ErrInvalidDate
}

// TicketView is a ticket with its comments, oldest first.
type TicketView struct {
	Ticket   *store.Ticket
	Comments []*store.Comment
}

// Filter converts the query into a store filter. date_from maps to 00:00:00
// UTC of that day and date_to to 23:59:59 UTC, both inclusive.
func (q DashboardQuery) Filter() (store.TicketFilter, error) {
	f := store.TicketFilter{
		Type:    strings.TrimSpace(q.Type),
		Urgency: strings.TrimSpace(q.Urgency),
		Status:  strings.TrimSpace(q.Status),
	}

	if v := strings.TrimSpace(q.DateFrom); v != "" {
		day, err := time.ParseInLocation(DateLayout, v, time.UTC)
		if err != nil {
			return store.TicketFilter{}, &DateError{Param: "date_from", Value: q.DateFrom}
		}
		f.CreatedFrom = &day
	}
	if v := strings.TrimSpace(q.DateTo); v != "" {
		day, err := time.ParseInLocation(DateLayout, v, time.UTC)
		if err != nil {
			return store.TicketFilter{}, &DateError{Param: "date_to", Value: q.DateTo}
		}
		end := day.Add(24*time.Hour - time.Second)
		f.CreatedTo = &end
	}
	return f, nil
}

// Dashboard lists the tickets visible to id. For non-admins the query is
// ignored entirely and only their own tickets are returned.
func (s *Service) Dashboard(ctx context.Context, id *auth.Identity, q DashboardQuery) ([]TicketView, error) {
	var filter store.TicketFilter
	if id.IsAdmin() {
		f, err := q.Filter()
		if err != nil {
			return nil, err
		}
		filter = f
	} else {
		filter = store.TicketFilter{OwnerID: id.UserID}
	}

	tickets, err := s.store.ListTickets(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}

	views := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		comments, err := s.store.ListComments(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("listing comments for ticket %d: %w", t.ID, err)
		}
		views = append(views, TicketView{Ticket: t, Comments: comments})
	}
	return views, nil
}

// NewTicket is the ticket creation form.
type NewTicket struct {
	Title       string `form:"title" validate:"required,max=200"`
	Description string `form:"description" validate:"required"`
	Type        string `form:"type" validate:"required,max=50"`
	Urgency     string `form:"urgency" validate:"required,max=20"`
}

// CreateTicket stores a ticket owned by id with status "new" and no assignee.
func (s *Service) CreateTicket(ctx context.Context, id *auth.Identity, in NewTicket) (*store.Ticket, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Type = strings.TrimSpace(in.Type)
	in.Urgency = strings.TrimSpace(in.Urgency)
	if strings.TrimSpace(in.Description) == "" {
		in.Description = "" // whitespace-only counts as missing
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	ticket := &store.Ticket{
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Urgency:     in.Urgency,
		Status:      store.DefaultTicketStatus,
		UserID:      id.UserID,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("creating ticket: %w", err)
	}

	s.logger.Info("ticket created", "ticket_id", ticket.ID, "user_id", id.UserID)
	return ticket, nil
}

type ticketUpdate struct {
	Status   string `form:"status" validate:"max=20"`
	Assignee string `form:"assigned_to" validate:"max=100"`
}

// UpdateTicket overwrites status and assignee, trimmed the same way the
// dashboard filter trims its parameters. Non-admins get ErrForbidden
// before anything is read; unknown tickets yield store.ErrNotFound.
// Concurrent updates are last-write-wins.
func (s *Service) UpdateTicket(ctx context.Context, id *auth.Identity, ticketID int64, status, assignee string) error {
	if !id.IsAdmin() {
		return ErrForbidden
	}

	if _, err := s.store.GetTicket(ctx, ticketID); err != nil {
		return fmt.Errorf("loading ticket %d: %w", ticketID, err)
	}

	in := ticketUpdate{Status: strings.TrimSpace(status), Assignee: strings.TrimSpace(assignee)}
	if err := validateStruct(in); err != nil {
		return err
	}

	if err := s.store.UpdateTicketStatus(ctx, ticketID, in.Status, in.Assignee); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("updating ticket: %w", err)
	}

	s.logger.Info("ticket updated", "ticket_id", ticketID, "admin", id.Email, "status", in.Status)
	return nil
}

type newComment struct {
	Text string `form:"text" validate:"required"`
}

// AddComment appends an admin comment authored by id.Email. The gate and
// not-found checks match UpdateTicket.
func (s *Service) AddComment(ctx context.Context, id *auth.Identity, ticketID int64, text string) (*store.Comment, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}

	if _, err := s.store.GetTicket(ctx, ticketID); err != nil {
		return nil, fmt.Errorf("loading ticket %d: %w", ticketID, err)
	}

	in := newComment{Text: strings.TrimSpace(text)}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	comment := &store.Comment{
		TicketID:  ticketID,
		Author:    id.Email,
		Text:      in.Text,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment added", "ticket_id", ticketID, "comment_id", comment.ID, "admin", id.Email)
	return comment, nil
}
