// ABOUTME: Configured allow-list of administrator email addresses
// ABOUTME: Admin status is a pure function of the email, checked per request

package auth

import "strings"

// AdminList is an immutable set of admin emails. Matching is exact after
// trimming surrounding whitespace from the configured entries.
type AdminList struct {
	emails map[string]struct{}
}

// NewAdminList builds an AdminList from configured emails. Blank entries are ignored.
func NewAdminList(emails []string) *AdminList {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		set[e] = struct{}{}
	}
	return &AdminList{emails: set}
}

// IsAdmin reports whether email is on the list. A nil list has no admins.
func (a *AdminList) IsAdmin(email string) bool {
	if a == nil {
		return false
	}
	_, ok := a.emails[email]
	return ok
}

// Len returns the number of configured admins.
func (a *AdminList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.emails)
}
