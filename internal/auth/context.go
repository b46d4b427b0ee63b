// ABOUTME: Authenticated identity carried through request handlers
// ABOUTME: Provides WithIdentity/FromContext for propagating the session user via context

package auth

import (
	"context"
)

// Identity is the logged-in user attached to a request by SessionMiddleware.
// Admin is derived from the configured admin list on every request, never
// persisted, so changing the list takes effect without re-login.
type Identity struct {
	UserID int64
	Email  string
	Admin  bool
}

// IsAdmin reports whether the identity may see every ticket and modify them.
// A nil identity is never an admin.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Admin
}

// identityKey is the key type for storing Identity in context.Context.
type identityKey struct{}

// WithIdentity returns a new context with the Identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext retrieves the Identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	val := ctx.Value(identityKey{})
	if val == nil {
		return nil
	}
	id, ok := val.(*Identity)
	if !ok {
		return nil
	}
	return id
}

// MustFromContext retrieves the Identity from the context, panicking if not present.
func MustFromContext(ctx context.Context) *Identity {
	id := FromContext(ctx)
	if id == nil {
		panic("auth: Identity not found in context")
	}
	return id
}
