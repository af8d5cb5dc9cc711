package middleware

import (
	"context"

	"github.com/diu-mct/access-guard/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// IdentityKey is the context key for the authenticated identity
	IdentityKey contextKey = "identity"
)

// WithIdentity adds the authenticated identity to the context
func WithIdentity(ctx context.Context, ident *models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, ident)
}

// IdentityFromContext retrieves the authenticated identity from the
// context. Returns nil when no identity is present.
func IdentityFromContext(ctx context.Context) *models.Identity {
	if val := ctx.Value(IdentityKey); val != nil {
		if ident, ok := val.(*models.Identity); ok {
			return ident
		}
	}
	return nil
}
