package auth

import (
	"context"
	"strings"

	"github.com/avicolanorte/api/internal/domain"
)

// Identity captures the authenticated back-office operator extracted from a
// Firebase ID token and its custom claims.
type Identity struct {
	UID             string
	Email           string
	Name            string
	Role            domain.Role
	CoordinatorType domain.CoordinatorType
}

// HasRole reports whether the identity carries the requested role.
func (i *Identity) HasRole(role domain.Role) bool {
	if i == nil {
		return false
	}
	return i.Role == role
}

// HasAnyRole reports whether the identity carries any of the provided roles.
func (i *Identity) HasAnyRole(roles ...domain.Role) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i.HasRole(domain.RoleAdmin)
}

type contextKey string

const identityContextKey contextKey = "github.com/avicolanorte/api/internal/platform/auth/identity"

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

func normaliseClaim(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
