package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Role is the closed set of principal roles.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// AuthOrigin records how a principal first authenticated.
type AuthOrigin string

const (
	OriginLocal     AuthOrigin = "local"
	OriginFederated AuthOrigin = "federated"
)

// Identity is the trusted view of a principal attached to a request after the
// authenticator has reloaded it from the store.
type Identity struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	AvatarURL  *string    `json:"avatar_url,omitempty"`
	AuthOrigin AuthOrigin `json:"auth_origin"`
}

type identityContextKey struct{}

// principalIDKey is the echo context key read by the request logger.
const principalIDKey = "principal_id"

// ContextWithIdentity attaches the authenticated identity to the context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity attached by the authenticator, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	id, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || id == nil {
		return nil, false
	}
	return id, true
}

// CurrentIdentity returns the identity for an echo request, or nil for an
// anonymous caller.
func CurrentIdentity(c echo.Context) *Identity {
	id, _ := IdentityFromContext(c.Request().Context())
	return id
}

func setIdentity(c echo.Context, id *Identity) {
	c.SetRequest(c.Request().WithContext(ContextWithIdentity(c.Request().Context(), id)))
	c.Set(principalIDKey, id.ID.String())
}
