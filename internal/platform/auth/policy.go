package auth

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Action is the kind of access being requested.
type Action int

const (
	ActionRead Action = iota
	ActionWrite
)

func (a Action) String() string {
	if a == ActionWrite {
		return "write"
	}
	return "read"
}

// Descriptor describes a resource instance for an authorization decision.
type Descriptor struct {
	Type   string
	Owners []uuid.UUID
	Public bool
}

// OwnedBy reports whether id is one of the resource's owners.
func (d *Descriptor) OwnedBy(id uuid.UUID) bool {
	for _, o := range d.Owners {
		if o == id {
			return true
		}
	}
	return false
}

// Request is the input to Authorize.
type Request struct {
	Principal *Identity
	Resource  *Descriptor
	Action    Action
	// Roles, when non-empty, restricts the operation to these roles.
	// Admin always passes.
	Roles []Role
	// ActingAs is the principal an admin operates on behalf of. It is ignored
	// for every other role.
	ActingAs uuid.UUID
}

// Gate names the step that produced a decision.
type Gate string

const (
	GateAnonymous  Gate = "anonymous"
	GateAdmin      Gate = "admin"
	GateRole       Gate = "role"
	GateOwnership  Gate = "ownership"
	GateVisibility Gate = "visibility"
	GateNoResource Gate = "no_resource"
	GateDefault    Gate = "default"
)

// Decision is the result of Authorize.
type Decision struct {
	Allowed bool
	Gate    Gate
	// Impersonated is set when an admin acted on behalf of another principal.
	Impersonated bool
	Reason       error
}

// Err returns nil when allowed, otherwise the denial error.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.Reason
}

// EffectiveSubject is the id compared against resource owners. An admin
// acting for a target principal is treated as that principal.
func EffectiveSubject(p *Identity, actingAs uuid.UUID) uuid.UUID {
	if p == nil {
		return uuid.Nil
	}
	if p.Role == RoleAdmin && actingAs != uuid.Nil {
		return actingAs
	}
	return p.ID
}

func roleAllowed(role Role, roles []Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize decides whether req is allowed. It performs no I/O and has no
// side effects; expected denials are returned as decisions, never errors.
//
// Gates run in order: anonymous deny, admin override, role, ownership,
// visibility. The role gate is a precondition, so public visibility never
// lets a caller with the wrong role through.
func Authorize(req Request) Decision {
	p := req.Principal
	if p == nil {
		return Decision{Gate: GateAnonymous, Reason: ErrAuthenticationRequired}
	}
	impersonated := p.Role == RoleAdmin && req.ActingAs != uuid.Nil && req.ActingAs != p.ID
	if p.Role == RoleAdmin {
		return Decision{Allowed: true, Gate: GateAdmin, Impersonated: impersonated}
	}
	if !roleAllowed(p.Role, req.Roles) {
		return Decision{Gate: GateRole, Reason: ErrRoleNotPermitted}
	}
	if req.Resource == nil {
		return Decision{Allowed: true, Gate: GateNoResource}
	}
	if req.Resource.OwnedBy(EffectiveSubject(p, req.ActingAs)) {
		return Decision{Allowed: true, Gate: GateOwnership}
	}
	if req.Resource.Public && req.Action == ActionRead {
		return Decision{Allowed: true, Gate: GateVisibility}
	}
	return Decision{Gate: GateDefault, Reason: ErrAccessDenied}
}

// AuthorizeAnonymous handles reads by callers without a principal: only
// public resources are visible.
func AuthorizeAnonymous(d *Descriptor, action Action) Decision {
	if d != nil && d.Public && action == ActionRead {
		return Decision{Allowed: true, Gate: GateVisibility}
	}
	return Decision{Gate: GateAnonymous, Reason: ErrAuthenticationRequired}
}

// DecisionRecorder counts authorization outcomes per resource type.
type DecisionRecorder interface {
	AuthzDecision(resource string, allowed bool)
}

// Guard wraps Authorize with the side effects callers need: metrics and an
// audit log line for admin impersonation.
type Guard struct {
	logger  zerolog.Logger
	metrics DecisionRecorder
}

// NewGuard creates a Guard. metrics may be nil.
func NewGuard(logger zerolog.Logger, metrics DecisionRecorder) *Guard {
	return &Guard{logger: logger.With().Str("component", "authz").Logger(), metrics: metrics}
}

// Check evaluates req, falling back to anonymous rules when no principal is
// present, and returns the denial error if any.
func (g *Guard) Check(req Request) error {
	var d Decision
	if req.Principal == nil {
		d = AuthorizeAnonymous(req.Resource, req.Action)
	} else {
		d = Authorize(req)
	}
	resource := "none"
	if req.Resource != nil {
		resource = req.Resource.Type
	}
	if g == nil {
		return d.Err()
	}
	if g.metrics != nil {
		g.metrics.AuthzDecision(resource, d.Allowed)
	}
	if d.Impersonated {
		g.logger.Warn().
			Str("admin_id", req.Principal.ID.String()).
			Str("acting_as", req.ActingAs.String()).
			Str("resource", resource).
			Str("action", req.Action.String()).
			Msg("admin acting on behalf of principal")
	}
	if !d.Allowed && req.Principal != nil {
		g.logger.Debug().
			Str("principal_id", req.Principal.ID.String()).
			Str("resource", resource).
			Str("gate", string(d.Gate)).
			Msg("access denied")
	}
	return d.Err()
}

// RequireRole rejects callers whose role is not listed. Admin always passes.
// It must run after Authenticator.Required.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident := CurrentIdentity(c)
			if ident == nil {
				return HTTPError(ErrAuthenticationRequired)
			}
			d := Authorize(Request{Principal: ident, Roles: roles})
			if !d.Allowed {
				return HTTPError(d.Reason)
			}
			return next(c)
		}
	}
}
