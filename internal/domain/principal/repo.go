package principal

import (
	"context"

	"github.com/google/uuid"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

var (
	// ErrNotFound matches auth.ErrNotFound under errors.Is.
	ErrNotFound = auth.NotFound("principal")
	// ErrDuplicate is returned when an email or federated id is taken.
	ErrDuplicate = auth.Duplicate("principal already exists")
)

// Repository is the Principal Store. Each call is a single-row atomic
// operation.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Principal, error)
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	GetByFederatedID(ctx context.Context, federatedID string) (*Principal, error)
	Create(ctx context.Context, p *Principal) error
	// LinkFederatedIdentity sets the federated id, switches the auth origin
	// to federated and replaces the avatar when one is given. Role and
	// password hash are left untouched.
	LinkFederatedIdentity(ctx context.Context, id uuid.UUID, federatedID string, avatarURL *string) (*Principal, error)
	ListByRole(ctx context.Context, role auth.Role, limit, offset int) ([]*Principal, int, error)
}
