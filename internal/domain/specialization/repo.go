package specialization

import (
	"context"

	"github.com/google/uuid"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

var (
	ErrNotFound      = auth.NotFound("specialization")
	ErrDuplicateName = auth.Conflict("specialization name already exists")
	// ErrUnknownID is returned when an assignment references a missing
	// specialization.
	ErrUnknownID = auth.InvalidInput("unknown specialization id")
)

type Repository interface {
	Create(ctx context.Context, s *Specialization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Specialization, error)
	List(ctx context.Context) ([]*Specialization, error)
	Update(ctx context.Context, s *Specialization) error
	Delete(ctx context.Context, id uuid.UUID) error
	// SetForDoctor replaces a doctor's specializations.
	SetForDoctor(ctx context.Context, doctorID uuid.UUID, ids []uuid.UUID) error
	ListForDoctors(ctx context.Context, doctorIDs []uuid.UUID) (map[uuid.UUID][]*Specialization, error)
}
