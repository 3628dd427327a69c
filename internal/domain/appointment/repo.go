package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

var ErrNotFound = auth.NotFound("appointment")

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// HasCompleted reports whether patientID has a completed appointment
	// with doctorID.
	HasCompleted(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
}
