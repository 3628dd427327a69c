package review

import (
	"context"

	"github.com/google/uuid"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

var ErrNotFound = auth.NotFound("review")

type Repository interface {
	Create(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)
	// ListForDoctor pages a doctor's reviews, newest first.
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, publishedOnly bool, limit, offset int) ([]*Review, int, error)
	SetPublished(ctx context.Context, id uuid.UUID, published bool) (*Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
