package document

import (
	"context"

	"github.com/google/uuid"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

var ErrNotFound = auth.NotFound("document")

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Document, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
