package review

import (
	"time"

	"github.com/google/uuid"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is a patient's rating of a doctor. Unpublished reviews are visible
// to their author, the reviewed doctor and admins.
type Review struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  uuid.UUID `json:"author_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const resourceType = "review"

func (r *Review) Descriptor() *auth.Descriptor {
	return &auth.Descriptor{
		Type:   resourceType,
		Owners: []uuid.UUID{r.AuthorID, r.DoctorID},
		Public: r.Published,
	}
}

type CreateRequest struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Rating   int       `json:"rating"`
	Comment  string    `json:"comment"`
}

type PublishRequest struct {
	Published bool `json:"published"`
}
