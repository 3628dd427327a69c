package specialization

import (
	"time"

	"github.com/google/uuid"
)

// Specialization is a medical specialty a doctor can list in the directory.
type Specialization struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AssignRequest is the body of PUT /doctors/me/specializations. DoctorID is
// honored for admins only.
type AssignRequest struct {
	SpecializationIDs []uuid.UUID `json:"specialization_ids"`
	DoctorID          *uuid.UUID  `json:"doctor_id,omitempty"`
}
