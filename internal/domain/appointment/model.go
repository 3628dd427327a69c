package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Appointment is a consultation booked between a patient and a doctor.
type Appointment struct {
	ID                uuid.UUID `json:"id"`
	PatientID         uuid.UUID `json:"patient_id"`
	DoctorID          uuid.UUID `json:"doctor_id"`
	ScheduledAt       time.Time `json:"scheduled_at"`
	Status            Status    `json:"status"`
	Reason            string    `json:"reason"`
	ConsultationNotes *string   `json:"consultation_notes,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

const resourceType = "appointment"

// Descriptor returns the authorization view of a: both participants own it.
func (a *Appointment) Descriptor() *auth.Descriptor {
	return &auth.Descriptor{Type: resourceType, Owners: []uuid.UUID{a.PatientID, a.DoctorID}}
}

// CreateRequest is the body of POST /appointments. PatientID is honored for
// admins only.
type CreateRequest struct {
	DoctorID    uuid.UUID  `json:"doctor_id"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Reason      string     `json:"reason"`
	PatientID   *uuid.UUID `json:"patient_id,omitempty"`
}

type StatusRequest struct {
	Status Status `json:"status"`
}

type NotesRequest struct {
	Notes string `json:"consultation_notes"`
}

// Filter narrows a listing. Nil fields are not applied.
type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
}
