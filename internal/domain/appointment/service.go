package appointment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

// RoleLookup resolves the role of a principal id.
type RoleLookup interface {
	RoleOf(ctx context.Context, id uuid.UUID) (auth.Role, error)
}

type Service struct {
	repo  Repository
	guard *auth.Guard
	roles RoleLookup
	now   func() time.Time
}

func NewService(repo Repository, guard *auth.Guard, roles RoleLookup) *Service {
	return &Service{repo: repo, guard: guard, roles: roles, now: time.Now}
}

func (s *Service) requireRole(ctx context.Context, id uuid.UUID, want auth.Role, label string) error {
	role, err := s.roles.RoleOf(ctx, id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return auth.NotFound(label)
		}
		return err
	}
	if role != want {
		return auth.InvalidInput(label + " id does not refer to a " + string(want))
	}
	return nil
}

// Book creates a pending appointment for the caller, or for req.PatientID
// when the caller is an admin.
func (s *Service) Book(ctx context.Context, caller *auth.Identity, req CreateRequest) (*Appointment, error) {
	var actingAs uuid.UUID
	if req.PatientID != nil {
		actingAs = *req.PatientID
	}
	patientID := actingAs
	if patientID == uuid.Nil && caller != nil {
		patientID = caller.ID
	}
	err := s.guard.Check(auth.Request{
		Principal: caller,
		Resource:  &auth.Descriptor{Type: resourceType, Owners: []uuid.UUID{patientID}},
		Action:    auth.ActionWrite,
		Roles:     []auth.Role{auth.RolePatient},
		ActingAs:  actingAs,
	})
	if err != nil {
		return nil, err
	}
	if caller.Role == auth.RoleAdmin && actingAs == uuid.Nil {
		return nil, auth.InvalidInput("patient_id is required when booking as admin")
	}

	if req.DoctorID == uuid.Nil {
		return nil, auth.InvalidInput("doctor_id is required")
	}
	if req.ScheduledAt.IsZero() || !req.ScheduledAt.After(s.now()) {
		return nil, auth.InvalidInput("scheduled_at must be in the future")
	}
	if err := s.requireRole(ctx, req.DoctorID, auth.RoleDoctor, "doctor"); err != nil {
		return nil, err
	}
	if patientID != caller.ID {
		if err := s.requireRole(ctx, patientID, auth.RolePatient, "patient"); err != nil {
			return nil, err
		}
	}

	a := &Appointment{
		PatientID:   patientID,
		DoctorID:    req.DoctorID,
		ScheduledAt: req.ScheduledAt.UTC(),
		Status:      StatusPending,
		Reason:      strings.TrimSpace(req.Reason),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// load fetches an appointment and checks action against its participants.
// A miss is reported before any authorization decision.
func (s *Service) load(ctx context.Context, caller *auth.Identity, id uuid.UUID, action auth.Action, owners func(*Appointment) []uuid.UUID, roles ...auth.Role) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := a.Descriptor()
	if owners != nil {
		d.Owners = owners(a)
	}
	if err := s.guard.Check(auth.Request{Principal: caller, Resource: d, Action: action, Roles: roles}); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, caller *auth.Identity, id uuid.UUID) (*Appointment, error) {
	return s.load(ctx, caller, id, auth.ActionRead, nil)
}

// List returns the caller's appointments; admins see all of them.
func (s *Service) List(ctx context.Context, caller *auth.Identity, limit, offset int) ([]*Appointment, int, error) {
	if caller == nil {
		return nil, 0, auth.ErrAuthenticationRequired
	}
	var f Filter
	switch caller.Role {
	case auth.RolePatient:
		f.PatientID = &caller.ID
	case auth.RoleDoctor:
		f.DoctorID = &caller.ID
	}
	return s.repo.List(ctx, f, limit, offset)
}

// UpdateStatus moves an appointment along its lifecycle. Patients may only
// cancel.
func (s *Service) UpdateStatus(ctx context.Context, caller *auth.Identity, id uuid.UUID, next Status) (*Appointment, error) {
	if !next.Valid() {
		return nil, auth.InvalidInput("unknown status")
	}
	a, err := s.load(ctx, caller, id, auth.ActionWrite, nil)
	if err != nil {
		return nil, err
	}
	if caller.Role == auth.RolePatient && next != StatusCancelled {
		return nil, auth.Wrap(auth.ErrAccessDenied, errors.New("patients may only cancel"))
	}
	if !a.Status.CanTransition(next) {
		return nil, auth.Conflict("cannot change status from " + string(a.Status) + " to " + string(next))
	}
	return s.repo.UpdateStatus(ctx, id, next)
}

// SetNotes records consultation notes. Only the appointment's doctor may
// write them.
func (s *Service) SetNotes(ctx context.Context, caller *auth.Identity, id uuid.UUID, notes string) (*Appointment, error) {
	doctorOnly := func(a *Appointment) []uuid.UUID { return []uuid.UUID{a.DoctorID} }
	if _, err := s.load(ctx, caller, id, auth.ActionWrite, doctorOnly, auth.RoleDoctor); err != nil {
		return nil, err
	}
	return s.repo.UpdateNotes(ctx, id, strings.TrimSpace(notes))
}

// Delete removes an appointment. Only the patient who booked it may.
func (s *Service) Delete(ctx context.Context, caller *auth.Identity, id uuid.UUID) error {
	patientOnly := func(a *Appointment) []uuid.UUID { return []uuid.UUID{a.PatientID} }
	if _, err := s.load(ctx, caller, id, auth.ActionWrite, patientOnly); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// HasCompletedAppointment reports whether the patient has seen the doctor.
func (s *Service) HasCompletedAppointment(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	return s.repo.HasCompleted(ctx, patientID, doctorID)
}
