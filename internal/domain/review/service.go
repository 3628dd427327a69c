package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

const maxCommentLen = 4000

// AppointmentChecker confirms a patient has been seen by a doctor.
type AppointmentChecker interface {
	HasCompletedAppointment(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
}

type Service struct {
	repo         Repository
	guard        *auth.Guard
	appointments AppointmentChecker
}

func NewService(repo Repository, guard *auth.Guard, appointments AppointmentChecker) *Service {
	return &Service{repo: repo, guard: guard, appointments: appointments}
}

// Create files a review by the calling patient. The patient must have a
// completed appointment with the doctor.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, req CreateRequest) (*Review, error) {
	if err := s.guard.Check(auth.Request{Principal: caller, Action: auth.ActionWrite, Roles: []auth.Role{auth.RolePatient}}); err != nil {
		return nil, err
	}
	if caller.Role != auth.RolePatient {
		return nil, auth.InvalidInput("only patients can write reviews")
	}
	if req.DoctorID == uuid.Nil {
		return nil, auth.InvalidInput("doctor_id is required")
	}
	if req.Rating < MinRating || req.Rating > MaxRating {
		return nil, auth.InvalidInput(fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	comment := strings.TrimSpace(req.Comment)
	if len(comment) > maxCommentLen {
		return nil, auth.InvalidInput("comment is too long")
	}
	seen, err := s.appointments.HasCompletedAppointment(ctx, caller.ID, req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("check appointments: %w", err)
	}
	if !seen {
		return nil, auth.Wrap(auth.ErrAccessDenied, errors.New("no completed appointment with this doctor"))
	}
	r := &Review{
		AuthorID: caller.ID,
		DoctorID: req.DoctorID,
		Rating:   req.Rating,
		Comment:  comment,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns a review. Published reviews are readable by anyone.
func (s *Service) Get(ctx context.Context, caller *auth.Identity, id uuid.UUID) (*Review, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(auth.Request{Principal: caller, Resource: r.Descriptor(), Action: auth.ActionRead}); err != nil {
		return nil, err
	}
	return r, nil
}

// ListForDoctor returns published reviews of a doctor, or all of them when
// the caller is that doctor or an admin.
func (s *Service) ListForDoctor(ctx context.Context, caller *auth.Identity, doctorID uuid.UUID, limit, offset int) ([]*Review, int, error) {
	full := s.guard.Check(auth.Request{
		Principal: caller,
		Resource:  &auth.Descriptor{Type: resourceType, Owners: []uuid.UUID{doctorID}},
		Action:    auth.ActionRead,
	}) == nil
	return s.repo.ListForDoctor(ctx, doctorID, !full, limit, offset)
}

// SetPublished lets the reviewed doctor or an admin curate a review.
func (s *Service) SetPublished(ctx context.Context, caller *auth.Identity, id uuid.UUID, published bool) (*Review, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.guard.Check(auth.Request{
		Principal: caller,
		Resource:  &auth.Descriptor{Type: resourceType, Owners: []uuid.UUID{r.DoctorID}},
		Action:    auth.ActionWrite,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.SetPublished(ctx, id, published)
}

// Delete removes a review. Only its author may.
func (s *Service) Delete(ctx context.Context, caller *auth.Identity, id uuid.UUID) error {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.guard.Check(auth.Request{
		Principal: caller,
		Resource:  &auth.Descriptor{Type: resourceType, Owners: []uuid.UUID{r.AuthorID}},
		Action:    auth.ActionWrite,
	})
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
