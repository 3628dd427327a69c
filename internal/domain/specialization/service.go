package specialization

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

const resourceType = "doctor_specialization"

// RoleLookup resolves the role of a principal id.
type RoleLookup interface {
	RoleOf(ctx context.Context, id uuid.UUID) (auth.Role, error)
}

type Service struct {
	repo  Repository
	guard *auth.Guard
	roles RoleLookup
}

func NewService(repo Repository, guard *auth.Guard, roles RoleLookup) *Service {
	return &Service{repo: repo, guard: guard, roles: roles}
}

func validate(s *Specialization) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return auth.InvalidInput("name is required")
	}
	if len(s.Name) > 120 {
		return auth.InvalidInput("name is too long")
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]*Specialization, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Specialization, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, spec *Specialization) error {
	if err := validate(spec); err != nil {
		return err
	}
	return s.repo.Create(ctx, spec)
}

func (s *Service) Update(ctx context.Context, spec *Specialization) error {
	if err := validate(spec); err != nil {
		return err
	}
	return s.repo.Update(ctx, spec)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Assign replaces the specializations of a doctor. A doctor always edits
// their own list; an admin names the doctor with doctorID.
func (s *Service) Assign(ctx context.Context, caller *auth.Identity, doctorID uuid.UUID, ids []uuid.UUID) ([]*Specialization, error) {
	if caller == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	if caller.Role == auth.RoleAdmin && doctorID == uuid.Nil {
		return nil, auth.InvalidInput("doctor_id is required when assigning as admin")
	}
	target := doctorID
	if target == uuid.Nil {
		target = caller.ID
	}
	err := s.guard.Check(auth.Request{
		Principal: caller,
		Resource:  &auth.Descriptor{Type: resourceType, Owners: []uuid.UUID{target}},
		Action:    auth.ActionWrite,
		Roles:     []auth.Role{auth.RoleDoctor},
		ActingAs:  doctorID,
	})
	if err != nil {
		return nil, err
	}
	if target != caller.ID {
		role, err := s.roles.RoleOf(ctx, target)
		if err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				return nil, auth.NotFound("doctor")
			}
			return nil, err
		}
		if role != auth.RoleDoctor {
			return nil, auth.InvalidInput("target principal is not a doctor")
		}
	}
	if err := s.repo.SetForDoctor(ctx, target, dedupe(ids)); err != nil {
		return nil, err
	}
	lists, err := s.repo.ListForDoctors(ctx, []uuid.UUID{target})
	if err != nil {
		return nil, err
	}
	if lists[target] == nil {
		return []*Specialization{}, nil
	}
	return lists[target], nil
}

// NamesForDoctors returns specialization names keyed by doctor id.
func (s *Service) NamesForDoctors(ctx context.Context, doctorIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	lists, err := s.repo.ListForDoctors(ctx, doctorIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]string, len(lists))
	for id, specs := range lists {
		names := make([]string, len(specs))
		for i, sp := range specs {
			names[i] = sp.Name
		}
		out[id] = names
	}
	return out, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
