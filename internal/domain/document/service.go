package document

import (
	"context"
	"errors"
	"strings"

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
}

func NewService(repo Repository, guard *auth.Guard, roles RoleLookup) *Service {
	return &Service{repo: repo, guard: guard, roles: roles}
}

// Create records a document uploaded by the caller.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, req CreateRequest) (*Document, error) {
	if caller == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	if !req.Kind.Valid() {
		return nil, auth.InvalidInput("unknown document kind")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, auth.InvalidInput("title is required")
	}
	if strings.TrimSpace(req.StorageKey) == "" {
		return nil, auth.InvalidInput("storage_key is required")
	}
	if req.Public && !(caller.Role == auth.RoleDoctor && req.Kind.Publishable()) {
		return nil, auth.InvalidInput("only a doctor's resume or certification can be public")
	}
	if req.TargetID != nil && *req.TargetID != caller.ID {
		if _, err := s.roles.RoleOf(ctx, *req.TargetID); err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				return nil, auth.NotFound("target principal")
			}
			return nil, err
		}
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	d := &Document{
		UploaderID:  caller.ID,
		TargetID:    req.TargetID,
		Kind:        req.Kind,
		Title:       title,
		StorageKey:  strings.TrimSpace(req.StorageKey),
		ContentType: contentType,
		Public:      req.Public,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns a document the caller may read. caller may be nil, in which
// case only public documents are visible.
func (s *Service) Get(ctx context.Context, caller *auth.Identity, id uuid.UUID) (*Document, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(auth.Request{Principal: caller, Resource: d.Descriptor(), Action: auth.ActionRead}); err != nil {
		return nil, err
	}
	return d, nil
}

// ListMine returns documents uploaded by or about the caller.
func (s *Service) ListMine(ctx context.Context, caller *auth.Identity, limit, offset int) ([]*Document, int, error) {
	if caller == nil {
		return nil, 0, auth.ErrAuthenticationRequired
	}
	return s.repo.List(ctx, Filter{Involving: &caller.ID}, limit, offset)
}

// ListForDoctor returns the documents a doctor uploaded. Private ones are
// included only for that doctor and admins.
func (s *Service) ListForDoctor(ctx context.Context, caller *auth.Identity, doctorID uuid.UUID, limit, offset int) ([]*Document, int, error) {
	full := s.guard.Check(auth.Request{
		Principal: caller,
		Resource:  &auth.Descriptor{Type: resourceType, Owners: []uuid.UUID{doctorID}},
		Action:    auth.ActionRead,
	}) == nil
	return s.repo.List(ctx, Filter{UploaderID: &doctorID, PublicOnly: !full}, limit, offset)
}

// Delete removes a document. Only its uploader may.
func (s *Service) Delete(ctx context.Context, caller *auth.Identity, id uuid.UUID) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.guard.Check(auth.Request{
		Principal: caller,
		Resource:  &auth.Descriptor{Type: resourceType, Owners: []uuid.UUID{d.UploaderID}},
		Action:    auth.ActionWrite,
	})
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
