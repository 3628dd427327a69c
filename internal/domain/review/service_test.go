package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	reviews map[uuid.UUID]*Review
}

func newMockRepo() *mockRepo {
	return &mockRepo{reviews: make(map[uuid.UUID]*Review)}
}

func (m *mockRepo) Create(_ context.Context, r *Review) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.reviews[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) ListForDoctor(_ context.Context, doctorID uuid.UUID, publishedOnly bool, limit, offset int) ([]*Review, int, error) {
	var out []*Review
	for _, r := range m.reviews {
		if r.DoctorID != doctorID || (publishedOnly && !r.Published) {
			continue
		}
		out = append(out, r)
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	if offset+limit < total {
		out = out[offset : offset+limit]
	} else {
		out = out[offset:]
	}
	return out, total, nil
}

func (m *mockRepo) SetPublished(_ context.Context, id uuid.UUID, published bool) (*Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.Published = published
	return r, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.reviews[id]; !ok {
		return ErrNotFound
	}
	delete(m.reviews, id)
	return nil
}

// completedVisits records patient/doctor pairs with a completed appointment.
type completedVisits map[[2]uuid.UUID]bool

func (v completedVisits) HasCompletedAppointment(_ context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	return v[[2]uuid.UUID{patientID, doctorID}], nil
}

type fixture struct {
	svc     *Service
	repo    *mockRepo
	visits  completedVisits
	patient *auth.Identity
	doctor  *auth.Identity
	other   *auth.Identity
	admin   *auth.Identity
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMockRepo(),
		visits:  completedVisits{},
		patient: &auth.Identity{ID: uuid.New(), Role: auth.RolePatient},
		doctor:  &auth.Identity{ID: uuid.New(), Role: auth.RoleDoctor},
		other:   &auth.Identity{ID: uuid.New(), Role: auth.RolePatient},
		admin:   &auth.Identity{ID: uuid.New(), Role: auth.RoleAdmin},
	}
	f.visits[[2]uuid.UUID{f.patient.ID, f.doctor.ID}] = true
	f.svc = NewService(f.repo, auth.NewGuard(zerolog.Nop(), nil), f.visits)
	return f
}

func (f *fixture) review(t *testing.T) *Review {
	t.Helper()
	r, err := f.svc.Create(context.Background(), f.patient, CreateRequest{DoctorID: f.doctor.ID, Rating: 4, Comment: " great "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return r
}

func TestService_Create(t *testing.T) {
	f := newFixture()
	r := f.review(t)
	if r.Published {
		t.Error("new reviews start unpublished")
	}
	if r.Comment != "great" || r.AuthorID != f.patient.ID {
		t.Errorf("unexpected review: %+v", r)
	}
}

func TestService_Create_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []struct {
		name   string
		caller *auth.Identity
		req    CreateRequest
		check  func(error) bool
	}{
		{"anonymous", nil, CreateRequest{DoctorID: f.doctor.ID, Rating: 5},
			func(err error) bool { return errors.Is(err, auth.ErrAuthenticationRequired) }},
		{"doctor", f.doctor, CreateRequest{DoctorID: f.doctor.ID, Rating: 5},
			func(err error) bool { return errors.Is(err, auth.ErrRoleNotPermitted) }},
		{"rating too low", f.patient, CreateRequest{DoctorID: f.doctor.ID, Rating: 0},
			func(err error) bool { return auth.KindOf(err) == auth.KindInvalidInput }},
		{"rating too high", f.patient, CreateRequest{DoctorID: f.doctor.ID, Rating: 6},
			func(err error) bool { return auth.KindOf(err) == auth.KindInvalidInput }},
		{"never seen", f.other, CreateRequest{DoctorID: f.doctor.ID, Rating: 3},
			func(err error) bool { return errors.Is(err, auth.ErrAccessDenied) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.caller, tc.req)
			if !tc.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestService_Get_Visibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.review(t)

	if _, err := f.svc.Get(ctx, nil, r.ID); !errors.Is(err, auth.ErrAuthenticationRequired) {
		t.Errorf("anonymous unpublished read: got %v", err)
	}
	if _, err := f.svc.Get(ctx, f.other, r.ID); !errors.Is(err, auth.ErrAccessDenied) {
		t.Errorf("stranger unpublished read: got %v", err)
	}
	for _, caller := range []*auth.Identity{f.patient, f.doctor, f.admin} {
		if _, err := f.svc.Get(ctx, caller, r.ID); err != nil {
			t.Errorf("%s should read: %v", caller.Role, err)
		}
	}

	if _, err := f.svc.SetPublished(ctx, f.doctor, r.ID, true); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := f.svc.Get(ctx, nil, r.ID); err != nil {
		t.Errorf("anonymous published read: %v", err)
	}
}

func TestService_SetPublished_DoctorOrAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.review(t)

	if _, err := f.svc.SetPublished(ctx, f.patient, r.ID, true); !errors.Is(err, auth.ErrAccessDenied) {
		t.Errorf("author publishing: expected access denied, got %v", err)
	}
	otherDoctor := &auth.Identity{ID: uuid.New(), Role: auth.RoleDoctor}
	if _, err := f.svc.SetPublished(ctx, otherDoctor, r.ID, true); !errors.Is(err, auth.ErrAccessDenied) {
		t.Errorf("other doctor publishing: expected access denied, got %v", err)
	}
	got, err := f.svc.SetPublished(ctx, f.admin, r.ID, true)
	if err != nil || !got.Published {
		t.Fatalf("admin publishing: %v", err)
	}
}

func TestService_ListForDoctor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	published := f.review(t)
	f.review(t)
	if _, err := f.svc.SetPublished(ctx, f.doctor, published.ID, true); err != nil {
		t.Fatal(err)
	}

	if _, total, _ := f.svc.ListForDoctor(ctx, nil, f.doctor.ID, 10, 0); total != 1 {
		t.Errorf("anonymous: expected 1 published, got %d", total)
	}
	if _, total, _ := f.svc.ListForDoctor(ctx, f.patient, f.doctor.ID, 10, 0); total != 1 {
		t.Errorf("patient: expected 1 published, got %d", total)
	}
	if _, total, _ := f.svc.ListForDoctor(ctx, f.doctor, f.doctor.ID, 10, 0); total != 2 {
		t.Errorf("doctor: expected 2, got %d", total)
	}
	if _, total, _ := f.svc.ListForDoctor(ctx, f.admin, f.doctor.ID, 10, 0); total != 2 {
		t.Errorf("admin: expected 2, got %d", total)
	}
}

func TestService_Delete_AuthorOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.review(t)

	if err := f.svc.Delete(ctx, f.doctor, r.ID); !errors.Is(err, auth.ErrAccessDenied) {
		t.Errorf("doctor deleting: expected access denied, got %v", err)
	}
	if err := f.svc.Delete(ctx, f.patient, r.ID); err != nil {
		t.Fatalf("author deleting: %v", err)
	}
	if err := f.svc.Delete(ctx, f.patient, r.ID); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
