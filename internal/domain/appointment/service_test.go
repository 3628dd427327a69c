package appointment

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
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

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Status = status
	return a, nil
}

func (m *mockRepo) UpdateNotes(_ context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.ConsultationNotes = &notes
	return a, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.appts[id]; !ok {
		return ErrNotFound
	}
	delete(m.appts, id)
	return nil
}

func (m *mockRepo) HasCompleted(_ context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	for _, a := range m.appts {
		if a.PatientID == patientID && a.DoctorID == doctorID && a.Status == StatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

type roleMap map[uuid.UUID]auth.Role

func (r roleMap) RoleOf(_ context.Context, id uuid.UUID) (auth.Role, error) {
	role, ok := r[id]
	if !ok {
		return "", auth.NotFound("principal")
	}
	return role, nil
}

type fixture struct {
	svc     *Service
	repo    *mockRepo
	patient *auth.Identity
	doctor  *auth.Identity
	other   *auth.Identity
	admin   *auth.Identity
}

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		repo:    newMockRepo(),
		patient: &auth.Identity{ID: uuid.New(), Role: auth.RolePatient},
		doctor:  &auth.Identity{ID: uuid.New(), Role: auth.RoleDoctor},
		other:   &auth.Identity{ID: uuid.New(), Role: auth.RolePatient},
		admin:   &auth.Identity{ID: uuid.New(), Role: auth.RoleAdmin},
	}
	roles := roleMap{
		f.patient.ID: auth.RolePatient,
		f.doctor.ID:  auth.RoleDoctor,
		f.other.ID:   auth.RolePatient,
		f.admin.ID:   auth.RoleAdmin,
	}
	f.svc = NewService(f.repo, auth.NewGuard(zerolog.Nop(), nil), roles)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) book(t *testing.T) *Appointment {
	t.Helper()
	a, err := f.svc.Book(context.Background(), f.patient, CreateRequest{
		DoctorID: f.doctor.ID, ScheduledAt: testNow.Add(48 * time.Hour), Reason: "checkup",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	return a
}

func TestService_Book(t *testing.T) {
	f := newFixture()
	a := f.book(t)
	if a.PatientID != f.patient.ID || a.DoctorID != f.doctor.ID {
		t.Error("participants not recorded")
	}
	if a.Status != StatusPending {
		t.Errorf("expected pending, got %q", a.Status)
	}
}

func TestService_Book_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	future := testNow.Add(time.Hour)

	cases := []struct {
		name   string
		caller *auth.Identity
		req    CreateRequest
		check  func(error) bool
	}{
		{"anonymous", nil, CreateRequest{DoctorID: f.doctor.ID, ScheduledAt: future},
			func(err error) bool { return errors.Is(err, auth.ErrAuthenticationRequired) }},
		{"doctor cannot book", f.doctor, CreateRequest{DoctorID: f.doctor.ID, ScheduledAt: future},
			func(err error) bool { return errors.Is(err, auth.ErrRoleNotPermitted) }},
		{"past time", f.patient, CreateRequest{DoctorID: f.doctor.ID, ScheduledAt: testNow.Add(-time.Hour)},
			func(err error) bool { return auth.KindOf(err) == auth.KindInvalidInput }},
		{"target is not a doctor", f.patient, CreateRequest{DoctorID: f.other.ID, ScheduledAt: future},
			func(err error) bool { return auth.KindOf(err) == auth.KindInvalidInput }},
		{"unknown doctor", f.patient, CreateRequest{DoctorID: uuid.New(), ScheduledAt: future},
			func(err error) bool { return errors.Is(err, auth.ErrNotFound) }},
		{"patient books for someone else", f.patient, CreateRequest{DoctorID: f.doctor.ID, ScheduledAt: future, PatientID: &f.other.ID},
			func(err error) bool { return errors.Is(err, auth.ErrAccessDenied) }},
		{"admin without patient", f.admin, CreateRequest{DoctorID: f.doctor.ID, ScheduledAt: future},
			func(err error) bool { return auth.KindOf(err) == auth.KindInvalidInput }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Book(ctx, tc.caller, tc.req)
			if !tc.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestService_Book_AdminForPatient(t *testing.T) {
	f := newFixture()
	a, err := f.svc.Book(context.Background(), f.admin, CreateRequest{
		DoctorID: f.doctor.ID, ScheduledAt: testNow.Add(time.Hour), PatientID: &f.patient.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.PatientID != f.patient.ID {
		t.Errorf("expected booking for patient, got %v", a.PatientID)
	}
}

func TestService_Get_Ownership(t *testing.T) {
	f := newFixture()
	a := f.book(t)
	ctx := context.Background()

	for _, caller := range []*auth.Identity{f.patient, f.doctor, f.admin} {
		if _, err := f.svc.Get(ctx, caller, a.ID); err != nil {
			t.Errorf("%s should read: %v", caller.Role, err)
		}
	}
	if _, err := f.svc.Get(ctx, f.other, a.ID); !errors.Is(err, auth.ErrAccessDenied) {
		t.Errorf("unrelated patient: expected access denied, got %v", err)
	}
	if _, err := f.svc.Get(ctx, f.other, uuid.New()); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_List_Scoped(t *testing.T) {
	f := newFixture()
	f.book(t)
	ctx := context.Background()

	if _, total, _ := f.svc.List(ctx, f.patient, 10, 0); total != 1 {
		t.Errorf("patient: expected 1, got %d", total)
	}
	if _, total, _ := f.svc.List(ctx, f.doctor, 10, 0); total != 1 {
		t.Errorf("doctor: expected 1, got %d", total)
	}
	if _, total, _ := f.svc.List(ctx, f.other, 10, 0); total != 0 {
		t.Errorf("other patient: expected 0, got %d", total)
	}
	if _, total, _ := f.svc.List(ctx, f.admin, 10, 0); total != 1 {
		t.Errorf("admin: expected 1, got %d", total)
	}
}

func TestService_UpdateStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t)

	if _, err := f.svc.UpdateStatus(ctx, f.patient, a.ID, StatusConfirmed); !errors.Is(err, auth.ErrAccessDenied) {
		t.Errorf("patient confirming: expected access denied, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.other, a.ID, StatusCancelled); !errors.Is(err, auth.ErrAccessDenied) {
		t.Errorf("stranger cancelling: expected access denied, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.doctor, a.ID, StatusCompleted); auth.KindOf(err) != auth.KindConflict {
		t.Errorf("pending to completed: expected conflict, got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.doctor, a.ID, StatusConfirmed); err != nil {
		t.Fatalf("doctor confirming: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.patient, a.ID, StatusCancelled); err != nil {
		t.Fatalf("patient cancelling: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.doctor, a.ID, StatusConfirmed); auth.KindOf(err) != auth.KindConflict {
		t.Errorf("cancelled is terminal: got %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.doctor, a.ID, "bogus"); auth.KindOf(err) != auth.KindInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestService_SetNotes_DoctorOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t)

	if _, err := f.svc.SetNotes(ctx, f.patient, a.ID, "self diagnosis"); !errors.Is(err, auth.ErrRoleNotPermitted) {
		t.Errorf("patient writing notes: expected role not permitted, got %v", err)
	}
	otherDoctor := &auth.Identity{ID: uuid.New(), Role: auth.RoleDoctor}
	if _, err := f.svc.SetNotes(ctx, otherDoctor, a.ID, "not mine"); !errors.Is(err, auth.ErrAccessDenied) {
		t.Errorf("other doctor: expected access denied, got %v", err)
	}
	updated, err := f.svc.SetNotes(ctx, f.doctor, a.ID, "  rest and fluids ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ConsultationNotes == nil || *updated.ConsultationNotes != "rest and fluids" {
		t.Errorf("unexpected notes: %v", updated.ConsultationNotes)
	}
}

func TestService_Delete_PatientOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t)

	if err := f.svc.Delete(ctx, f.doctor, a.ID); !errors.Is(err, auth.ErrAccessDenied) {
		t.Errorf("doctor deleting: expected access denied, got %v", err)
	}
	if err := f.svc.Delete(ctx, f.patient, a.ID); err != nil {
		t.Fatalf("patient deleting: %v", err)
	}
	if _, err := f.svc.Get(ctx, f.patient, a.ID); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestService_HasCompletedAppointment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t)

	ok, _ := f.svc.HasCompletedAppointment(ctx, f.patient.ID, f.doctor.ID)
	if ok {
		t.Error("pending appointment must not count")
	}
	f.repo.appts[a.ID].Status = StatusCompleted
	ok, _ = f.svc.HasCompletedAppointment(ctx, f.patient.ID, f.doctor.ID)
	if !ok {
		t.Error("completed appointment should count")
	}
}
