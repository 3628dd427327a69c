package principal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

type linkCounter struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (l *linkCounter) IdentityLink(outcome string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.outcomes == nil {
		l.outcomes = map[string]int{}
	}
	l.outcomes[outcome]++
}

func (l *linkCounter) get(outcome string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outcomes[outcome]
}

func googleProfile(sub, email string) *auth.FederatedProfile {
	return &auth.FederatedProfile{
		Provider:   "google",
		Subject:    sub,
		Email:      email,
		GivenName:  "Grace",
		FamilyName: "Hopper",
		AvatarURL:  "https://lh3.example.com/photo.jpg",
	}
}

func TestLinker_CreatesPatient(t *testing.T) {
	repo := newMockRepo()
	counter := &linkCounter{}
	l := NewLinker(repo, zerolog.Nop(), counter)

	p, err := l.LinkOrCreate(context.Background(), googleProfile("111", "Grace@Example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role != auth.RolePatient {
		t.Errorf("expected patient, got %q", p.Role)
	}
	if p.AuthOrigin != auth.OriginFederated {
		t.Errorf("expected federated origin, got %q", p.AuthOrigin)
	}
	if p.HasLocalPassword() {
		t.Error("federated principal must not have a password")
	}
	if p.FederatedID == nil || *p.FederatedID != "google:111" {
		t.Errorf("unexpected federated id: %v", p.FederatedID)
	}
	if p.Email != "grace@example.com" {
		t.Errorf("expected normalized email, got %q", p.Email)
	}
	if counter.get("created") != 1 {
		t.Errorf("expected created outcome, got %v", counter.outcomes)
	}
}

func TestLinker_FindsExistingLink(t *testing.T) {
	repo := newMockRepo()
	counter := &linkCounter{}
	l := NewLinker(repo, zerolog.Nop(), counter)
	first, err := l.LinkOrCreate(context.Background(), googleProfile("222", "a@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	// The provider may report a new email for the same subject.
	again, err := l.LinkOrCreate(context.Background(), googleProfile("222", "renamed@example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID != first.ID {
		t.Error("same federated subject resolved to a different principal")
	}
	if repo.count() != 1 {
		t.Errorf("expected 1 principal, got %d", repo.count())
	}
	if counter.get("found") != 1 {
		t.Errorf("expected found outcome, got %v", counter.outcomes)
	}
}

func TestLinker_LinksLocalAccountKeepingRoleAndPassword(t *testing.T) {
	svc, repo := newTestService(t)
	doc, err := svc.Register(context.Background(), RegisterRequest{
		Email: "house@example.com", Password: "vicodin-please", Role: auth.RoleDoctor,
	})
	if err != nil {
		t.Fatal(err)
	}
	counter := &linkCounter{}
	l := NewLinker(repo, zerolog.Nop(), counter)

	p, err := l.LinkOrCreate(context.Background(), googleProfile("333", "HOUSE@example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != doc.ID {
		t.Fatal("expected the existing account to be linked")
	}
	if p.Role != auth.RoleDoctor {
		t.Errorf("linking must not change role, got %q", p.Role)
	}
	if p.AvatarURL == nil || *p.AvatarURL != "https://lh3.example.com/photo.jpg" {
		t.Error("expected avatar to be taken from the provider")
	}
	if counter.get("linked") != 1 {
		t.Errorf("expected linked outcome, got %v", counter.outcomes)
	}

	// Password login keeps working after the link.
	if _, err := svc.Login(context.Background(), LoginRequest{Email: "house@example.com", Password: "vicodin-please"}); err != nil {
		t.Errorf("password login after link: %v", err)
	}
}

func TestLinker_EmailBoundToOtherSubject(t *testing.T) {
	repo := newMockRepo()
	counter := &linkCounter{}
	l := NewLinker(repo, zerolog.Nop(), counter)
	if _, err := l.LinkOrCreate(context.Background(), googleProfile("444", "x@example.com")); err != nil {
		t.Fatal(err)
	}
	_, err := l.LinkOrCreate(context.Background(), googleProfile("555", "x@example.com"))
	if auth.KindOf(err) != auth.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if errors.Is(err, ErrDuplicate) {
		t.Error("an email bound to another subject must not look like a lost create race")
	}
	if strings.Contains(err.Error(), "recover link race") {
		t.Errorf("race fallback must not run, got %v", err)
	}
	if counter.get("race_recovered") != 0 {
		t.Errorf("unexpected outcomes: %v", counter.outcomes)
	}
}

func TestLinker_MissingEmail(t *testing.T) {
	l := NewLinker(newMockRepo(), zerolog.Nop(), nil)
	_, err := l.LinkOrCreate(context.Background(), googleProfile("666", ""))
	if !errors.Is(err, auth.ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", err)
	}
	if _, err := l.LinkOrCreate(context.Background(), nil); !errors.Is(err, auth.ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail for nil profile, got %v", err)
	}
}

func TestLinker_ConcurrentFirstLogin(t *testing.T) {
	repo := newMockRepo()
	counter := &linkCounter{}
	l := NewLinker(repo, zerolog.Nop(), counter)

	const workers = 8
	var ready sync.WaitGroup
	ready.Add(workers)
	release := make(chan struct{})
	repo.createHook = func() {
		ready.Done()
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}

	var wg sync.WaitGroup
	results := make([]*Principal, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = l.LinkOrCreate(context.Background(), googleProfile("777", "race@example.com"))
		}(i)
	}
	// Every worker has passed its lookups and is about to insert.
	ready.Wait()
	close(release)
	wg.Wait()

	if repo.count() != 1 {
		t.Fatalf("expected exactly one principal, got %d", repo.count())
	}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i].ID != results[0].ID {
			t.Errorf("worker %d resolved to a different principal", i)
		}
		if results[i].Role != auth.RolePatient {
			t.Errorf("worker %d: expected patient, got %q", i, results[i].Role)
		}
	}
	if counter.get("created") != 1 || counter.get("race_recovered") != workers-1 {
		t.Errorf("unexpected outcomes: %v", counter.outcomes)
	}
}
