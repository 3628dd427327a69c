package principal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

const minPasswordLen = 8

// LoginRecorder counts login attempts by method and outcome.
type LoginRecorder interface {
	LoginAttempt(method, outcome string)
}

// SpecializationDirectory resolves the specialization names of doctors for
// the public directory.
type SpecializationDirectory interface {
	NamesForDoctors(ctx context.Context, doctorIDs []uuid.UUID) (map[uuid.UUID][]string, error)
}

type Service struct {
	repo    Repository
	hasher  *auth.Hasher
	tokens  *auth.TokenService
	logger  zerolog.Logger
	metrics LoginRecorder
	specs   SpecializationDirectory
}

func NewService(repo Repository, hasher *auth.Hasher, tokens *auth.TokenService, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: logger.With().Str("component", "principal").Logger(),
	}
}

// WithMetrics attaches a login counter.
func (s *Service) WithMetrics(m LoginRecorder) *Service {
	s.metrics = m
	return s
}

// WithSpecializations attaches the directory used by the doctor listing.
func (s *Service) WithSpecializations(d SpecializationDirectory) *Service {
	s.specs = d
	return s
}

func (s *Service) recordLogin(method, outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempt(method, outcome)
	}
}

// emailFingerprint identifies an address in logs without writing it out.
func emailFingerprint(email string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:4])
}

func validateEmail(email string) error {
	if email == "" {
		return auth.InvalidInput("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return auth.InvalidInput("email is invalid")
	}
	return nil
}

// Register creates a local patient or doctor account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Principal, error) {
	email := NormalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLen {
		return nil, auth.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	role := req.Role
	if role == "" {
		role = auth.RolePatient
	}
	if role != auth.RolePatient && role != auth.RoleDoctor {
		return nil, auth.InvalidInput("role must be patient or doctor")
	}
	return s.createLocal(ctx, email, req.Password, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), req.Phone, role)
}

// CreateAdmin creates an admin account. It is only reachable from the CLI.
func (s *Service) CreateAdmin(ctx context.Context, email, password, firstName, lastName string) (*Principal, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLen {
		return nil, auth.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	p, err := s.createLocal(ctx, email, password, firstName, lastName, nil, auth.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.logger.Warn().Str("principal_id", p.ID.String()).Msg("admin account created")
	return p, nil
}

func (s *Service) createLocal(ctx context.Context, email, password, first, last string, phone *string, role auth.Role) (*Principal, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, auth.InvalidInput(err.Error())
	}
	p := &Principal{
		Email:        email,
		PasswordHash: &hash,
		FirstName:    first,
		LastName:     last,
		Phone:        phone,
		Role:         role,
		AuthOrigin:   auth.OriginLocal,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, auth.Conflict("email already registered")
		}
		return nil, err
	}
	return p, nil
}

// VerifyCredentials returns the principal whose password matches. Unknown
// email, wrong password and accounts without a local password all yield
// auth.ErrInvalidCredentials.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*Principal, error) {
	p, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.hasher.VerifyMissing(password)
			return nil, auth.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup principal: %w", err)
	}
	if !p.HasLocalPassword() {
		s.hasher.VerifyMissing(password)
		return nil, auth.ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, *p.PasswordHash) {
		return nil, auth.ErrInvalidCredentials
	}
	return p, nil
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	p, err := s.VerifyCredentials(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.recordLogin("password", "failure")
			s.logger.Info().Str("email_fp", emailFingerprint(req.Email)).Msg("login failed")
		} else {
			s.recordLogin("password", "error")
		}
		return nil, err
	}
	s.recordLogin("password", "success")
	return s.IssueSession(p)
}

// IssueSession signs a token for p.
func (s *Service) IssueSession(p *Principal) (*Session, error) {
	tok, err := s.tokens.Issue(*p.Identity())
	if err != nil {
		return nil, err
	}
	return &Session{Principal: p, Token: tok}, nil
}

// Refresh re-issues a token from the stored principal. The caller must
// already hold a valid token.
func (s *Service) Refresh(ctx context.Context, id uuid.UUID) (*Session, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.ErrSubjectNotFound
		}
		return nil, err
	}
	return s.IssueSession(p)
}

// Get returns a principal by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Principal, error) {
	return s.repo.GetByID(ctx, id)
}

// LoadIdentity implements auth.PrincipalLoader.
func (s *Service) LoadIdentity(ctx context.Context, id uuid.UUID) (*auth.Identity, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Identity(), nil
}

// RoleOf returns the role of a principal; used by other packages to check
// that a referenced id is a doctor or patient.
func (s *Service) RoleOf(ctx context.Context, id uuid.UUID) (auth.Role, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

// GetDoctor returns the public profile of a doctor.
func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*DoctorProfile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role != auth.RoleDoctor {
		return nil, auth.NotFound("doctor")
	}
	profiles := []*DoctorProfile{p.Profile()}
	if err := s.attachSpecializations(ctx, profiles); err != nil {
		return nil, err
	}
	return profiles[0], nil
}

// ListDoctors returns a page of the doctor directory.
func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*DoctorProfile, int, error) {
	items, total, err := s.repo.ListByRole(ctx, auth.RoleDoctor, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	profiles := make([]*DoctorProfile, 0, len(items))
	for _, p := range items {
		profiles = append(profiles, p.Profile())
	}
	if err := s.attachSpecializations(ctx, profiles); err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (s *Service) attachSpecializations(ctx context.Context, profiles []*DoctorProfile) error {
	if s.specs == nil || len(profiles) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}
	names, err := s.specs.NamesForDoctors(ctx, ids)
	if err != nil {
		return fmt.Errorf("load specializations: %w", err)
	}
	for _, p := range profiles {
		if n := names[p.ID]; n != nil {
			p.Specializations = n
		}
	}
	return nil
}
