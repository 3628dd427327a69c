package principal

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

// LinkRecorder counts identity-link outcomes.
type LinkRecorder interface {
	IdentityLink(outcome string)
}

// Linker resolves a verified federated profile to a principal, linking an
// existing local account by email or creating a new patient.
type Linker struct {
	repo    Repository
	logger  zerolog.Logger
	metrics LinkRecorder
}

func NewLinker(repo Repository, logger zerolog.Logger, metrics LinkRecorder) *Linker {
	return &Linker{
		repo:    repo,
		logger:  logger.With().Str("component", "identity_link").Logger(),
		metrics: metrics,
	}
}

func (l *Linker) record(outcome string) {
	if l.metrics != nil {
		l.metrics.IdentityLink(outcome)
	}
}

// LinkOrCreate returns the principal bound to profile. Lookup order is
// federated id, then email. A lost create race is retried once as a lookup.
func (l *Linker) LinkOrCreate(ctx context.Context, profile *auth.FederatedProfile) (*Principal, error) {
	if profile == nil || profile.Email == "" {
		return nil, auth.ErrMissingEmail
	}
	fedID := profile.FederatedID()

	p, err := l.resolve(ctx, profile, fedID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		l.record("error")
		return nil, err
	}

	// Another request created or linked the same identity between our
	// lookup and write.
	p, err = l.lookup(ctx, profile, fedID)
	if err != nil {
		l.record("error")
		return nil, fmt.Errorf("recover link race: %w", err)
	}
	l.record("race_recovered")
	l.logger.Info().Str("principal_id", p.ID.String()).Msg("federated link race recovered")
	return p, nil
}

func (l *Linker) resolve(ctx context.Context, profile *auth.FederatedProfile, fedID string) (*Principal, error) {
	p, err := l.repo.GetByFederatedID(ctx, fedID)
	if err == nil {
		l.record("found")
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	existing, err := l.repo.GetByEmail(ctx, NormalizeEmail(profile.Email))
	switch {
	case err == nil:
		if existing.FederatedID != nil && *existing.FederatedID != fedID {
			return nil, auth.Conflict("email is linked to another federated account")
		}
		linked, err := l.repo.LinkFederatedIdentity(ctx, existing.ID, fedID, optional(profile.AvatarURL))
		if err != nil {
			return nil, err
		}
		l.record("linked")
		l.logger.Info().Str("principal_id", linked.ID.String()).Str("provider", profile.Provider).Msg("federated identity linked")
		return linked, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	p = &Principal{
		Email:       NormalizeEmail(profile.Email),
		FirstName:   profile.GivenName,
		LastName:    profile.FamilyName,
		Role:        auth.RolePatient,
		FederatedID: &fedID,
		AuthOrigin:  auth.OriginFederated,
		AvatarURL:   optional(profile.AvatarURL),
	}
	if err := l.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	l.record("created")
	l.logger.Info().Str("principal_id", p.ID.String()).Str("provider", profile.Provider).Msg("federated principal created")
	return p, nil
}

func (l *Linker) lookup(ctx context.Context, profile *auth.FederatedProfile, fedID string) (*Principal, error) {
	p, err := l.repo.GetByFederatedID(ctx, fedID)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return p, err
	}
	p, err = l.repo.GetByEmail(ctx, NormalizeEmail(profile.Email))
	if err != nil {
		return nil, err
	}
	if p.FederatedID == nil {
		// The winner created the row by local registration; link it now.
		return l.repo.LinkFederatedIdentity(ctx, p.ID, fedID, optional(profile.AvatarURL))
	}
	if *p.FederatedID != fedID {
		return nil, auth.Conflict("email is linked to another federated account")
	}
	return p, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
