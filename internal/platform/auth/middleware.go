package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// PrincipalLoader reloads the current state of a principal. Implementations
// return an error matching ErrNotFound when the principal no longer exists.
type PrincipalLoader interface {
	LoadIdentity(ctx context.Context, id uuid.UUID) (*Identity, error)
}

// TokenFailureRecorder counts rejected tokens by reason.
type TokenFailureRecorder interface {
	TokenFailure(reason string)
}

// Authenticator turns a bearer token into a trusted Identity. It always
// reloads the principal so role changes and deletions take effect
// immediately, without waiting for the token to expire.
type Authenticator struct {
	tokens  *TokenService
	loader  PrincipalLoader
	logger  zerolog.Logger
	metrics TokenFailureRecorder
}

// NewAuthenticator creates an Authenticator. metrics may be nil.
func NewAuthenticator(tokens *TokenService, loader PrincipalLoader, logger zerolog.Logger, metrics TokenFailureRecorder) *Authenticator {
	return &Authenticator{
		tokens:  tokens,
		loader:  loader,
		logger:  logger.With().Str("component", "authenticator").Logger(),
		metrics: metrics,
	}
}

// bearerToken extracts the token from the Authorization header. A missing
// header yields ErrAuthenticationRequired; anything else malformed is an
// invalid token.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", ErrAuthenticationRequired
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrInvalidToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

// Authenticate verifies the request's bearer token and reloads the principal
// it names.
func (a *Authenticator) Authenticate(r *http.Request) (*Identity, error) {
	raw, err := bearerToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := a.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}
	id, err := claims.PrincipalID()
	if err != nil {
		return nil, Wrap(ErrInvalidToken, err)
	}
	ident, err := a.loader.LoadIdentity(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	return ident, nil
}

// AuthenticateOptional is Authenticate with every failure mapped to an
// anonymous caller.
func (a *Authenticator) AuthenticateOptional(r *http.Request) *Identity {
	ident, err := a.Authenticate(r)
	if err != nil {
		if !errors.Is(err, ErrAuthenticationRequired) {
			a.logger.Debug().Err(err).Msg("optional authentication failed, continuing anonymously")
		}
		return nil
	}
	return ident
}

// Required rejects requests without a valid token.
func (a *Authenticator) Required() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, err := a.Authenticate(c.Request())
			if err != nil {
				a.recordFailure(c, err)
				return HTTPError(err)
			}
			setIdentity(c, ident)
			return next(c)
		}
	}
}

// Optional attaches the identity when a valid token is present and lets
// every other request through anonymously.
func (a *Authenticator) Optional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ident := a.AuthenticateOptional(c.Request()); ident != nil {
				setIdentity(c, ident)
			}
			return next(c)
		}
	}
}

func (a *Authenticator) recordFailure(c echo.Context, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		a.logger.Error().Err(err).Str("path", c.Path()).Msg("principal lookup failed")
		return
	}
	if a.metrics != nil {
		a.metrics.TokenFailure(string(ae.Reason))
	}
	if ae.Reason != ReasonMissingToken {
		a.logger.Info().
			Str("reason", string(ae.Reason)).
			Str("path", c.Path()).
			Str("remote_ip", c.RealIP()).
			Msg("token rejected")
	}
}
