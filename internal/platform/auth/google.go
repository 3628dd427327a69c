package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// IDTokenSource verifies a raw ID token into a profile.
type IDTokenSource interface {
	Verify(ctx context.Context, raw string) (*FederatedProfile, error)
}

// GoogleConfig holds the OAuth client registration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Issuer       string
}

// GoogleProvider runs the authorization code flow against Google and
// verifies the returned ID token.
type GoogleProvider struct {
	oauth    *oauth2.Config
	verifier IDTokenSource
}

// NewGoogleProvider discovers Google's endpoints and JWKS from cfg.Issuer.
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig, client *http.Client) (*GoogleProvider, error) {
	md, err := Discover(ctx, client, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	keys := NewJWKSCache(md.JWKSURI, 0, client)
	verifier := NewIDTokenVerifier("google", cfg.ClientID, keys, GoogleIssuers(md.Issuer)...)
	return newGoogleProvider(cfg, oauth2.Endpoint{
		AuthURL:   md.AuthorizationEndpoint,
		TokenURL:  md.TokenEndpoint,
		AuthStyle: oauth2.AuthStyleInParams,
	}, verifier), nil
}

func newGoogleProvider(cfg GoogleConfig, endpoint oauth2.Endpoint, verifier IDTokenSource) *GoogleProvider {
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		verifier: verifier,
	}
}

// AuthCodeURL returns the consent-screen URL carrying state.
func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for tokens and verifies the ID
// token in the response.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*FederatedProfile, error) {
	if code == "" {
		return nil, InvalidInput("missing authorization code")
	}
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, Wrap(ErrInvalidIDToken, err)
		}
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return nil, Wrap(ErrInvalidIDToken, errors.New("token response has no id_token"))
	}
	return g.verifier.Verify(ctx, raw)
}

// VerifyIDToken verifies an ID token the client obtained itself.
func (g *GoogleProvider) VerifyIDToken(ctx context.Context, raw string) (*FederatedProfile, error) {
	return g.verifier.Verify(ctx, raw)
}

// NewState returns a random OAuth state value.
func NewState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
