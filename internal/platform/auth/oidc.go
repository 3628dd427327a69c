package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ProviderMetadata is the subset of an OpenID Connect discovery document the
// federated login flow needs.
type ProviderMetadata struct {
	Issuer                  string   `json:"issuer"`
	AuthorizationEndpoint   string   `json:"authorization_endpoint"`
	TokenEndpoint           string   `json:"token_endpoint"`
	UserinfoEndpoint        string   `json:"userinfo_endpoint"`
	JWKSURI                 string   `json:"jwks_uri"`
	ScopesSupported         []string `json:"scopes_supported"`
	IDTokenSigningAlgValues []string `json:"id_token_signing_alg_values_supported"`
}

// Discover fetches /.well-known/openid-configuration below issuerURL.
func Discover(ctx context.Context, client *http.Client, issuerURL string) (*ProviderMetadata, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	discoveryURL := strings.TrimRight(issuerURL, "/") + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching OIDC discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OIDC discovery endpoint returned status %d", resp.StatusCode)
	}

	var md ProviderMetadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("decoding OIDC discovery document: %w", err)
	}
	if md.JWKSURI == "" {
		return nil, fmt.Errorf("OIDC discovery document missing jwks_uri")
	}
	if md.AuthorizationEndpoint == "" || md.TokenEndpoint == "" {
		return nil, fmt.Errorf("OIDC discovery document missing authorization or token endpoint")
	}
	return &md, nil
}

// KeySource resolves a signing key by key id.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSCache caches RSA keys from a JWKS endpoint. An unknown kid forces a
// refetch so provider key rotation is picked up without waiting for the TTL.
type JWKSCache struct {
	url    string
	ttl    time.Duration
	client *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

const defaultJWKSCacheTTL = 5 * time.Minute

// NewJWKSCache creates a cache for url. A zero ttl selects five minutes.
func NewJWKSCache(url string, ttl time.Duration, client *http.Client) *JWKSCache {
	if ttl <= 0 {
		ttl = defaultJWKSCacheTTL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSCache{url: url, ttl: ttl, client: client, keys: map[string]*rsa.PublicKey{}}
}

func (c *JWKSCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	fresh := time.Since(c.fetchedAt) <= c.ttl
	c.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := c.refresh(ctx); err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key with kid %q not found in JWKS", kid)
	}
	return key, nil
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", c.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var set struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decoding JWKS response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := k.rsaPublicKey()
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return nil
}

func (k jsonWebKey) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 3 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e.Int64())}, nil
}

// FederatedProfile is the identity asserted by an external provider.
type FederatedProfile struct {
	Provider   string
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
	AvatarURL  string
}

// FederatedID is the stable key stored on the principal, e.g. google:1234.
func (p FederatedProfile) FederatedID() string {
	return p.Provider + ":" + p.Subject
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// emailVerified accepts both the boolean and the string form some providers
// emit.
func (c *idTokenClaims) emailVerified() bool {
	switch v := c.EmailVerified.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// IDTokenVerifier validates RS256 ID tokens from one provider and turns them
// into a FederatedProfile.
type IDTokenVerifier struct {
	provider string
	issuers  []string
	clientID string
	keys     KeySource
	now      func() time.Time
}

// NewIDTokenVerifier creates a verifier. issuers lists every accepted iss
// value; Google, for example, uses both the URL and the bare host.
func NewIDTokenVerifier(provider, clientID string, keys KeySource, issuers ...string) *IDTokenVerifier {
	return &IDTokenVerifier{
		provider: provider,
		issuers:  issuers,
		clientID: clientID,
		keys:     keys,
		now:      time.Now,
	}
}

// GoogleIssuers returns the iss values Google signs ID tokens with for the
// configured issuer URL.
func GoogleIssuers(issuerURL string) []string {
	issuerURL = strings.TrimRight(issuerURL, "/")
	bare := strings.TrimPrefix(issuerURL, "https://")
	if bare == issuerURL {
		return []string{issuerURL}
	}
	return []string{issuerURL, bare}
}

// Verify checks signature, issuer, audience and expiry.
func (v *IDTokenVerifier) Verify(ctx context.Context, raw string) (*FederatedProfile, error) {
	if raw == "" {
		return nil, ErrInvalidIDToken
	}
	claims := &idTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return v.keys.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, Wrap(ErrInvalidIDToken, err)
	}
	if !v.issuerAllowed(claims.Issuer) {
		return nil, Wrap(ErrInvalidIDToken, fmt.Errorf("unexpected issuer %q", claims.Issuer))
	}
	if claims.Subject == "" {
		return nil, Wrap(ErrInvalidIDToken, fmt.Errorf("missing subject"))
	}

	profile := &FederatedProfile{
		Provider:   v.provider,
		Subject:    claims.Subject,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		AvatarURL:  claims.Picture,
	}
	if claims.Email != "" && claims.emailVerified() {
		profile.Email = strings.ToLower(strings.TrimSpace(claims.Email))
	}
	if profile.Email == "" {
		return nil, ErrMissingEmail
	}
	return profile, nil
}

func (v *IDTokenVerifier) issuerAllowed(iss string) bool {
	for _, allowed := range v.issuers {
		if iss == allowed {
			return true
		}
	}
	return false
}
