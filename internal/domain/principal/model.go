package principal

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medconnect/medconnect/internal/platform/auth"
)

// Principal is an identity record. Role is fixed at creation.
type Principal struct {
	ID           uuid.UUID       `json:"id"`
	Email        string          `json:"email"`
	PasswordHash *string         `json:"-"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	Phone        *string         `json:"phone,omitempty"`
	Role         auth.Role       `json:"role"`
	FederatedID  *string         `json:"-"`
	AuthOrigin   auth.AuthOrigin `json:"auth_origin"`
	AvatarURL    *string         `json:"avatar_url,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// HasLocalPassword reports whether password login is possible.
func (p *Principal) HasLocalPassword() bool {
	return p.PasswordHash != nil && *p.PasswordHash != ""
}

// Identity projects the record onto the request-scoped identity.
func (p *Principal) Identity() *auth.Identity {
	return &auth.Identity{
		ID:         p.ID,
		Email:      p.Email,
		Role:       p.Role,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		AvatarURL:  p.AvatarURL,
		AuthOrigin: p.AuthOrigin,
	}
}

// NormalizeEmail lower-cases and trims an address; uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     *string   `json:"phone,omitempty"`
	Role      auth.Role `json:"role,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FederatedLoginRequest is the body of POST /auth/federated.
type FederatedLoginRequest struct {
	IDToken string `json:"id_token"`
}

// Session is returned by every endpoint that signs a principal in.
type Session struct {
	Principal *Principal `json:"principal"`
	*auth.Token
}

// DoctorProfile is the public directory entry for a doctor.
type DoctorProfile struct {
	ID              uuid.UUID `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	AvatarURL       *string   `json:"avatar_url,omitempty"`
	Specializations []string  `json:"specializations"`
}

// Profile projects a doctor record onto its public fields.
func (p *Principal) Profile() *DoctorProfile {
	return &DoctorProfile{
		ID:              p.ID,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		AvatarURL:       p.AvatarURL,
		Specializations: []string{},
	}
}
