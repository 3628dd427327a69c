package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kind is the closed set of failure categories produced by the identity and
// access-control core. Each kind maps to exactly one HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindCredential
	KindToken
	KindAuthorization
	KindIdentityLink
	KindNotFound
	KindInvalidInput
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindToken:
		return "token"
	case KindAuthorization:
		return "authorization"
	case KindIdentityLink:
		return "identity_link"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// HTTPStatus returns the transport status for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindCredential, KindToken:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindIdentityLink, KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Reason is a machine-readable code returned to clients alongside the
// message, e.g. so a UI can tell an expired session from a forged one.
type Reason string

const (
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonMissingToken       Reason = "authentication_required"
	ReasonMalformedToken     Reason = "malformed_token"
	ReasonBadSignature       Reason = "bad_signature"
	ReasonTokenExpired       Reason = "token_expired"
	ReasonSubjectNotFound    Reason = "subject_not_found"
	ReasonInvalidIDToken     Reason = "invalid_id_token"
	ReasonAccessDenied       Reason = "access_denied"
	ReasonRoleNotPermitted   Reason = "role_not_permitted"
	ReasonMissingEmail       Reason = "federated_email_missing"
	ReasonNotFound           Reason = "not_found"
	ReasonInvalidInput       Reason = "invalid_input"
	ReasonConflict           Reason = "conflict"
	ReasonDuplicate          Reason = "duplicate"
)

// Error is the error type returned by the auth core. Two errors are equal
// under errors.Is when kind and reason match, so callers compare against the
// sentinels below even when the message was customised.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

var (
	ErrInvalidCredentials = &Error{Kind: KindCredential, Reason: ReasonInvalidCredentials, Message: "invalid email or password"}

	ErrAuthenticationRequired = &Error{Kind: KindToken, Reason: ReasonMissingToken, Message: "authentication required"}
	ErrInvalidToken           = &Error{Kind: KindToken, Reason: ReasonMalformedToken, Message: "invalid token"}
	ErrTokenSignature         = &Error{Kind: KindToken, Reason: ReasonBadSignature, Message: "invalid token"}
	ErrTokenExpired           = &Error{Kind: KindToken, Reason: ReasonTokenExpired, Message: "token expired"}
	ErrSubjectNotFound        = &Error{Kind: KindToken, Reason: ReasonSubjectNotFound, Message: "invalid token: subject not found"}
	ErrInvalidIDToken         = &Error{Kind: KindToken, Reason: ReasonInvalidIDToken, Message: "invalid identity token"}

	ErrAccessDenied     = &Error{Kind: KindAuthorization, Reason: ReasonAccessDenied, Message: "access denied"}
	ErrRoleNotPermitted = &Error{Kind: KindAuthorization, Reason: ReasonRoleNotPermitted, Message: "role not permitted"}

	ErrMissingEmail = &Error{Kind: KindIdentityLink, Reason: ReasonMissingEmail, Message: "federated profile has no verified email"}

	ErrNotFound = &Error{Kind: KindNotFound, Reason: ReasonNotFound, Message: "not found"}
)

// NotFound returns a not-found error naming the missing resource.
func NotFound(resource string) error {
	return &Error{Kind: KindNotFound, Reason: ReasonNotFound, Message: resource + " not found"}
}

// InvalidInput returns a bad-request error with the given message.
func InvalidInput(msg string) error {
	return &Error{Kind: KindInvalidInput, Reason: ReasonInvalidInput, Message: msg}
}

// Conflict returns a conflict error with the given message.
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Reason: ReasonConflict, Message: msg}
}

// Duplicate returns a conflict error for a uniqueness violation in a store.
// It does not match errors built with Conflict.
func Duplicate(msg string) error {
	return &Error{Kind: KindConflict, Reason: ReasonDuplicate, Message: msg}
}

// Wrap attaches a cause to one of the sentinels, keeping its identity.
func Wrap(sentinel *Error, cause error) error {
	return &Error{Kind: sentinel.Kind, Reason: sentinel.Reason, Message: sentinel.Message, Err: cause}
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// HTTPError translates err into the transport error returned by handlers.
// Internal faults never leak their cause to the client.
func HTTPError(err error) *echo.HTTPError {
	var ae *Error
	if !errors.As(err, &ae) || ae.Kind == KindInternal {
		he := echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		he.Internal = err
		return he
	}
	return echo.NewHTTPError(ae.Kind.HTTPStatus(), map[string]string{
		"error":  ae.Message,
		"reason": string(ae.Reason),
	})
}
