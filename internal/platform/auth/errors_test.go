package auth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"credential", ErrInvalidCredentials, http.StatusUnauthorized},
		{"missing token", ErrAuthenticationRequired, http.StatusUnauthorized},
		{"expired", ErrTokenExpired, http.StatusUnauthorized},
		{"subject", ErrSubjectNotFound, http.StatusUnauthorized},
		{"denied", ErrAccessDenied, http.StatusForbidden},
		{"role", ErrRoleNotPermitted, http.StatusForbidden},
		{"link", ErrMissingEmail, http.StatusBadRequest},
		{"input", InvalidInput("bad"), http.StatusBadRequest},
		{"not found", NotFound("appointment"), http.StatusNotFound},
		{"conflict", Conflict("email already registered"), http.StatusConflict},
		{"wrapped", fmt.Errorf("handler: %w", ErrAccessDenied), http.StatusForbidden},
		{"internal", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := HTTPError(tt.err)
			if he.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, he.Code)
			}
		})
	}
}

func TestHTTPError_BodyCarriesReason(t *testing.T) {
	he := HTTPError(ErrTokenExpired)
	body, ok := he.Message.(map[string]string)
	if !ok {
		t.Fatalf("expected map body, got %T", he.Message)
	}
	if body["error"] != "token expired" {
		t.Errorf("unexpected message %q", body["error"])
	}
	if body["reason"] != string(ReasonTokenExpired) {
		t.Errorf("unexpected reason %q", body["reason"])
	}
}

func TestHTTPError_InternalDoesNotLeak(t *testing.T) {
	he := HTTPError(errors.New("pq: password authentication failed for user app"))
	if he.Message != "internal server error" {
		t.Errorf("internal cause leaked: %v", he.Message)
	}
	if he.Internal == nil {
		t.Error("expected internal cause to be kept for logging")
	}
}

func TestError_IsMatchesKindAndReason(t *testing.T) {
	wrapped := Wrap(ErrTokenSignature, errors.New("signature is invalid"))
	if !errors.Is(wrapped, ErrTokenSignature) {
		t.Error("expected wrapped error to match sentinel")
	}
	if errors.Is(wrapped, ErrInvalidToken) {
		t.Error("signature failure must not match the malformed-token sentinel")
	}
	if KindOf(wrapped) != KindToken {
		t.Errorf("expected token kind, got %s", KindOf(wrapped))
	}
	if KindOf(errors.New("x")) != KindInternal {
		t.Error("expected plain errors to be internal")
	}
}

func TestError_DuplicateIsNotPlainConflict(t *testing.T) {
	dup := Duplicate("row exists")
	if errors.Is(Conflict("email is linked elsewhere"), dup) {
		t.Error("a plain conflict must not match a duplicate")
	}
	if !errors.Is(Duplicate("other message"), dup) {
		t.Error("duplicates must match each other regardless of message")
	}
	if HTTPError(dup).Code != 409 {
		t.Errorf("expected 409, got %d", HTTPError(dup).Code)
	}
}
