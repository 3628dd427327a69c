package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "s3cret!" {
		t.Fatal("hash must not equal plaintext")
	}
	if !h.Verify("s3cret!", hash) {
		t.Error("expected matching password to verify")
	}
	if h.Verify("s3cret?", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestHasher_FreshSaltPerCall(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	h1, err := h.Hash("same-password")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := h.Hash("same-password")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("expected two hashes of the same password to differ")
	}
	if !h.Verify("same-password", h1) || !h.Verify("same-password", h2) {
		t.Error("both hashes must verify")
	}
}

func TestHasher_FailsClosed(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	tests := []struct {
		name      string
		plaintext string
		hash      string
	}{
		{"empty hash", "pw", ""},
		{"malformed hash", "pw", "not-a-bcrypt-hash"},
		{"truncated hash", "pw", "$2a$04$abc"},
		{"empty plaintext", "", "$2a$04$abcdefghijklmnopqrstuuJ1k1n2Q7f8nY9VZ0bO3rS5tV7wX9y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if h.Verify(tt.plaintext, tt.hash) {
				t.Error("expected verification to fail")
			}
		})
	}
}

func TestHasher_RejectsInvalidInput(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if _, err := h.Hash(""); err == nil {
		t.Error("expected error for empty password")
	}
	if _, err := h.Hash(strings.Repeat("a", 73)); err == nil {
		t.Error("expected error for password over 72 bytes")
	}
}

func TestNewHasher_CostBounds(t *testing.T) {
	if NewHasher(0).cost != DefaultBcryptCost {
		t.Error("expected zero cost to select the default")
	}
	if NewHasher(1).cost != bcrypt.MinCost {
		t.Error("expected low cost to clamp to MinCost")
	}
	if NewHasher(99).cost != bcrypt.MaxCost {
		t.Error("expected high cost to clamp to MaxCost")
	}
}

func TestHasher_VerifyMissing(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	h.VerifyMissing("anything")
	if len(h.dummy) == 0 {
		t.Error("expected dummy hash to be initialised")
	}
}
