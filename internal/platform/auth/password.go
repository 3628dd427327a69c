package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost puts a single verification in the tens-of-milliseconds
// range on current hardware.
const DefaultBcryptCost = 12

// maxPasswordBytes is bcrypt's input limit; longer inputs are rejected rather
// than silently truncated.
const maxPasswordBytes = 72

var (
	errEmptyPassword   = errors.New("password is empty")
	errPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// Hasher hashes and verifies passwords with bcrypt. It holds no mutable state
// besides a lazily computed dummy hash and is safe for concurrent use.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher returns a Hasher using cost, clamped to bcrypt's bounds. A zero
// cost selects DefaultBcryptCost.
func NewHasher(cost int) *Hasher {
	switch {
	case cost == 0:
		cost = DefaultBcryptCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt hash. Every call draws a fresh salt, so two
// hashes of the same password differ.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errEmptyPassword
	}
	if len(plaintext) > maxPasswordBytes {
		return "", errPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches storedHash. A mismatch, an empty
// or malformed hash all yield false.
func (h *Hasher) Verify(plaintext, storedHash string) bool {
	if storedHash == "" || plaintext == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}

// VerifyMissing burns the same time as a real comparison. Callers use it when
// the account does not exist or has no local password so response timing
// does not reveal which emails are registered.
func (h *Hasher) VerifyMissing(plaintext string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("medconnect-timing-equaliser"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
}
