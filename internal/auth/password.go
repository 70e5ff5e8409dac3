// Package auth covers credential hashing, session tokens, and the request
// gates built on them.
package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher produces bcrypt credential hashes at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher creates a hasher. Costs outside bcrypt's valid range fall back to
// the default cost.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{cost: cost}
}

// Hash returns the bcrypt hash of the plaintext credential.
func (h Hasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// VerifyHash checks a plaintext credential against a stored bcrypt hash.
// Any error, including a malformed stored value, fails closed.
func VerifyHash(plaintext, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext)) == nil
}

// VerifyLegacy checks a plaintext credential against a stored value that may
// be either a bcrypt hash or a legacy plaintext password. The plaintext
// fallback exists only for teacher records written before hashing was
// enforced: it is taken when the stored value does not parse as a bcrypt
// hash at all, never on an ordinary mismatch.
func VerifyLegacy(plaintext, stored string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
	if err == nil {
		return true
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(plaintext), []byte(stored)) == 1
}
