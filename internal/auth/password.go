// Package auth provides the credential hashing, token signing, and request
// authorization primitives for the user service.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor used when none is configured.
// bcrypt's slowness is the point: it is what makes a stolen password_hash
// column expensive to brute-force offline.
const defaultCost = 10

// PasswordService hashes and verifies passwords with bcrypt.
//
// The cost is injectable so tests can run at bcrypt's minimum cost (4)
// instead of paying ~100ms per hash; production uses the configured cost.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the given bcrypt cost.
// A cost of 0 (or anything below bcrypt's minimum) falls back to the default.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost {
		cost = defaultCost
	}
	return &PasswordService{cost: cost}
}

// Hash hashes a plaintext password. The returned string embeds the salt and
// cost, so it can be stored as-is and verified later without extra state.
//
// bcrypt silently truncates input beyond 72 bytes; we reject it instead so
// callers aren't surprised.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored bcrypt hash.
//
// A mismatch is an expected outcome, not an error: callers get a plain
// false and decide for themselves what failure to surface. The comparison
// inside bcrypt is constant-time.
func (p *PasswordService) Verify(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
