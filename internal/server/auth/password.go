package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the work factor used by existing password hashes.
const DefaultCost = 10

// Hasher hashes and verifies passwords with bcrypt. Each Hash call draws a
// fresh salt, so equal passwords produce different hashes.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher; costs outside bcrypt's range fall back to
// DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether password matches hash. A malformed hash is simply a
// mismatch.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
