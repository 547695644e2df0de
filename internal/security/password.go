package security

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Work factor matches what the accounts were originally created with.
const hashCost = 10

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password. The
// comparison is constant-time with respect to the stored hash.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// IsHashed reports whether the value already looks like a bcrypt hash.
// All bcrypt variants ($2a$, $2b$, $2y$) share the "$2" prefix.
func IsHashed(value string) bool {
	return strings.HasPrefix(value, "$2")
}

// HashIfNeeded hashes the value unless it is already a bcrypt hash. Every
// write path that stores a password value goes through this guard so an
// update that carries the existing hash is never hashed a second time.
func HashIfNeeded(value string) (string, error) {
	if IsHashed(value) {
		return value, nil
	}

	return HashPassword(value)
}
