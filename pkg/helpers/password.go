package helpers

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is bcrypt's input limit; longer passwords are rejected
// instead of being silently truncated.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// bcryptCost is lowered by tests through SetBcryptCost.
var bcryptCost = bcrypt.DefaultCost

// SetBcryptCost overrides the hashing cost and returns the previous value.
func SetBcryptCost(cost int) int {
	prev := bcryptCost
	bcryptCost = cost
	return prev
}

// HashPassword hashes the plain text password using bcrypt
func HashPassword(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword compares a bcrypt hash with a plain password
func CompareHashAndPassword(hash string, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
