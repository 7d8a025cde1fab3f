package credentials

import (
	"fmt"
	"unicode"

	"identity-service/internal/apperr"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// ValidatePolicy enforces the local secret-strength rules. The IdP's own
// complexity policy is not assumed to be present, so this runs even for
// secrets that are forwarded upstream.
func ValidatePolicy(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password shorter than %d characters",
			apperr.ErrValidationFailed, minPasswordLength)
	}

	var upper, lower, digit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fmt.Errorf("%w: password needs upper, lower and digit characters",
			apperr.ErrValidationFailed)
	}

	return nil
}

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// VerifyPassword compares a plaintext password with the stored hash.
func VerifyPassword(hash string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
