package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password using bcrypt with DefaultCost.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword compares a bcrypt hash with a candidate plaintext password.
func CheckPassword(hash, pw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
}

const passwordSymbols = `!@#$%^&*(),.?":{}|<>`

// CheckStrength enforces the account password policy: at least 8 characters
// with one uppercase, one lowercase, one digit and one symbol. The same policy
// applies to registration, admin creation and password reset.
func CheckStrength(pw string) (bool, string) {
	if len(pw) < 8 {
		return false, "password must be at least 8 characters long"
	}
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	switch {
	case !upper:
		return false, "password must contain at least one uppercase letter"
	case !lower:
		return false, "password must contain at least one lowercase letter"
	case !digit:
		return false, "password must contain at least one number"
	case !symbol:
		return false, "password must contain at least one special character"
	}
	return true, ""
}
