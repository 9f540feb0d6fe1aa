package service

import (
	"regexp"
	"strings"

	"authcore/internal/apperr"
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	mobileStripping = regexp.MustCompile(`[^\d+]`)
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return apperr.InvalidInput("invalid email format")
	}
	return nil
}

func validateName(name string) error {
	n := strings.TrimSpace(name)
	if len(n) < 2 {
		return apperr.InvalidInput("name must be at least 2 characters long")
	}
	if len(n) > 100 {
		return apperr.InvalidInput("name must be less than 100 characters")
	}
	return nil
}

func validateMobile(mobile string) error {
	clean := mobileStripping.ReplaceAllString(mobile, "")
	if len(clean) < 8 {
		return apperr.InvalidInput("mobile number too short")
	}
	if len(clean) > 15 {
		return apperr.InvalidInput("mobile number too long")
	}
	return nil
}
