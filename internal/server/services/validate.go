package services

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/userval/internal/common"
)

const (
	passwordMinLength = 6
	passwordMaxLength = 30
)

// stripWhitespace removes every whitespace rune, not just leading and
// trailing ones. Length limits apply to the stripped form.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// validateCredentials checks the email/password pair shared by registration
// and login. It returns the normalized (lower-cased) email and the
// whitespace-stripped password.
func validateCredentials(email, password string) (string, string, error) {
	if email == "" || password == "" {
		return "", "", common.WithMessage(common.ErrValidation, "email and password are required fields")
	}

	normalized := strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", "", common.WithMessage(common.ErrValidation, "Invalid email address")
	}

	stripped := stripWhitespace(password)
	if len(stripped) < passwordMinLength || len(stripped) > passwordMaxLength {
		return "", "", common.WithMessage(common.ErrValidation,
			"Password must be at least 6 characters long and not more than 30 characters long")
	}

	return normalized, stripped, nil
}
