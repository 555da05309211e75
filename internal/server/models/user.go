// Package models contains the persisted entities of the validation service.
package models

import "time"

// User is an account record. Email is stored lower-cased and is unique.
// PasswordHash never leaves the server; Sanitized strips it before a User
// is written to a response or embedded in a token.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Sanitized returns a copy safe for outbound use: same fields, no hash.
func (u *User) Sanitized() *User {
	c := *u
	c.PasswordHash = ""
	return &c
}
