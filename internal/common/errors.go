// Package common defines sentinel errors shared across the service and
// transport layers. Callers should use errors.Is to match these values;
// the HTTP layer maps them to status codes.
package common

import "errors"

var (
	// repository-level errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// service-level errors
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrOTPExpired   = errors.New("otp expired")
	ErrInternal     = errors.New("internal error")

	// auth errors (invalid or malformed token)
	ErrInvalidToken = errors.New("invalid token")
)
