// Package otps provides persistence for one-time password records.
package otps

import (
	"context"

	"github.com/dmitrijs2005/userval/internal/server/models"
)

type Repository interface {
	// Create inserts a new OTP record for the user.
	Create(ctx context.Context, rec *models.OTPRecord) error

	// FindLatestByUser returns the most recently created record for the
	// user, or common.ErrNotFound if none exist.
	FindLatestByUser(ctx context.Context, userID string) (*models.OTPRecord, error)

	// DeleteAllForUser removes every record belonging to the user.
	DeleteAllForUser(ctx context.Context, userID string) error
}
