// Package users provides persistence for account records.
package users

import (
	"context"

	"github.com/dmitrijs2005/userval/internal/server/models"
)

type Repository interface {
	// Create inserts a new user. A duplicate email yields common.ErrConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail looks a user up by normalized email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID looks a user up by id.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// MarkVerified sets email_verified and refreshes updated_at.
	MarkVerified(ctx context.Context, id string) error
}
