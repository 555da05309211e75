package otps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/userval/internal/common"
	"github.com/dmitrijs2005/userval/internal/dbx"
	"github.com/dmitrijs2005/userval/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.OTPRecord) error {
	query := `
		INSERT INTO one_time_passwords (user_id, otp_hash, created_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, rec.UserID, rec.OTPHash, rec.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindLatestByUser(ctx context.Context, userID string) (*models.OTPRecord, error) {
	query := `
		SELECT id, user_id, otp_hash, created_at
		FROM one_time_passwords
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	rec := &models.OTPRecord{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&rec.ID, &rec.UserID, &rec.OTPHash, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	query := `
		DELETE FROM one_time_passwords
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
