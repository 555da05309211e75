// Package services contains the server-side business logic for the
// registration, login, verification, and OTP regeneration workflows.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/userval/internal/common"
	"github.com/dmitrijs2005/userval/internal/dbx"
	"github.com/dmitrijs2005/userval/internal/logging"
	"github.com/dmitrijs2005/userval/internal/server/auth"
	"github.com/dmitrijs2005/userval/internal/server/config"
	"github.com/dmitrijs2005/userval/internal/server/mailer"
	"github.com/dmitrijs2005/userval/internal/server/models"
	"github.com/dmitrijs2005/userval/internal/server/repositories/repomanager"
)

// LoginResult is the outcome of a login attempt. Exactly one branch holds:
// either the caller is authenticated (User and Token set), or the account
// still needs email verification (NeedsVerification with the user id so the
// client can route to the verification step). Hard failures are returned as
// errors instead.
type LoginResult struct {
	User              *models.User
	Token             string
	NeedsVerification bool
	UnverifiedUserID  string
}

// Service orchestrates the credential store, the OTP store, and the
// notifier.
type Service struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	notifier        mailer.Notifier
	logger          logging.Logger
	jwtSecret       []byte
	sessionValidity time.Duration
	otpValidity     time.Duration

	// now is a test seam for expiry checks.
	now func() time.Time
}

func NewService(db *sql.DB, m repomanager.RepositoryManager, n mailer.Notifier, l logging.Logger, cfg *config.Config) *Service {
	return &Service{
		db:              db,
		repomanager:     m,
		notifier:        n,
		logger:          l.With("module", "services"),
		jwtSecret:       []byte(cfg.SecretKey),
		sessionValidity: cfg.SessionTokenValidityDuration,
		otpValidity:     cfg.OTPValidityDuration,
		now:             time.Now,
	}
}

// Register creates an unverified user and sends the first OTP. The returned
// id identifies the new user. If the activation email cannot be delivered
// the user and the OTP record stay persisted and the error tells the client
// to expect no email; a later regeneration recovers.
func (s *Service) Register(ctx context.Context, email, password string) (string, error) {
	normalized, stripped, err := validateCredentials(email, password)
	if err != nil {
		return "", err
	}

	repo := s.repomanager.Users(s.db)

	// Advisory check for a friendlier message; the unique index on
	// users.email is the authoritative guard against the race.
	if _, err := repo.GetByEmail(ctx, normalized); err == nil {
		return "", common.WithMessage(common.ErrConflict, "Email already exist. Please login")
	} else if !errors.Is(err, common.ErrNotFound) {
		return "", common.WithMessage(common.ErrInternal, "User not added. Try again")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(stripped), bcrypt.DefaultCost)
	if err != nil {
		return "", common.WithMessage(common.ErrInternal, "User not added. Try again")
	}

	now := s.now()
	user := &models.User{
		ID:            uuid.NewString(),
		Email:         normalized,
		PasswordHash:  string(hash),
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return "", common.WithMessage(common.ErrConflict, "Email already exist. Please login")
		}
		s.logger.Error(ctx, "creating user failed", "error", err.Error())
		return "", common.WithMessage(common.ErrInternal, "User not added. Try again")
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)

	if err := s.issueOTP(ctx, s.db, user); err != nil {
		return user.ID, err
	}

	return user.ID, nil
}

// Login authenticates an email/password pair. Unverified accounts receive a
// fresh OTP and the NeedsVerification branch of LoginResult; verified
// accounts receive the sanitized user and a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	normalized, stripped, err := validateCredentials(email, password)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.WithMessage(common.ErrNotFound, "User not found")
		}
		return nil, common.WithMessage(common.ErrInternal, "Something wrong try again")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(stripped)) != nil {
		return nil, common.WithMessage(common.ErrUnauthorized, "Invalid Password")
	}

	if !user.EmailVerified {
		if err := s.issueOTP(ctx, s.db, user); err != nil {
			return nil, err
		}
		return &LoginResult{NeedsVerification: true, UnverifiedUserID: user.ID}, nil
	}

	token, err := auth.GenerateToken(user.Sanitized(), s.jwtSecret, s.sessionValidity)
	if err != nil {
		s.logger.Error(ctx, "signing session token failed", "error", err.Error())
		return nil, common.WithMessage(common.ErrInternal, "Something wrong try again")
	}

	return &LoginResult{User: user.Sanitized(), Token: token}, nil
}

// VerifyOTP redeems a submitted code against the user's most recent OTP
// record. On success the user is marked verified, every OTP record for the
// user is removed, and a session token is issued.
func (s *Service) VerifyOTP(ctx context.Context, userID, otp string) (*models.User, string, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", common.WithMessage(common.ErrNotFound, "User not found")
		}
		return nil, "", common.WithMessage(common.ErrInternal, "Something wrong try again")
	}

	rec, err := s.repomanager.OTPs(s.db).FindLatestByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", common.WithMessage(common.ErrNotFound, "OTP not found")
		}
		return nil, "", common.WithMessage(common.ErrInternal, "Something wrong try again")
	}

	if s.now().Sub(rec.CreatedAt) > s.otpValidity {
		return nil, "", common.WithMessage(common.ErrOTPExpired, "OTP has expired")
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.OTPHash), []byte(otp)) != nil {
		return nil, "", common.WithMessage(common.ErrUnauthorized, "Invalid OTP")
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).MarkVerified(ctx, user.ID); err != nil {
			return err
		}
		return s.repomanager.OTPs(tx).DeleteAllForUser(ctx, user.ID)
	})
	if err != nil {
		s.logger.Error(ctx, "marking user verified failed", "user_id", user.ID, "error", err.Error())
		return nil, "", common.WithMessage(common.ErrInternal, "Something wrong try again")
	}

	user.EmailVerified = true
	user.UpdatedAt = s.now()

	token, err := auth.GenerateToken(user.Sanitized(), s.jwtSecret, s.sessionValidity)
	if err != nil {
		s.logger.Error(ctx, "signing session token failed", "error", err.Error())
		return nil, "", common.WithMessage(common.ErrInternal, "Something wrong try again")
	}

	s.logger.Info(ctx, "user verified", "user_id", user.ID)
	return user.Sanitized(), token, nil
}

// RegenerateOTP drops any outstanding codes for an unverified user and
// issues a fresh one. The returned email tells the caller where the code
// went.
func (s *Service) RegenerateOTP(ctx context.Context, userID string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.WithMessage(common.ErrNotFound, "User not found")
		}
		return "", common.WithMessage(common.ErrInternal, "Something wrong try again")
	}

	if user.EmailVerified {
		return "", common.WithMessage(common.ErrConflict, "Email already verified")
	}

	if err := s.repomanager.OTPs(s.db).DeleteAllForUser(ctx, user.ID); err != nil {
		s.logger.Error(ctx, "deleting otps failed", "user_id", user.ID, "error", err.Error())
		return "", common.WithMessage(common.ErrInternal, "Something wrong try again")
	}

	if err := s.issueOTP(ctx, s.db, user); err != nil {
		return "", err
	}

	return user.Email, nil
}
