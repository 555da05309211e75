package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/userval/internal/common"
	"github.com/dmitrijs2005/userval/internal/dbx"
	"github.com/dmitrijs2005/userval/internal/server/mailer"
	"github.com/dmitrijs2005/userval/internal/server/models"
)

const otpDigits = 1000000

// generateOTP draws a uniform 6-digit code, zero-padded. A test seam.
var generateOTP = func() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpDigits))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// issueOTP generates a fresh code for the user, persists its bcrypt hash,
// and emails the plaintext code. The stored record is never rolled back on
// delivery failure; the caller surfaces that failure to the client so the
// user knows to request a resend.
func (s *Service) issueOTP(ctx context.Context, db dbx.DBTX, user *models.User) error {
	code, err := generateOTP()
	if err != nil {
		return common.WithMessage(common.ErrInternal, "Something wrong try again")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return common.WithMessage(common.ErrInternal, "Something wrong try again")
	}

	rec := &models.OTPRecord{
		UserID:    user.ID,
		OTPHash:   string(hash),
		CreatedAt: s.now(),
	}
	if err := s.repomanager.OTPs(db).Create(ctx, rec); err != nil {
		s.logger.Error(ctx, "persisting otp failed", "error", err.Error())
		return common.WithMessage(common.ErrInternal, "Something wrong try again")
	}

	email, err := mailer.ActivationEmail(user.Email, code, s.otpValidity)
	if err != nil {
		s.logger.Error(ctx, "rendering activation email failed", "error", err.Error())
		return common.WithMessage(common.ErrInternal, "Failed to send verification email")
	}
	if err := s.notifier.Send(ctx, email); err != nil {
		s.logger.Error(ctx, "sending activation email failed", "email", user.Email, "error", err.Error())
		return common.WithMessage(common.ErrInternal, "Failed to send verification email")
	}

	s.logger.Info(ctx, "activation email sent", "email", user.Email)
	return nil
}
