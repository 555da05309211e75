// Package auth issues and verifies the signed session tokens returned after
// a successful login or verification. Tokens are stateless: HS256 over the
// user's non-secret fields plus an expiry.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/userval/internal/common"
	"github.com/dmitrijs2005/userval/internal/server/models"
)

// Claims carries the authenticated user's public fields alongside the
// registered claim set.
type Claims struct {
	jwt.RegisteredClaims
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// GenerateToken signs a session token for the user, valid for validityDuration.
func GenerateToken(user *models.User, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   user.ID,
		},
		UserID:        user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies the signature and expiry and returns the claims.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
