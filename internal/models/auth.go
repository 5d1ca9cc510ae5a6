package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuthSession is an issued access token. It references its account by id only.
type AuthSession struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

func (s *AuthSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

type SignupRequest struct {
	Username       string          `json:"username" validate:"required,username"`
	Email          string          `json:"email" validate:"required,email,max=255,excludes=+"`
	Password       string          `json:"password" validate:"required,min=8,max=128"`
	InitialBalance decimal.Decimal `json:"initial_balance" validate:"money,nonnegative"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	ExpiresIn string `json:"expires_in"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required,min=8,max=128"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required,len=64,hexadecimal"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}
