package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"account-service/internal/events"
	"account-service/internal/models"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrProtectedUsername  = errors.New("invalid username")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrAccountBanned      = errors.New("account is banned")
	ErrIncorrectPassword  = errors.New("incorrect old password")
	ErrInvalidResetToken  = errors.New("invalid password reset token")
	ErrResetTokenExpired  = errors.New("password reset token has expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionRevoked     = errors.New("session is revoked or expired")
	ErrForbidden          = errors.New("not enough permissions")
)

type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByResetToken(ctx context.Context, token string) (*models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, username, email string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expire time.Time) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, session *models.AuthSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.AuthSession, error)
	RevokeSession(ctx context.Context, id uuid.UUID) error
	RevokeAllSessions(ctx context.Context, accountID, keep uuid.UUID) error
}

// ProfileCache is a read-through profile cache. SetProfile must refuse the
// write when the account was invalidated after ProfileVersion returned version.
type ProfileCache interface {
	GetProfile(ctx context.Context, accountID uuid.UUID) (*models.Profile, error)
	ProfileVersion(ctx context.Context, accountID uuid.UUID) (int64, error)
	SetProfile(ctx context.Context, profile models.Profile, version int64) error
	InvalidateProfiles(ctx context.Context, accountIDs ...uuid.UUID) error
}

// EventSink accepts events of committed changes. It never fails the caller.
type EventSink interface {
	Dispatch(ctx context.Context, event events.Event)
}
