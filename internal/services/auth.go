package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"account-service/internal/events"
	"account-service/internal/models"
	"account-service/internal/repository"
	"account-service/internal/utils"
)

var protectedUsernames = map[string]struct{}{
	"admin":         {},
	"administrator": {},
	"root":          {},
	"system":        {},
	"support":       {},
	"moderator":     {},
	"superuser":     {},
}

// IsProtectedUsername reports whether name is reserved for the service itself.
func IsProtectedUsername(name string) bool {
	_, ok := protectedUsernames[strings.ToLower(name)]
	return ok
}

type AuthConfig struct {
	Secret        string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	BcryptCost    int
}

type AuthService struct {
	accounts AccountStore
	sessions SessionStore
	events   EventSink

	jwtSecret     []byte
	jwtExpiration time.Duration
	resetTTL      time.Duration
	bcryptCost    int
	now           func() time.Time
}

func NewAuthService(accounts AccountStore, sessions SessionStore, sink EventSink, cfg AuthConfig) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.ResetTokenTTL == 0 {
		cfg.ResetTokenTTL = time.Hour
	}

	utils.LogSuccess("AuthService", "Initialized (token TTL: %v)", cfg.TokenTTL)
	return &AuthService{
		accounts:      accounts,
		sessions:      sessions,
		events:        sink,
		jwtSecret:     []byte(cfg.Secret),
		jwtExpiration: cfg.TokenTTL,
		resetTTL:      cfg.ResetTokenTTL,
		bcryptCost:    cfg.BcryptCost,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		utils.LogError("AuthService", "Password hashing failed", err)
		return "", err
	}
	return string(hashedPassword), nil
}

func (s *AuthService) CheckPasswordHash(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Claims carry the session id as the JWT id.
type Claims struct {
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

func (s *AuthService) GenerateToken(session *models.AuthSession) (string, error) {
	claims := &Claims{
		AccountID: session.AccountID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID.String(),
			Subject:   session.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(s.jwtSecret)
	if err != nil {
		utils.LogError("AuthService", "Token signing failed", err)
		return "", err
	}
	return signedToken, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		utils.LogDebug("AuthService", "Invalid token: %v", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	account, err := s.accounts.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			utils.LogWarning("AuthService", "Login for unknown username %s", req.Username)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.CheckPasswordHash(req.Password, account.PasswordHash); err != nil {
		utils.LogWarning("AuthService", "Wrong password for %s", account.ID)
		return nil, ErrInvalidCredentials
	}
	if account.Banned {
		utils.LogWarning("AuthService", "Banned account %s tried to log in", account.ID)
		return nil, ErrAccountBanned
	}

	now := s.now()
	session := &models.AuthSession{
		ID:        uuid.New(),
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.jwtExpiration),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := s.GenerateToken(session)
	if err != nil {
		return nil, err
	}

	utils.LogSuccess("AuthService", "Account %s logged in", account.ID)
	return &models.LoginResponse{
		Token:     token,
		AccountID: account.ID.String(),
		Username:  account.Username,
		ExpiresIn: s.jwtExpiration.String(),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessions.RevokeSession(ctx, sessionID); err != nil {
		return err
	}
	utils.LogInfo("AuthService", "Session %s revoked", sessionID)
	return nil
}

// Principal is an authenticated caller.
type Principal struct {
	Account   *models.Account
	SessionID uuid.UUID
}

// Authenticate resolves a bearer token to its live session and account.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*Principal, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, err
	}
	if session.AccountID != accountID || !session.Active(s.now()) {
		return nil, ErrSessionRevoked
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if account.Banned {
		return nil, ErrAccountBanned
	}

	return &Principal{Account: account, SessionID: sessionID}, nil
}

// ChangePassword replaces the password and revokes every other session.
func (s *AuthService) ChangePassword(ctx context.Context, p *Principal, req models.ChangePasswordRequest) error {
	account, err := s.accounts.GetByID(ctx, p.Account.ID)
	if err != nil {
		return err
	}
	if err := s.CheckPasswordHash(req.OldPassword, account.PasswordHash); err != nil {
		return ErrIncorrectPassword
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllSessions(ctx, account.ID, p.SessionID); err != nil {
		utils.LogError("AuthService", "Revoke sessions after password change", err)
	}

	s.events.Dispatch(ctx, events.New(events.PasswordChanged, account.ID, nil))
	utils.LogSuccess("AuthService", "Password changed for %s", account.ID)
	return nil
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// RequestPasswordReset issues a reset token for the account with the given
// email. Unknown emails succeed silently so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			utils.LogInfo("AuthService", "Password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	expire := s.now().Add(s.resetTTL)

	if err := s.accounts.SetResetToken(ctx, account.ID, token, expire); err != nil {
		return err
	}

	s.events.Dispatch(ctx, events.New(events.PasswordResetRequested, account.ID, map[string]string{
		"email":      account.Email,
		"token":      token,
		"expires_at": expire.Format(time.RFC3339),
	}))
	utils.LogInfo("AuthService", "Password reset token issued for %s", account.ID)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	account, err := s.accounts.GetByResetToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if account.PasswordResetExpire == nil || !s.now().Before(*account.PasswordResetExpire) {
		return ErrResetTokenExpired
	}

	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllSessions(ctx, account.ID, uuid.Nil); err != nil {
		utils.LogError("AuthService", "Revoke sessions after password reset", err)
	}

	s.events.Dispatch(ctx, events.New(events.PasswordChanged, account.ID, map[string]string{"via": "reset"}))
	utils.LogSuccess("AuthService", "Password reset for %s", account.ID)
	return nil
}
