package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/events"
	"account-service/internal/models"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.signup(t, "alice_1", "0")

	resp, err := f.auth.Login(ctx, models.LoginRequest{Username: "ALICE_1", Password: "password-alice_1"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID.String(), resp.AccountID)
	assert.NotEmpty(t, resp.Token)

	claims, err := f.auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	session, err := f.store.GetSession(ctx, uuid.MustParse(claims.ID))
	require.NoError(t, err)
	assert.Equal(t, alice.ID, session.AccountID)

	_, err = f.auth.Login(ctx, models.LoginRequest{Username: "alice_1", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, models.LoginRequest{Username: "nobody", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginBanned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.signup(t, "alice_1", "0")
	p := f.login(t, "alice_1")

	require.NoError(t, f.store.SetBanned(ctx, alice.ID, true))

	_, err := f.auth.Login(ctx, models.LoginRequest{Username: "alice_1", Password: "password-alice_1"})
	assert.ErrorIs(t, err, ErrAccountBanned)

	token := tokenFor(t, f, p)
	_, err = f.auth.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrAccountBanned)
}

func tokenFor(t *testing.T, f *fixture, p *Principal) string {
	t.Helper()
	session, err := f.store.GetSession(context.Background(), p.SessionID)
	require.NoError(t, err)
	token, err := f.auth.GenerateToken(session)
	require.NoError(t, err)
	return token
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t, "alice_1", "0")
	p := f.login(t, "alice_1")
	token := tokenFor(t, f, p)

	require.NoError(t, f.auth.Logout(ctx, p.SessionID))

	_, err := f.auth.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.signup(t, "alice_1", "0")

	_, err := f.auth.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Signed correctly but no such session.
	token, err := f.auth.GenerateToken(&models.AuthSession{
		ID:        uuid.New(),
		AccountID: alice.ID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	other := NewAuthService(f.store, f.store, f.sink, AuthConfig{Secret: "other-secret", TokenTTL: time.Hour, BcryptCost: 4})
	forged, err := other.GenerateToken(&models.AuthSession{ID: uuid.New(), AccountID: alice.ID, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t, "alice_1", "0")
	current := f.login(t, "alice_1")
	other := f.login(t, "alice_1")

	err := f.auth.ChangePassword(ctx, current, models.ChangePasswordRequest{OldPassword: "wrong-old", Password: "new-password"})
	assert.ErrorIs(t, err, ErrIncorrectPassword)

	require.NoError(t, f.auth.ChangePassword(ctx, current, models.ChangePasswordRequest{
		OldPassword: "password-alice_1",
		Password:    "new-password",
	}))

	_, err = f.auth.Authenticate(ctx, tokenFor(t, f, current))
	assert.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, tokenFor(t, f, other))
	assert.ErrorIs(t, err, ErrSessionRevoked)

	_, err = f.auth.Login(ctx, models.LoginRequest{Username: "alice_1", Password: "new-password"})
	assert.NoError(t, err)
	assert.Len(t, f.sink.ofType(events.PasswordChanged), 1)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.signup(t, "alice_1", "0")
	p := f.login(t, "alice_1")

	require.NoError(t, f.auth.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, f.sink.ofType(events.PasswordResetRequested))

	require.NoError(t, f.auth.RequestPasswordReset(ctx, "ALICE_1@example.com"))
	requested := f.sink.ofType(events.PasswordResetRequested)
	require.Len(t, requested, 1)
	token := requested[0].Data["token"]
	assert.Len(t, token, 64)
	assert.Equal(t, alice.ID, requested[0].AccountID)

	err := f.auth.ResetPassword(ctx, models.ResetPasswordRequest{Token: strings.Repeat("0", 64), Password: "reset-password"})
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	require.NoError(t, f.auth.ResetPassword(ctx, models.ResetPasswordRequest{Token: token, Password: "reset-password"}))

	_, err = f.auth.Login(ctx, models.LoginRequest{Username: "alice_1", Password: "reset-password"})
	assert.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, tokenFor(t, f, p))
	assert.ErrorIs(t, err, ErrSessionRevoked)

	// Tokens are single use.
	err = f.auth.ResetPassword(ctx, models.ResetPasswordRequest{Token: token, Password: "another-password"})
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestPasswordResetExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t, "alice_1", "0")

	require.NoError(t, f.auth.RequestPasswordReset(ctx, "alice_1@example.com"))
	token := f.sink.ofType(events.PasswordResetRequested)[0].Data["token"]

	f.auth.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }

	err := f.auth.ResetPassword(ctx, models.ResetPasswordRequest{Token: token, Password: "reset-password"})
	assert.ErrorIs(t, err, ErrResetTokenExpired)
}

func TestIsProtectedUsername(t *testing.T) {
	assert.True(t, IsProtectedUsername("Admin"))
	assert.True(t, IsProtectedUsername("ROOT"))
	assert.False(t, IsProtectedUsername("alice_1"))
}
