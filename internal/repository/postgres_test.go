package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/internal/database"
	"account-service/internal/ledger"
	"account-service/internal/models"
	"account-service/internal/repository"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	require.NoError(t, database.MigrateUp(url))

	ctx := context.Background()
	pool, err := database.NewPool(ctx, url, 8)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE auth_tokens, accounts`)
	require.NoError(t, err)
	return pool
}

func create(t *testing.T, repo *repository.AccountRepository, username, balance string) *models.Account {
	t.Helper()
	account := &models.Account{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Balance:      decimal.RequireFromString(balance),
	}
	require.NoError(t, repo.Create(context.Background(), account))
	return account
}

func TestPostgresAccountRepository(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := repository.NewAccountRepository(pool)

	alice := create(t, repo, "alice_pg", "100.50")
	assert.False(t, alice.CreatedAt.IsZero())

	found, err := repo.GetByUsername(ctx, "ALICE_PG")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)
	assert.Equal(t, "100.50", models.FormatMoney(found.Balance))
	assert.Equal(t, models.RoleUser, found.Role)

	err = repo.Create(ctx, &models.Account{Username: "Alice_PG", Email: "x@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrUsernameTaken)

	err = repo.Create(ctx, &models.Account{Username: "other_pg", Email: "ALICE_PG@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)

	require.NoError(t, repo.SetResetToken(ctx, alice.ID, "tok", time.Now().Add(time.Hour)))
	found, err = repo.GetByResetToken(ctx, "tok")
	require.NoError(t, err)
	require.NotNil(t, found.PasswordResetExpire)

	require.NoError(t, repo.UpdatePassword(ctx, alice.ID, "new-hash"))
	_, err = repo.GetByResetToken(ctx, "tok")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestPostgresSessions(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	accounts := repository.NewAccountRepository(pool)
	sessions := repository.NewSessionRepository(pool)

	alice := create(t, accounts, "alice_pg", "0")
	session := &models.AuthSession{AccountID: alice.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, sessions.CreateSession(ctx, session))

	got, err := sessions.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, got.Active(time.Now()))

	require.NoError(t, sessions.RevokeAllSessions(ctx, alice.ID, uuid.Nil))
	got, err = sessions.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, got.Active(time.Now()))

	err = sessions.CreateSession(ctx, &models.AuthSession{AccountID: uuid.New(), ExpiresAt: time.Now()})
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestPostgresLedger(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := repository.NewAccountRepository(pool)
	engine := ledger.NewEngine(repo)

	a := create(t, repo, "account_a", "1000.00")
	b := create(t, repo, "account_b", "1000.00")

	_, err := engine.Transfer(ctx, a.ID, b.ID, decimal.RequireFromString("5000"))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := engine.Transfer(ctx, a.ID, b.ID, decimal.RequireFromString("1.00"))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := engine.Transfer(ctx, b.ID, a.ID, decimal.RequireFromString("3.00"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	gotA, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)

	assert.Equal(t, "1040.00", models.FormatMoney(gotA.Balance))
	assert.Equal(t, "960.00", models.FormatMoney(gotB.Balance))
}
