package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"account-service/internal/models"
	"account-service/internal/utils"
)

const (
	uniqueViolation = "23505"

	usernameIndex = "accounts_username_lower_idx"
	emailIndex    = "accounts_email_lower_idx"
)

const accountColumns = `id, username, email, password_hash, balance, role, banned,
	password_reset_token, password_reset_expire, created_at`

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Balance,
		&account.Role,
		&account.Banned,
		&account.PasswordResetToken,
		&account.PasswordResetExpire,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// uniqueError maps a unique index violation to the matching sentinel.
func uniqueError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case usernameIndex:
		return ErrUsernameTaken
	case emailIndex:
		return ErrEmailTaken
	}
	return err
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.Role == "" {
		account.Role = models.RoleUser
	}

	query := `
		INSERT INTO accounts (id, username, email, password_hash, balance, role, banned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`

	utils.LogDB("CREATE ACCOUNT", fmt.Sprintf("username=%s", account.Username))

	err := r.db.QueryRow(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.Balance.Round(models.BalanceScale),
		account.Role,
		account.Banned,
	).Scan(&account.CreatedAt)
	if err != nil {
		if mapped := uniqueError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

func (r *AccountRepository) getOne(ctx context.Context, op, where string, arg any) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where

	utils.LogDB(op, where)

	account, err := scanAccount(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return r.getOne(ctx, "GET ACCOUNT", "id = $1", id)
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.getOne(ctx, "GET ACCOUNT BY USERNAME", "LOWER(username) = LOWER($1)", username)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, "GET ACCOUNT BY EMAIL", "LOWER(email) = LOWER($1)", email)
}

func (r *AccountRepository) GetByResetToken(ctx context.Context, token string) (*models.Account, error) {
	return r.getOne(ctx, "GET ACCOUNT BY RESET TOKEN", "password_reset_token = $1", token)
}

func (r *AccountRepository) List(ctx context.Context) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]models.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return accounts, nil
}

// UpdateProfile changes username and/or email. Empty values keep the current one.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id uuid.UUID, username, email string) error {
	query := `
		UPDATE accounts
		SET username = COALESCE(NULLIF($2, ''), username),
		    email = COALESCE(NULLIF($3, ''), email)
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, username, email)
	if err != nil {
		if mapped := uniqueError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdatePassword stores a new hash and clears any pending reset token.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, password_reset_token = NULL, password_reset_expire = NULL
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expire time.Time) error {
	query := `
		UPDATE accounts
		SET password_reset_token = $2, password_reset_expire = $3
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, token, expire)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	result, err := r.db.Exec(ctx, `UPDATE accounts SET banned = $2 WHERE id = $1`, id, banned)
	if err != nil {
		return fmt.Errorf("set banned: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) SetRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	result, err := r.db.Exec(ctx, `UPDATE accounts SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
