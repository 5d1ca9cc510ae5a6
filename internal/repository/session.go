package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"account-service/internal/models"
	"account-service/internal/utils"
)

const foreignKeyViolation = "23503"

// SessionRepository persists issued access tokens in auth_tokens.
type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *models.AuthSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	query := `
		INSERT INTO auth_tokens (id, account_id, created_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
		RETURNING created_at
	`

	utils.LogDB("CREATE SESSION", fmt.Sprintf("account=%s", session.AccountID))

	err := r.db.QueryRow(ctx, query, session.ID, session.AccountID, session.ExpiresAt).Scan(&session.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return ErrAccountNotFound
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.AuthSession, error) {
	query := `SELECT id, account_id, created_at, expires_at, revoked_at FROM auth_tokens WHERE id = $1`

	var session models.AuthSession
	err := r.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.AccountID,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) RevokeSession(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx,
		`UPDATE auth_tokens SET revoked_at = COALESCE(revoked_at, NOW()) WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RevokeAllSessions revokes every active session of the account except keep.
func (r *SessionRepository) RevokeAllSessions(ctx context.Context, accountID, keep uuid.UUID) error {
	query := `
		UPDATE auth_tokens
		SET revoked_at = NOW()
		WHERE account_id = $1 AND id <> $2 AND revoked_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, accountID, keep)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	utils.LogDB("REVOKE SESSIONS", fmt.Sprintf("account=%s revoked=%d", accountID, result.RowsAffected()))
	return nil
}
