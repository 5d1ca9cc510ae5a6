package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"account-service/internal/ledger"
	"account-service/internal/models"
	"account-service/internal/utils"
)

// WithinTx runs fn inside a single database transaction. The transaction is
// rolled back unless fn returns nil and the commit succeeds.
func (r *AccountRepository) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx     pgx.Tx
	locked map[uuid.UUID]bool
}

func (t *pgTx) LockAccounts(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.Account, error) {
	if t.locked != nil {
		return nil, fmt.Errorf("accounts already locked in this transaction")
	}

	params := make([]string, len(ids))
	for i, id := range ids {
		params[i] = id.String()
	}

	query := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = ANY($1::uuid[])
		ORDER BY id
		FOR UPDATE`

	utils.LogDB("LOCK ACCOUNTS", fmt.Sprintf("%d row(s)", len(ids)))

	rows, err := t.tx.Query(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	defer rows.Close()

	accounts := make(map[uuid.UUID]*models.Account, len(ids))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts[account.ID] = account
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}

	t.locked = make(map[uuid.UUID]bool, len(accounts))
	for id := range accounts {
		t.locked[id] = true
	}
	return accounts, nil
}

func (t *pgTx) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	if !t.locked[id] {
		return fmt.Errorf("balance update on account %s not locked by this transaction", id)
	}

	result, err := t.tx.Exec(ctx,
		`UPDATE accounts SET balance = $2 WHERE id = $1`,
		id, balance.Round(models.BalanceScale))
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if result.RowsAffected() != 1 {
		return fmt.Errorf("update balance: %d rows affected", result.RowsAffected())
	}
	return nil
}
