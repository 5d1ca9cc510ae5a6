package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-service/internal/models"
)

// Tx is a unit of work over exclusively locked account rows.
type Tx interface {
	// LockAccounts loads and locks the given accounts in ascending id order.
	// Ids without a record are absent from the result. It is called at most once per Tx.
	LockAccounts(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.Account, error)
	// UpdateBalance stages a new balance for an account locked by this Tx.
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}

// Store runs ledger operations atomically.
type Store interface {
	// WithinTx commits when fn returns nil and rolls everything back otherwise,
	// including when the commit itself fails.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
