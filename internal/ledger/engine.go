package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-service/internal/utils"
)

type BalanceResult struct {
	AccountID uuid.UUID
	Username  string
	Balance   decimal.Decimal
}

type TransferResult struct {
	FromAccountID uuid.UUID
	FromBalance   decimal.Decimal
	ToAccountID   uuid.UUID
	ToBalance     decimal.Decimal
}

type Option func(*Engine)

// WithUncheckedWithdraw makes Withdraw subtract with no sign or sufficiency
// checks. The amount must still fit the balance scale and the result its range.
func WithUncheckedWithdraw() Option {
	return func(e *Engine) {
		e.strictWithdraw = false
	}
}

// Engine applies deposits, withdrawals and transfers as single atomic
// transitions over the accounts they touch.
type Engine struct {
	store          Store
	strictWithdraw bool
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		strictWithdraw: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) StrictWithdraw() bool {
	return e.strictWithdraw
}

func (e *Engine) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*BalanceResult, error) {
	if err := checkScale(amount); err != nil {
		return nil, err
	}

	var result *BalanceResult

	err := e.store.WithinTx(ctx, func(tx Tx) error {
		accounts, err := tx.LockAccounts(ctx, accountID)
		if err != nil {
			return err
		}
		account, ok := accounts[accountID]
		if !ok {
			return ErrAccountNotFound
		}

		balance := account.Balance.Add(amount)
		if err := checkRange(balance); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, accountID, balance); err != nil {
			return err
		}

		result = &BalanceResult{AccountID: accountID, Username: account.Username, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, wrapStoreError("deposit", err)
	}

	utils.LogDebug("Ledger", "deposit %s into %s, balance %s", amount, accountID, result.Balance)
	return result, nil
}

func (e *Engine) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*BalanceResult, error) {
	if e.strictWithdraw && !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := checkScale(amount); err != nil {
		return nil, err
	}

	var result *BalanceResult

	err := e.store.WithinTx(ctx, func(tx Tx) error {
		accounts, err := tx.LockAccounts(ctx, accountID)
		if err != nil {
			return err
		}
		account, ok := accounts[accountID]
		if !ok {
			return ErrAccountNotFound
		}

		if e.strictWithdraw {
			if err := checkWithdraw(account, amount); err != nil {
				return err
			}
		}

		balance := account.Balance.Sub(amount)
		if err := checkRange(balance); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, accountID, balance); err != nil {
			return err
		}

		result = &BalanceResult{AccountID: accountID, Username: account.Username, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, wrapStoreError("withdraw", err)
	}

	utils.LogDebug("Ledger", "withdraw %s from %s, balance %s", amount, accountID, result.Balance)
	return result, nil
}

// Transfer moves amount from fromID to toID. Both rows are locked in id order
// before any rule is evaluated, so opposite-direction transfers over the same
// pair cannot deadlock. The rules are still evaluated source first.
func (e *Engine) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal) (*TransferResult, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := checkScale(amount); err != nil {
		return nil, err
	}
	if fromID == toID {
		return nil, ErrSameAccount
	}

	var result *TransferResult

	err := e.store.WithinTx(ctx, func(tx Tx) error {
		accounts, err := tx.LockAccounts(ctx, fromID, toID)
		if err != nil {
			return err
		}
		src, ok := accounts[fromID]
		if !ok {
			return fmt.Errorf("source %s: %w", fromID, ErrAccountNotFound)
		}
		dst := accounts[toID]

		if err := checkTransfer(src, dst, amount); err != nil {
			return err
		}

		fromBalance := src.Balance.Sub(amount)
		toBalance := dst.Balance.Add(amount)
		if err := checkRange(toBalance); err != nil {
			return err
		}

		if err := tx.UpdateBalance(ctx, fromID, fromBalance); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, toID, toBalance); err != nil {
			return err
		}

		result = &TransferResult{
			FromAccountID: fromID,
			FromBalance:   fromBalance,
			ToAccountID:   toID,
			ToBalance:     toBalance,
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreError("transfer", err)
	}

	utils.LogDebug("Ledger", "transfer %s: %s -> %s", amount, fromID, toID)
	return result, nil
}
