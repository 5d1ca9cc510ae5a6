package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"account-service/internal/models"
)

// checkTransfer evaluates the transfer preconditions in order; the first
// violated one is reported. dst is nil when the destination does not exist.
func checkTransfer(src, dst *models.Account, amount decimal.Decimal) error {
	if src.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	if dst == nil {
		return ErrAccountNotFound
	}
	if src.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

func checkWithdraw(src *models.Account, amount decimal.Decimal) error {
	if src.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	if src.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// checkScale rejects amounts that a balance cannot hold exactly.
func checkScale(amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(models.BalanceScale)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, amount, models.BalanceScale)
	}
	return nil
}

func checkRange(balance decimal.Decimal) error {
	if !balance.Abs().LessThan(models.MaxBalance) {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, models.FormatMoney(balance))
	}
	return nil
}
