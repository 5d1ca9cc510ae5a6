package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"money,positive"`
}

type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"money"`
}

type TransferRequest struct {
	ToAccountID uuid.UUID       `json:"to_account_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"money,positive"`
}

type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
	Username  string `json:"username"`
}

type TransferResponse struct {
	FromAccountID string `json:"from_account_id"`
	FromBalance   string `json:"from_balance"`
	ToAccountID   string `json:"to_account_id"`
	ToBalance     string `json:"to_balance"`
}
