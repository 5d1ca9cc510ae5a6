package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-service/internal/events"
	"account-service/internal/ledger"
	"account-service/internal/models"
	"account-service/internal/utils"
)

// LedgerService runs engine operations for an authenticated caller and takes
// care of cache invalidation and events once they commit.
type LedgerService struct {
	engine *ledger.Engine
	cache  ProfileCache
	events EventSink
}

func NewLedgerService(engine *ledger.Engine, profiles ProfileCache, sink EventSink) *LedgerService {
	return &LedgerService{
		engine: engine,
		cache:  profiles,
		events: sink,
	}
}

func (s *LedgerService) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*models.BalanceResponse, error) {
	result, err := s.engine.Deposit(ctx, accountID, amount)
	if err != nil {
		utils.LogWarning("LedgerService", "Deposit to %s rejected: %v", accountID, err)
		return nil, err
	}

	s.afterCommit(ctx, events.New(events.Deposited, accountID, map[string]string{
		"amount":  models.FormatMoney(amount),
		"balance": models.FormatMoney(result.Balance),
	}), accountID)

	return balanceResponse(result), nil
}

func (s *LedgerService) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*models.BalanceResponse, error) {
	result, err := s.engine.Withdraw(ctx, accountID, amount)
	if err != nil {
		utils.LogWarning("LedgerService", "Withdraw from %s rejected: %v", accountID, err)
		return nil, err
	}

	s.afterCommit(ctx, events.New(events.Withdrawn, accountID, map[string]string{
		"amount":  models.FormatMoney(amount),
		"balance": models.FormatMoney(result.Balance),
	}), accountID)

	return balanceResponse(result), nil
}

func (s *LedgerService) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal) (*models.TransferResponse, error) {
	result, err := s.engine.Transfer(ctx, fromID, toID, amount)
	if err != nil {
		utils.LogWarning("LedgerService", "Transfer %s -> %s rejected: %v", fromID, toID, err)
		return nil, err
	}

	s.afterCommit(ctx, events.New(events.Transferred, fromID, map[string]string{
		"to_account_id": toID.String(),
		"amount":        models.FormatMoney(amount),
	}), fromID, toID)

	utils.LogSuccess("LedgerService", "Transfer %s: %s -> %s", models.FormatMoney(amount), fromID, toID)
	return &models.TransferResponse{
		FromAccountID: result.FromAccountID.String(),
		FromBalance:   models.FormatMoney(result.FromBalance),
		ToAccountID:   result.ToAccountID.String(),
		ToBalance:     models.FormatMoney(result.ToBalance),
	}, nil
}

func (s *LedgerService) afterCommit(ctx context.Context, event events.Event, touched ...uuid.UUID) {
	if err := s.cache.InvalidateProfiles(ctx, touched...); err != nil {
		utils.LogError("Cache", "Profile invalidation after ledger operation failed", err)
	}
	s.events.Dispatch(ctx, event)
}

func balanceResponse(r *ledger.BalanceResult) *models.BalanceResponse {
	return &models.BalanceResponse{
		AccountID: r.AccountID.String(),
		Amount:    models.FormatMoney(r.Balance),
		Username:  r.Username,
	}
}
