package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"account-service/internal/cache"
	"account-service/internal/events"
	"account-service/internal/models"
	"account-service/internal/utils"
)

type AccountService struct {
	accounts AccountStore
	auth     *AuthService
	cache    ProfileCache
	events   EventSink
}

func NewAccountService(accounts AccountStore, auth *AuthService, profiles ProfileCache, sink EventSink) *AccountService {
	return &AccountService{
		accounts: accounts,
		auth:     auth,
		cache:    profiles,
		events:   sink,
	}
}

// Signup creates an account. The request is expected to be schema-valid.
func (s *AccountService) Signup(ctx context.Context, req models.SignupRequest) (*models.Account, error) {
	if IsProtectedUsername(req.Username) {
		utils.LogWarning("AccountService", "Signup with protected username %s", req.Username)
		return nil, ErrProtectedUsername
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Balance:      req.InitialBalance.Round(models.BalanceScale),
		Role:         models.RoleUser,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		utils.LogWarning("AccountService", "Signup for %s failed: %v", req.Username, err)
		return nil, err
	}

	s.events.Dispatch(ctx, events.New(events.AccountCreated, account.ID, map[string]string{
		"username": account.Username,
		"balance":  models.FormatMoney(account.Balance),
	}))
	utils.LogSuccess("AccountService", "Account %s created for %s", account.ID, account.Username)
	return account, nil
}

// Profile returns the account's public view, through the cache when possible.
func (s *AccountService) Profile(ctx context.Context, accountID uuid.UUID) (*models.Profile, error) {
	profile, err := s.cache.GetProfile(ctx, accountID)
	if err == nil {
		utils.LogDebug("Cache", "Profile %s served from cache", accountID)
		return profile, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		utils.LogError("Cache", "Profile lookup failed", err)
	}

	// The version is read before the account so a commit landing in between
	// makes the write below a no-op instead of caching a stale balance.
	version, versionErr := s.cache.ProfileVersion(ctx, accountID)
	if versionErr != nil {
		utils.LogError("Cache", "Profile version lookup failed", versionErr)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	fresh := account.Profile()
	if versionErr == nil {
		err := s.cache.SetProfile(ctx, fresh, version)
		switch {
		case errors.Is(err, cache.ErrStale):
			utils.LogDebug("Cache", "Profile %s changed during read, not cached", accountID)
		case err != nil:
			utils.LogError("Cache", "Profile store failed", err)
		}
	}
	return &fresh, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, accountID uuid.UUID, req models.UpdateProfileRequest) (*models.Profile, error) {
	if req.Username == "" && req.Email == "" {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if req.Username != "" && IsProtectedUsername(req.Username) {
		return nil, ErrProtectedUsername
	}

	if err := s.accounts.UpdateProfile(ctx, accountID, req.Username, req.Email); err != nil {
		return nil, err
	}
	if err := s.cache.InvalidateProfiles(ctx, accountID); err != nil {
		utils.LogError("Cache", "Profile invalidation failed", err)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	s.events.Dispatch(ctx, events.New(events.ProfileUpdated, accountID, nil))
	utils.LogSuccess("AccountService", "Profile %s updated", accountID)

	profile := account.Profile()
	return &profile, nil
}

// ListAccounts returns every account. Only admins may call it.
func (s *AccountService) ListAccounts(ctx context.Context, caller *models.Account) ([]models.Profile, error) {
	if caller == nil || !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]models.Profile, len(accounts))
	for i := range accounts {
		profiles[i] = accounts[i].Profile()
	}
	return profiles, nil
}
