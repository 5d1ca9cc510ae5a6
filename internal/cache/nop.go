package cache

import (
	"context"

	"github.com/google/uuid"

	"account-service/internal/models"
)

// Nop is used when no Redis address is configured. Every lookup misses.
type Nop struct{}

func (Nop) GetProfile(ctx context.Context, accountID uuid.UUID) (*models.Profile, error) {
	return nil, ErrMiss
}

func (Nop) ProfileVersion(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return 0, nil
}

func (Nop) SetProfile(ctx context.Context, profile models.Profile, version int64) error {
	return nil
}

func (Nop) InvalidateProfiles(ctx context.Context, accountIDs ...uuid.UUID) error {
	return nil
}
