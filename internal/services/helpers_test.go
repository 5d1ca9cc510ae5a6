package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"account-service/internal/cache"
	"account-service/internal/events"
	"account-service/internal/ledger"
	"account-service/internal/models"
	"account-service/internal/repository/memory"
)

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *recordingSink) Dispatch(ctx context.Context, event events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) ofType(t events.Type) []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type mapCache struct {
	mu          sync.Mutex
	profiles    map[uuid.UUID]models.Profile
	versions    map[uuid.UUID]int64
	hits        int
	invalidated []uuid.UUID
}

func newMapCache() *mapCache {
	return &mapCache{
		profiles: make(map[uuid.UUID]models.Profile),
		versions: make(map[uuid.UUID]int64),
	}
}

func (c *mapCache) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.profiles[id]
	if !ok {
		return nil, cache.ErrMiss
	}
	c.hits++
	return &p, nil
}

func (c *mapCache) ProfileVersion(ctx context.Context, id uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[id], nil
}

func (c *mapCache) SetProfile(ctx context.Context, p models.Profile, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[p.ID] != version {
		return cache.ErrStale
	}
	c.profiles[p.ID] = p
	return nil
}

func (c *mapCache) InvalidateProfiles(ctx context.Context, ids ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.profiles, id)
		c.versions[id]++
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

type fixture struct {
	store    *memory.Store
	sink     *recordingSink
	cache    *mapCache
	auth     *AuthService
	accounts *AccountService
	ledger   *LedgerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	sink := &recordingSink{}
	profiles := newMapCache()

	auth := NewAuthService(store, store, sink, AuthConfig{
		Secret:        "test-secret",
		TokenTTL:      time.Hour,
		ResetTokenTTL: time.Hour,
		BcryptCost:    bcrypt.MinCost,
	})

	return &fixture{
		store:    store,
		sink:     sink,
		cache:    profiles,
		auth:     auth,
		accounts: NewAccountService(store, auth, profiles, sink),
		ledger:   NewLedgerService(ledger.NewEngine(store), profiles, sink),
	}
}

func (f *fixture) signup(t *testing.T, username, balance string) *models.Account {
	t.Helper()
	account, err := f.accounts.Signup(context.Background(), models.SignupRequest{
		Username:       username,
		Email:          username + "@example.com",
		Password:       "password-" + username,
		InitialBalance: decimal.RequireFromString(balance),
	})
	require.NoError(t, err)
	return account
}

func (f *fixture) login(t *testing.T, username string) *Principal {
	t.Helper()
	resp, err := f.auth.Login(context.Background(), models.LoginRequest{
		Username: username,
		Password: "password-" + username,
	})
	require.NoError(t, err)

	p, err := f.auth.Authenticate(context.Background(), resp.Token)
	require.NoError(t, err)
	return p
}
