// Package memory keeps accounts and sessions in process memory. It honours the
// same locking and commit contract as the PostgreSQL store.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-service/internal/ledger"
	"account-service/internal/models"
	"account-service/internal/repository"
)

type Option func(*Store)

// WithCommitHook runs hook right before a ledger transaction is applied.
// A non-nil error aborts the commit and nothing is written.
func WithCommitHook(hook func() error) Option {
	return func(s *Store) {
		s.commitHook = hook
	}
}

type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]models.Account
	sessions map[uuid.UUID]models.AuthSession

	// rows holds one lock per account, created with it.
	rows map[uuid.UUID]rowLock

	commitHook func() error
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		accounts: make(map[uuid.UUID]models.Account),
		sessions: make(map[uuid.UUID]models.AuthSession),
		rows:     make(map[uuid.UUID]rowLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUniqueLocked(uuid.Nil, account.Username, account.Email); err != nil {
		return err
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	if account.Role == "" {
		account.Role = models.RoleUser
	}
	account.Balance = account.Balance.Round(models.BalanceScale)

	s.accounts[account.ID] = *account
	if _, ok := s.rows[account.ID]; !ok {
		s.rows[account.ID] = make(rowLock, 1)
	}
	return nil
}

func (s *Store) checkUniqueLocked(self uuid.UUID, username, email string) error {
	for id, acc := range s.accounts {
		if id == self {
			continue
		}
		if username != "" && strings.EqualFold(acc.Username, username) {
			return repository.ErrUsernameTaken
		}
		if email != "" && strings.EqualFold(acc.Email, email) {
			return repository.ErrEmailTaken
		}
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.find(func(a *models.Account) bool { return a.ID == id })
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return s.find(func(a *models.Account) bool { return strings.EqualFold(a.Username, username) })
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.find(func(a *models.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (s *Store) GetByResetToken(ctx context.Context, token string) (*models.Account, error) {
	return s.find(func(a *models.Account) bool {
		return a.PasswordResetToken != nil && *a.PasswordResetToken == token
	})
}

func (s *Store) find(match func(*models.Account) bool) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, acc := range s.accounts {
		if match(&acc) {
			found := acc
			return &found, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (s *Store) List(ctx context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]models.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, username, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	if err := s.checkUniqueLocked(id, username, email); err != nil {
		return err
	}
	if username != "" {
		acc.Username = username
	}
	if email != "" {
		acc.Email = email
	}
	s.accounts[id] = acc
	return nil
}

func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	acc.PasswordHash = passwordHash
	acc.PasswordResetToken = nil
	acc.PasswordResetExpire = nil
	s.accounts[id] = acc
	return nil
}

func (s *Store) SetResetToken(ctx context.Context, id uuid.UUID, token string, expire time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	acc.PasswordResetToken = &token
	acc.PasswordResetExpire = &expire
	s.accounts[id] = acc
	return nil
}

func (s *Store) SetRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	acc.Role = role
	s.accounts[id] = acc
	return nil
}

func (s *Store) SetBanned(ctx context.Context, id uuid.UUID, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	acc.Banned = banned
	s.accounts[id] = acc
	return nil
}

func (s *Store) CreateSession(ctx context.Context, session *models.AuthSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[session.AccountID]; !ok {
		return repository.ErrAccountNotFound
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*models.AuthSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &session, nil
}

func (s *Store) RevokeSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if session.RevokedAt == nil {
		now := time.Now().UTC()
		session.RevokedAt = &now
		s.sessions[id] = session
	}
	return nil
}

// RevokeAllSessions revokes every active session of the account except keep.
func (s *Store) RevokeAllSessions(ctx context.Context, accountID, keep uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for id, session := range s.sessions {
		if session.AccountID != accountID || id == keep || session.RevokedAt != nil {
			continue
		}
		session.RevokedAt = &now
		s.sessions[id] = session
	}
	return nil
}

// rowLock is a one-slot semaphore so waiting on it can observe ctx.
type rowLock chan struct{}

func (l rowLock) lock(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l rowLock) unlock() {
	<-l
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		store:  s,
		staged: make(map[uuid.UUID]decimal.Decimal),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit(ctx)
}

type memTx struct {
	store  *Store
	held   []rowLock
	locked map[uuid.UUID]bool
	staged map[uuid.UUID]decimal.Decimal
}

var errAlreadyLocked = errors.New("memory: accounts already locked in this transaction")

func (t *memTx) LockAccounts(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.Account, error) {
	if t.locked != nil {
		return nil, errAlreadyLocked
	}

	ordered := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].String() < ordered[j].String()
	})

	// Ids with no account have no row to lock and are left out of the result.
	t.store.mu.RLock()
	locks := make([]rowLock, 0, len(ordered))
	lockedIDs := make([]uuid.UUID, 0, len(ordered))
	for _, id := range ordered {
		if l, ok := t.store.rows[id]; ok {
			locks = append(locks, l)
			lockedIDs = append(lockedIDs, id)
		}
	}
	t.store.mu.RUnlock()

	t.locked = make(map[uuid.UUID]bool, len(lockedIDs))
	for i, l := range locks {
		if err := l.lock(ctx); err != nil {
			return nil, err
		}
		t.held = append(t.held, l)
		t.locked[lockedIDs[i]] = true
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	result := make(map[uuid.UUID]*models.Account, len(ordered))
	for _, id := range ordered {
		if acc, ok := t.store.accounts[id]; ok {
			found := acc
			result[id] = &found
		}
	}
	return result, nil
}

func (t *memTx) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	if !t.locked[id] {
		return errors.New("memory: balance update on an account not locked by this transaction")
	}
	t.staged[id] = balance
	return nil
}

func (t *memTx) commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.store.commitHook != nil {
		if err := t.store.commitHook(); err != nil {
			return err
		}
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for id := range t.staged {
		if _, ok := t.store.accounts[id]; !ok {
			return repository.ErrAccountNotFound
		}
	}
	for id, balance := range t.staged {
		acc := t.store.accounts[id]
		acc.Balance = balance.Round(models.BalanceScale)
		t.store.accounts[id] = acc
	}
	return nil
}

func (t *memTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].unlock()
	}
	t.held = nil
}
