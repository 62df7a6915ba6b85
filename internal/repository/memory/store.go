// Package memory is an in-process repository.Store. Each account has its own
// mutex so transfers over disjoint accounts proceed in parallel while
// transfers sharing an account serialise.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/applejunice/Applehome/internal/models"
	"github.com/applejunice/Applehome/internal/repository"
)

type Store struct {
	mu            sync.RWMutex
	accounts      map[int64]models.Account
	byUsername    map[string]int64
	entries       []models.LedgerEntry
	nextAccountID int64
	nextEntryID   int64

	lockMu sync.Mutex
	locks  map[int64]*sync.Mutex

	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		accounts:   make(map[int64]models.Account),
		byUsername: make(map[string]int64),
		locks:      make(map[int64]*sync.Mutex),
		now:        time.Now,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if account.Balance.IsNegative() {
		return repository.ErrNegativeBalance
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[account.Username]; exists {
		return repository.ErrDuplicateUsername
	}

	s.nextAccountID++
	now := s.now()
	account.ID = s.nextAccountID
	account.CreatedAt = now
	account.UpdatedAt = now

	s.accounts[account.ID] = *account
	s.byUsername[account.Username] = account.ID
	return nil
}

func (s *Store) AccountByID(ctx context.Context, id int64) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return &account, nil
}

func (s *Store) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	account := s.accounts[id]
	return &account, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]models.Account, 0, len(s.accounts))
	for id := int64(1); id <= s.nextAccountID; id++ {
		if account, ok := s.accounts[id]; ok {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

func (s *Store) ListEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	return s.filterEntries(ctx, func(models.LedgerEntry) bool { return true })
}

func (s *Store) ListEntriesForAccount(ctx context.Context, id int64) ([]models.LedgerEntry, error) {
	return s.filterEntries(ctx, func(e models.LedgerEntry) bool {
		return e.ToAccountID == id || (e.FromAccountID != nil && *e.FromAccountID == id)
	})
}

func (s *Store) filterEntries(ctx context.Context, keep func(models.LedgerEntry) bool) ([]models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.LedgerEntry, 0)
	for _, e := range s.entries {
		if !keep(e) {
			continue
		}
		if e.FromAccountID != nil {
			name := s.accounts[*e.FromAccountID].Username
			e.FromUsername = &name
		}
		e.ToUsername = s.accounts[e.ToAccountID].Username
		entries = append(entries, e)
	}
	repository.SortEntries(entries)
	return entries, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{
		store:    s,
		balances: make(map[int64]decimal.Decimal),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

// commit publishes staged writes under the store mutex so readers observe
// either none or all of them.
func (s *Store) commit(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, balance := range tx.balances {
		account := s.accounts[id]
		account.Balance = balance
		account.UpdatedAt = now
		s.accounts[id] = account
	}
	s.entries = append(s.entries, tx.entries...)
}

func (s *Store) accountLock(id int64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

type memTx struct {
	store    *Store
	held     []*sync.Mutex
	locked   map[int64]bool
	balances map[int64]decimal.Decimal
	entries  []models.LedgerEntry
}

func (tx *memTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	tx.held = nil
}

func (tx *memTx) AccountByID(ctx context.Context, id int64) (*models.Account, error) {
	account, err := tx.store.AccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if balance, ok := tx.balances[id]; ok {
		account.Balance = balance
	}
	return account, nil
}

func (tx *memTx) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	account, err := tx.store.AccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if balance, ok := tx.balances[account.ID]; ok {
		account.Balance = balance
	}
	return account, nil
}

func (tx *memTx) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error) {
	if tx.locked != nil {
		return nil, repository.ErrLocksHeld
	}
	tx.locked = make(map[int64]bool, len(ids))

	for _, id := range repository.LockOrder(ids...) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := tx.store.accountLock(id)
		m.Lock()
		tx.held = append(tx.held, m)
		tx.locked[id] = true
	}

	accounts := make(map[int64]*models.Account, len(ids))
	for id := range tx.locked {
		account, err := tx.AccountByID(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts[id] = account
	}
	return accounts, nil
}

func (tx *memTx) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !tx.locked[id] {
		return repository.ErrNotLocked
	}
	if balance.IsNegative() {
		return repository.ErrNegativeBalance
	}
	tx.balances[id] = balance
	return nil
}

func (tx *memTx) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx.store.mu.Lock()
	tx.store.nextEntryID++
	entry.ID = tx.store.nextEntryID
	entry.CreatedAt = tx.store.now()
	tx.store.mu.Unlock()

	tx.entries = append(tx.entries, *entry)
	return nil
}
