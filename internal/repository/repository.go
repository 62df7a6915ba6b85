// Package repository defines the persistence boundary for accounts and the
// ledger. Implementations live in the postgres and memory subpackages.
package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/applejunice/Applehome/internal/models"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrNegativeBalance   = errors.New("balance must not be negative")
	ErrNotLocked         = errors.New("account not locked in this transaction")
	ErrLocksHeld         = errors.New("accounts already locked in this transaction")
)

// AccountReader looks accounts up without taking locks.
type AccountReader interface {
	AccountByID(ctx context.Context, id int64) (*models.Account, error)
	AccountByUsername(ctx context.Context, username string) (*models.Account, error)
}

// Tx is one atomic unit of work. Nothing written through a Tx is visible to
// other readers until WithTx commits it.
type Tx interface {
	AccountReader

	// LockAccounts takes exclusive access to every id, in ascending id order,
	// and returns the current state of each account keyed by id. It may be
	// called once per transaction.
	LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error)

	// UpdateBalance sets the balance of an account locked by this transaction.
	UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error

	// AppendEntry records entry and fills in its ID and CreatedAt.
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error
}

// Store is the shared persistence for accounts and ledger entries.
type Store interface {
	AccountReader

	// CreateAccount inserts account and fills in ID and timestamps.
	CreateAccount(ctx context.Context, account *models.Account) error
	ListAccounts(ctx context.Context) ([]models.Account, error)

	// ListEntries returns every ledger entry, newest first.
	ListEntries(ctx context.Context) ([]models.LedgerEntry, error)
	// ListEntriesForAccount returns entries sent or received by id, newest first.
	ListEntriesForAccount(ctx context.Context, id int64) ([]models.LedgerEntry, error)

	// WithTx runs fn in a transaction. It commits when fn returns nil and
	// discards every write otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
}

// LockOrder returns ids deduplicated and sorted ascending, the order in which
// accounts must be locked.
func LockOrder(ids ...int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	ordered := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	return ordered
}

// SortEntries orders entries newest first, breaking ties by descending id.
func SortEntries(entries []models.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
}
