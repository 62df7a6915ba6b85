package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/applejunice/Applehome/internal/models"
	"github.com/applejunice/Applehome/internal/repository"
)

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

const accountColumns = `id, username, password_hash, balance, created_at, updated_at`

const entrySelect = `
		SELECT e.id, e.from_account_id, e.to_account_id, e.amount, e.kind, e.created_at,
		       f.username, t.username
		FROM ledger_entries e
		LEFT JOIN accounts f ON f.id = e.from_account_id
		JOIN accounts t ON t.id = e.to_account_id`

const entryOrder = `
		ORDER BY e.created_at DESC, e.id DESC`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) error {
	now := s.now()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO accounts (username, password_hash, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		account.Username, account.PasswordHash, account.Balance, now, now).Scan(&account.ID)
	if err != nil {
		return mapError(err, "create account %s", account.Username)
	}
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

func (s *Store) AccountByID(ctx context.Context, id int64) (*models.Account, error) {
	return accountBy(ctx, s.db, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (s *Store) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	return accountBy(ctx, s.db, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]models.Account, 0)
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (s *Store) ListEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	return s.queryEntries(ctx, entrySelect+entryOrder)
}

func (s *Store) ListEntriesForAccount(ctx context.Context, id int64) ([]models.LedgerEntry, error) {
	return s.queryEntries(ctx, entrySelect+`
		WHERE e.from_account_id = $1 OR e.to_account_id = $1`+entryOrder, id)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		var (
			e        models.LedgerEntry
			fromID   sql.NullInt64
			fromName sql.NullString
		)
		if err := rows.Scan(&e.ID, &fromID, &e.ToAccountID, &e.Amount, &e.Kind, &e.CreatedAt, &fromName, &e.ToUsername); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if fromID.Valid {
			id := fromID.Int64
			e.FromAccountID = &id
		}
		if fromName.Valid {
			name := fromName.String
			e.FromUsername = &name
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx     *sql.Tx
	now    func() time.Time
	locked map[int64]bool
}

func (t *pgTx) AccountByID(ctx context.Context, id int64) (*models.Account, error) {
	return accountBy(ctx, t.tx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (t *pgTx) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	return accountBy(ctx, t.tx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

// LockAccounts issues one SELECT ... FOR UPDATE per id in ascending order so
// two transactions over the same pair always queue on the lower id first.
func (t *pgTx) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error) {
	if t.locked != nil {
		return nil, repository.ErrLocksHeld
	}
	t.locked = make(map[int64]bool, len(ids))

	accounts := make(map[int64]*models.Account, len(ids))
	for _, id := range repository.LockOrder(ids...) {
		account, err := accountBy(ctx, t.tx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return nil, err
		}
		t.locked[id] = true
		accounts[id] = account
	}
	return accounts, nil
}

func (t *pgTx) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	if !t.locked[id] {
		return repository.ErrNotLocked
	}
	if balance.IsNegative() {
		return repository.ErrNegativeBalance
	}

	result, err := t.tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3`,
		balance, t.now(), id)
	if err != nil {
		return mapError(err, "update balance for account %d", id)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrAccountNotFound
	}
	return nil
}

func (t *pgTx) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	now := t.now()
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (from_account_id, to_account_id, amount, kind, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		entry.FromAccountID, entry.ToAccountID, entry.Amount, string(entry.Kind), now).Scan(&entry.ID)
	if err != nil {
		return mapError(err, "append ledger entry")
	}
	entry.CreatedAt = now
	return nil
}

func accountBy(ctx context.Context, q queryer, query string, arg any) (*models.Account, error) {
	var a models.Account
	err := q.QueryRowContext(ctx, query, arg).
		Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account %v: %w", arg, err)
	}
	return &a, nil
}

// mapError turns constraint violations into repository errors and wraps the
// rest with context.
func mapError(err error, format string, args ...any) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return repository.ErrDuplicateUsername
		case checkViolation:
			return repository.ErrNegativeBalance
		}
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
