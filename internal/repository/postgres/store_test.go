package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applejunice/Applehome/internal/models"
	"github.com/applejunice/Applehome/internal/repository"
)

var accountCols = []string{"id", "username", "password_hash", "balance", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestStore_CreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("successful insert", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts (username, password_hash, balance, created_at, updated_at)")).
			WithArgs("alice", "hash", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		account := &models.Account{Username: "alice", PasswordHash: "hash", Balance: decimal.NewFromInt(100)}
		require.NoError(t, store.CreateAccount(ctx, account))
		assert.Equal(t, int64(7), account.ID)
		assert.False(t, account.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("INSERT INTO accounts").
			WillReturnError(&pq.Error{Code: "23505"})

		err := store.CreateAccount(ctx, &models.Account{Username: "alice"})
		assert.ErrorIs(t, err, repository.ErrDuplicateUsername)
	})

	t.Run("connection failure is wrapped", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("INSERT INTO accounts").WillReturnError(errors.New("connection refused"))

		err := store.CreateAccount(ctx, &models.Account{Username: "alice"})
		assert.ErrorContains(t, err, "create account alice")
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestStore_AccountLookups(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("by username", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE username = $1")).
			WithArgs("bob").
			WillReturnRows(sqlmock.NewRows(accountCols).AddRow(2, "bob", "h", "12.50", now, now))

		account, err := store.AccountByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(2), account.ID)
		assert.True(t, account.Balance.Equal(decimal.RequireFromString("12.5")))
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE id = $1")).
			WithArgs(int64(9)).
			WillReturnError(sql.ErrNoRows)

		_, err := store.AccountByID(ctx, 9)
		assert.ErrorIs(t, err, repository.ErrAccountNotFound)
	})

	t.Run("list ordered by id", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM accounts ORDER BY id")).
			WillReturnRows(sqlmock.NewRows(accountCols).
				AddRow(1, "alice", "h", "60.00", now, now).
				AddRow(2, "bob", "h", "40.00", now, now))

		accounts, err := store.ListAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "alice", accounts[0].Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_ListEntries(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)
	now := time.Now()

	cols := []string{"id", "from_account_id", "to_account_id", "amount", "kind", "created_at", "username", "username"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.from_account_id = $1 OR e.to_account_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(2, 1, 2, "40.00", "transfer", now, "alice", "bob").
			AddRow(1, nil, 1, "100.00", "deposit", now.Add(-time.Hour), nil, "alice"))

	entries, err := store.ListEntriesForAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, models.KindTransfer, entries[0].Kind)
	require.NotNil(t, entries[0].FromAccountID)
	assert.Equal(t, int64(1), *entries[0].FromAccountID)
	assert.Equal(t, "alice", *entries[0].FromUsername)
	assert.Equal(t, "bob", entries[0].ToUsername)

	assert.Nil(t, entries[1].FromAccountID)
	assert.Nil(t, entries[1].FromUsername)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("locks in ascending order and commits", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE id = $1 FOR UPDATE")).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(accountCols).AddRow(1, "alice", "h", "100.00", now, now))
		mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE id = $1 FOR UPDATE")).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows(accountCols).AddRow(2, "bob", "h", "0.00", now, now))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3")).
			WithArgs("60", sqlmock.AnyArg(), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3")).
			WithArgs("40", sqlmock.AnyArg(), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ledger_entries (from_account_id, to_account_id, amount, kind, created_at)")).
			WithArgs(int64(1), int64(2), "40", "transfer", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
		mock.ExpectCommit()

		var entry models.LedgerEntry
		err := store.WithTx(ctx, func(tx repository.Tx) error {
			locked, err := tx.LockAccounts(ctx, 2, 1)
			if err != nil {
				return err
			}
			amount := decimal.NewFromInt(40)
			if err := tx.UpdateBalance(ctx, 1, locked[1].Balance.Sub(amount)); err != nil {
				return err
			}
			if err := tx.UpdateBalance(ctx, 2, locked[2].Balance.Add(amount)); err != nil {
				return err
			}
			from := int64(1)
			entry = models.LedgerEntry{FromAccountID: &from, ToAccountID: 2, Amount: amount, Kind: models.KindTransfer}
			return tx.AppendEntry(ctx, &entry)
		})
		require.NoError(t, err)
		assert.Equal(t, int64(11), entry.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("callback error rolls back", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(accountCols).AddRow(1, "alice", "h", "100.00", now, now))
		mock.ExpectRollback()

		boom := errors.New("insufficient")
		err := store.WithTx(ctx, func(tx repository.Tx) error {
			if _, err := tx.LockAccounts(ctx, 1); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("check violation maps to negative balance", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(accountCols).AddRow(1, "alice", "h", "1.00", now, now))
		mock.ExpectExec("UPDATE accounts").WillReturnError(&pq.Error{Code: "23514"})
		mock.ExpectRollback()

		err := store.WithTx(ctx, func(tx repository.Tx) error {
			if _, err := tx.LockAccounts(ctx, 1); err != nil {
				return err
			}
			return tx.UpdateBalance(ctx, 1, decimal.NewFromInt(5))
		})
		assert.ErrorIs(t, err, repository.ErrNegativeBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update without lock", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithTx(ctx, func(tx repository.Tx) error {
			return tx.UpdateBalance(ctx, 1, decimal.Zero)
		})
		assert.ErrorIs(t, err, repository.ErrNotLocked)
	})
}
