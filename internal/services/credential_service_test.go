package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("successful registration", func(t *testing.T) {
		f := newFixture(t)
		account, err := f.credentials.Register(ctx, "alice", "password123", dec("100"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), account.ID)
		assert.True(t, account.Balance.Equal(dec("100")))
		assert.NotEqual(t, "password123", account.PasswordHash)

		entries, err := f.ledger.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries, "registration does not write ledger entries")
	})

	t.Run("default balance is zero", func(t *testing.T) {
		f := newFixture(t)
		account, err := f.credentials.Register(ctx, "alice", "password123", decimal.Zero)
		require.NoError(t, err)
		assert.True(t, account.Balance.IsZero())
	})

	t.Run("validation failures", func(t *testing.T) {
		f := newFixture(t)
		cases := []struct {
			name     string
			username string
			password string
			balance  string
			field    string
		}{
			{"short username", "al", "password123", "0", "username"},
			{"long username", strings.Repeat("a", 51), "password123", "0", "username"},
			{"short password", "alice", "12345", "0", "password"},
			{"too many decimals", "alice", "password123", "1.001", "balance"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := f.credentials.Register(ctx, tc.username, tc.password, dec(tc.balance))
				require.ErrorIs(t, err, ErrInvalidInput)

				var svcErr *Error
				require.ErrorAs(t, err, &svcErr)
				assert.Contains(t, svcErr.Details, tc.field)
			})
		}
	})

	t.Run("username length counts characters", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.credentials.Register(ctx, "ありす", "password123", decimal.Zero)
		assert.NoError(t, err)
	})

	t.Run("negative balance", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.credentials.Register(ctx, "alice", "password123", dec("-1"))
		assert.ErrorIs(t, err, ErrNegativeBalance)
	})

	t.Run("duplicate username", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "alice", "0")
		_, err := f.credentials.Register(ctx, "alice", "other-password", decimal.Zero)
		assert.ErrorIs(t, err, ErrDuplicateUsername)
	})

	t.Run("concurrent duplicates create one account", func(t *testing.T) {
		f := newFixture(t)
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := f.credentials.Register(ctx, "alice", "password123", decimal.Zero); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, ErrDuplicateUsername)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, succeeded)
	})
}

func TestCredentialService_Authenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "alice", "100")

	account, err := f.credentials.Authenticate(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, account.ID)

	_, wrongPassword := f.credentials.Authenticate(ctx, "alice", "nope-nope")
	_, unknownUser := f.credentials.Authenticate(ctx, "mallory", "password123")
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestCredentialService_AuthenticateAdmin(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.credentials.AuthenticateAdmin("admin", "admin-secret"))
	assert.False(t, f.credentials.AuthenticateAdmin("admin", "admin-secre"))
	assert.False(t, f.credentials.AuthenticateAdmin("alice", "admin-secret"))
}

func TestCredentialService_Lookups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "bob", "0")
	f.register(t, "alice", "100")

	accounts, err := f.credentials.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "bob", accounts[0].Username)
	assert.Equal(t, "alice", accounts[1].Username)

	got, err := f.credentials.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)

	_, err = f.credentials.GetByID(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.credentials.GetByUsername(ctx, "carol")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCredentialService_AdjustBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("override records old and new", func(t *testing.T) {
		f := newFixture(t)
		alice := f.register(t, "alice", "60")

		change, err := f.credentials.AdjustBalance(ctx, "admin", "alice", dec("500"))
		require.NoError(t, err)
		assert.Equal(t, alice.ID, change.AccountID)
		assert.True(t, change.OldBalance.Equal(dec("60")))
		assert.True(t, change.NewBalance.Equal(dec("500")))
		assert.True(t, f.balance(t, alice.ID).Equal(dec("500")))

		entries, err := f.ledger.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("negative", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "alice", "60")
		_, err := f.credentials.AdjustBalance(ctx, "admin", "alice", dec("-5"))
		assert.ErrorIs(t, err, ErrNegativeBalance)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.credentials.AdjustBalance(ctx, "admin", "ghost", dec("5"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
