package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/audit"
	"github.com/applejunice/Applehome/internal/config"
	"github.com/applejunice/Applehome/internal/models"
	"github.com/applejunice/Applehome/internal/repository/memory"
)

var testAdmin = config.AdminConfig{Username: "admin", Password: "admin-secret"}

type fixture struct {
	store       *memory.Store
	credentials *CredentialService
	transfers   *TransferService
	ledger      *LedgerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	auditor := audit.NewAuditLogger(zap.NewNop(), nil)
	return &fixture{
		store:       store,
		credentials: NewCredentialService(store, SHA256Hasher{}, testAdmin, auditor, zap.NewNop()),
		transfers:   NewTransferService(store, auditor, zap.NewNop()),
		ledger:      NewLedgerService(store),
	}
}

func (f *fixture) register(t *testing.T, username string, balance string) *models.Account {
	t.Helper()
	account, err := f.credentials.Register(context.Background(), username, "password123", decimal.RequireFromString(balance))
	require.NoError(t, err)
	return account
}

func (f *fixture) balance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	account, err := f.store.AccountByID(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
