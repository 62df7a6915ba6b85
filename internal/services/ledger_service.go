package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/applejunice/Applehome/internal/models"
	"github.com/applejunice/Applehome/internal/repository"
)

// Summary totals one account's ledger activity.
type Summary struct {
	TotalSent     decimal.Decimal
	TotalReceived decimal.Decimal
	Count         int
}

// LedgerService answers ledger queries. Entries are appended only by the
// transfer engine inside its transaction.
type LedgerService struct {
	store repository.Store
}

func NewLedgerService(store repository.Store) *LedgerService {
	return &LedgerService{store: store}
}

// All returns every entry, newest first.
func (s *LedgerService) All(ctx context.Context) ([]models.LedgerEntry, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	return entries, nil
}

// ForAccount returns entries involving accountID, newest first, each tagged
// with its direction relative to accountID.
func (s *LedgerService) ForAccount(ctx context.Context, accountID int64) ([]models.AccountEntry, error) {
	entries, err := s.store.ListEntriesForAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list ledger for account %d: %w", accountID, err)
	}

	annotated := make([]models.AccountEntry, len(entries))
	for i, e := range entries {
		annotated[i] = models.AccountEntry{LedgerEntry: e, Direction: e.DirectionFor(accountID)}
	}
	return annotated, nil
}

func (s *LedgerService) Summary(ctx context.Context, accountID int64) (*Summary, error) {
	entries, err := s.ForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	summary := Summarize(entries)
	return &summary, nil
}

func Summarize(entries []models.AccountEntry) Summary {
	summary := Summary{TotalSent: decimal.Zero, TotalReceived: decimal.Zero, Count: len(entries)}
	for _, e := range entries {
		if e.Direction == models.DirectionSent {
			summary.TotalSent = summary.TotalSent.Add(e.Amount)
		} else {
			summary.TotalReceived = summary.TotalReceived.Add(e.Amount)
		}
	}
	return summary
}
