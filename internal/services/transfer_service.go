package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/audit"
	"github.com/applejunice/Applehome/internal/models"
	"github.com/applejunice/Applehome/internal/repository"
)

// TransferRequest represents the transfer request payload
// @Description Transfer request structure
type TransferRequest struct {
	ToUsername string          `json:"to_username" validate:"required" example:"bob"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"number" example:"40.00"`
}

// TransferResult holds both accounts as they were committed.
type TransferResult struct {
	Entry models.LedgerEntry
	From  models.Account
	To    models.Account
}

type TransferService struct {
	store  repository.Store
	audit  *audit.AuditLogger
	logger *zap.Logger
}

func NewTransferService(store repository.Store, auditor *audit.AuditLogger, logger *zap.Logger) *TransferService {
	return &TransferService{
		store:  store,
		audit:  auditor,
		logger: logger.With(zap.String("component", "transfer")),
	}
}

// Transfer moves amount from actorID to the account named toUsername. The
// debit, the credit and the ledger entry commit together or not at all.
func (s *TransferService) Transfer(ctx context.Context, actorID int64, toUsername string, amount decimal.Decimal) (*TransferResult, error) {
	result, err := s.transfer(ctx, actorID, toUsername, amount)
	if err != nil {
		s.logger.Warn("Transfer rejected",
			zap.Int64("from_account_id", actorID),
			zap.String("to_username", toUsername),
			zap.String("amount", amount.String()),
			zap.Error(err))
		s.audit.LogError(ctx, strconv.FormatInt(actorID, 10), "transfer", err)
		return nil, err
	}

	s.logger.Info("Transfer committed",
		zap.Int64("entry_id", result.Entry.ID),
		zap.String("from", result.From.Username),
		zap.String("to", result.To.Username),
		zap.String("amount", amount.StringFixed(2)))
	s.audit.LogTransfer(ctx, result.Entry.ID, result.From.Username, result.To.Username, amount)
	return result, nil
}

func (s *TransferService) transfer(ctx context.Context, actorID int64, toUsername string, amount decimal.Decimal) (*TransferResult, error) {
	if !amount.IsPositive() || !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}

	recipient, err := s.store.AccountByUsername(ctx, toUsername)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("load recipient %s: %w", toUsername, err)
	}

	if recipient.ID == actorID {
		return nil, ErrSelfTransfer
	}

	var result TransferResult
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		locked, err := tx.LockAccounts(ctx, actorID, recipient.ID)
		if err != nil {
			return err
		}
		from, to := locked[actorID], locked[recipient.ID]

		if from.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		from.Balance = from.Balance.Sub(amount)
		to.Balance = to.Balance.Add(amount)
		if to.Balance.GreaterThan(MaxAmount) {
			return ErrInvalidAmount
		}

		if err := tx.UpdateBalance(ctx, from.ID, from.Balance); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, to.ID, to.Balance); err != nil {
			return err
		}

		result.Entry = models.LedgerEntry{
			FromAccountID: &from.ID,
			ToAccountID:   to.ID,
			Amount:        amount,
			Kind:          models.KindTransfer,
		}
		if err := tx.AppendEntry(ctx, &result.Entry); err != nil {
			return err
		}

		fromName := from.Username
		result.Entry.FromUsername = &fromName
		result.Entry.ToUsername = to.Username
		result.From = *from
		result.To = *to
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInvalidAmount):
			return nil, err
		case errors.Is(err, repository.ErrNegativeBalance):
			return nil, ErrInsufficientFunds
		case errors.Is(err, repository.ErrAccountNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("transfer from account %d: %w", actorID, err)
	}
	return &result, nil
}
