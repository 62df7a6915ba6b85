package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/applejunice/Applehome/internal/audit"
	"github.com/applejunice/Applehome/internal/config"
	"github.com/applejunice/Applehome/internal/models"
	"github.com/applejunice/Applehome/internal/repository"
)

// RegisterRequest represents the registration request payload
// @Description Registration request structure
type RegisterRequest struct {
	Username string           `json:"username" validate:"required,min=3,max=50" example:"alice"`
	Password string           `json:"password" validate:"required,min=6" example:"password123"`
	Balance  *decimal.Decimal `json:"balance,omitempty" swaggertype:"number" example:"100.00"`
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"alice"`
	Password string `json:"password" validate:"required" example:"password123"`
}

// BalanceChange is the outcome of an administrator balance override.
type BalanceChange struct {
	AccountID  int64
	Username   string
	OldBalance decimal.Decimal
	NewBalance decimal.Decimal
}

type CredentialService struct {
	store     repository.Store
	hasher    PasswordHasher
	admin     config.AdminConfig
	validator *ValidationHelper
	audit     *audit.AuditLogger
	logger    *zap.Logger
}

func NewCredentialService(store repository.Store, hasher PasswordHasher, admin config.AdminConfig, auditor *audit.AuditLogger, logger *zap.Logger) *CredentialService {
	return &CredentialService{
		store:     store,
		hasher:    hasher,
		admin:     admin,
		validator: NewValidationHelper(),
		audit:     auditor,
		logger:    logger.With(zap.String("component", "credentials")),
	}
}

// Register creates an account holding initialBalance.
func (s *CredentialService) Register(ctx context.Context, username, password string, initialBalance decimal.Decimal) (*models.Account, error) {
	req := RegisterRequest{Username: username, Password: password, Balance: &initialBalance}
	if err := s.validator.ValidateStruct(&req); err != nil {
		return nil, err
	}
	if initialBalance.IsNegative() {
		return nil, ErrNegativeBalance
	}
	if !ValidAmount(initialBalance) {
		return nil, ErrInvalidInput.WithDetails(map[string]string{"balance": "at most two decimal places and within range"})
	}

	if _, err := s.store.AccountByUsername(ctx, username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, fmt.Errorf("check username %s: %w", username, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &models.Account{
		Username:     username,
		PasswordHash: hash,
		Balance:      initialBalance.Round(2),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("Account registered", zap.Int64("account_id", account.ID), zap.String("username", username))
	s.audit.LogOperation(ctx, audit.EventRegister, username, audit.StatusSuccess, map[string]string{
		"opening_balance": account.Balance.StringFixed(2),
	})
	return account, nil
}

// Authenticate returns the account whose stored hash matches password. Unknown
// usernames and wrong passwords fail identically.
func (s *CredentialService) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			s.logger.Info("Login failed - unknown user", zap.String("username", username))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load account %s: %w", username, err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		s.logger.Info("Login failed - wrong password", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// AuthenticateAdmin reports whether the credentials are the configured
// administrator's.
func (s *CredentialService) AuthenticateAdmin(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	return userOK && passOK
}

func (s *CredentialService) AdminUsername() string {
	return s.admin.Username
}

func (s *CredentialService) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.store.AccountByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, fmt.Sprintf("account %d", id))
	}
	return account, nil
}

func (s *CredentialService) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	account, err := s.store.AccountByUsername(ctx, username)
	if err != nil {
		return nil, lookupError(err, username)
	}
	return account, nil
}

// ListAll returns every account ordered by id.
func (s *CredentialService) ListAll(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// AdjustBalance sets username's balance outright. The account row is locked
// for the duration so the override serialises with in-flight transfers. No
// ledger entry is written.
func (s *CredentialService) AdjustBalance(ctx context.Context, actor, username string, newBalance decimal.Decimal) (*BalanceChange, error) {
	if newBalance.IsNegative() {
		return nil, ErrNegativeBalance
	}
	if !ValidAmount(newBalance) {
		return nil, ErrInvalidInput.WithDetails(map[string]string{"balance": "at most two decimal places and within range"})
	}

	var change BalanceChange
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		target, err := tx.AccountByUsername(ctx, username)
		if err != nil {
			return err
		}

		locked, err := tx.LockAccounts(ctx, target.ID)
		if err != nil {
			return err
		}
		account := locked[target.ID]

		if err := tx.UpdateBalance(ctx, account.ID, newBalance); err != nil {
			return err
		}

		change = BalanceChange{
			AccountID:  account.ID,
			Username:   account.Username,
			OldBalance: account.Balance,
			NewBalance: newBalance,
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAccountNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrNegativeBalance):
			return nil, ErrNegativeBalance
		}
		s.audit.LogError(ctx, actor, "adjust_balance", err)
		return nil, fmt.Errorf("adjust balance for %s: %w", username, err)
	}

	s.logger.Info("Balance overridden",
		zap.String("admin", actor),
		zap.String("username", username),
		zap.String("old_balance", change.OldBalance.StringFixed(2)),
		zap.String("new_balance", change.NewBalance.StringFixed(2)))
	s.audit.LogBalanceOverride(ctx, actor, username, change.OldBalance, change.NewBalance)
	return &change, nil
}

func lookupError(err error, what string) error {
	if errors.Is(err, repository.ErrAccountNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("load %s: %w", what, err)
}
