package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a balance-affecting event.
type EntryKind string

const (
	KindTransfer EntryKind = "transfer"
	KindDeposit  EntryKind = "deposit"
	KindWithdraw EntryKind = "withdraw"
)

func (k EntryKind) Valid() bool {
	switch k {
	case KindTransfer, KindDeposit, KindWithdraw:
		return true
	}
	return false
}

// Direction is computed relative to the account a ledger query was made for.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// LedgerEntry is an immutable record of one balance-affecting event.
// FromAccountID is nil for credits that did not originate from another account.
type LedgerEntry struct {
	ID            int64           `json:"id" db:"id"`
	FromAccountID *int64          `json:"from_account_id" db:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id" db:"to_account_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Kind          EntryKind       `json:"type" db:"kind"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`

	// Joined on read, never written.
	FromUsername *string `json:"from_user" db:"from_username"`
	ToUsername   string  `json:"to_user" db:"to_username"`
}

// DirectionFor reports whether the entry was sent or received by accountID.
func (e LedgerEntry) DirectionFor(accountID int64) Direction {
	if e.FromAccountID != nil && *e.FromAccountID == accountID {
		return DirectionSent
	}
	return DirectionReceived
}

// AccountEntry is a ledger entry annotated with its direction for one account.
type AccountEntry struct {
	LedgerEntry
	Direction Direction `json:"direction"`
}
