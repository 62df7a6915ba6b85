package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a named balance holder. Accounts are never deleted.
type Account struct {
	ID           int64           `json:"id" db:"id"`
	Username     string          `json:"username" db:"username"`
	PasswordHash string          `json:"-" db:"password_hash"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Role distinguishes ordinary holders from the configured administrator.
type Role string

const (
	RoleHolder Role = "holder"
	RoleAdmin  Role = "admin"
)

// AdminSubjectID is the subject id carried by administrator tokens. It never
// matches an account row.
const AdminSubjectID int64 = 0

// Principal is the authenticated identity behind a request: either
// Holder(AccountID) or Admin.
type Principal struct {
	SubjectID   int64
	SubjectName string
	Role        Role
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

func HolderPrincipal(account *Account) Principal {
	return Principal{SubjectID: account.ID, SubjectName: account.Username, Role: RoleHolder}
}

func AdminPrincipal(username string) Principal {
	return Principal{SubjectID: AdminSubjectID, SubjectName: username, Role: RoleAdmin}
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// AccountID returns the holder's account id; ok is false for the administrator.
func (p Principal) AccountID() (id int64, ok bool) {
	if p.Role != RoleHolder {
		return 0, false
	}
	return p.SubjectID, true
}
