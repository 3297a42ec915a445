package ledger

import (
	"time"

	"github.com/google/uuid"
)

// AccountType classifies how an account's balance is derived from its
// entries. ASSET accounts increase on DEBIT; LIABILITY and EQUITY
// accounts increase on CREDIT.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
)

// IsValid reports whether t is one of the closed set of account types.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity:
		return true
	default:
		return false
	}
}

// Account is an append-only ledger participant: never deleted while
// referenced by any entry.
type Account struct {
	ID            uuid.UUID
	AccountNumber string
	Type          AccountType
	CreatedAt     time.Time
}
