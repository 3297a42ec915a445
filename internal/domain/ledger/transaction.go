package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType distinguishes the two sides of a balanced transaction.
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// Transaction is a logical group of balanced ledger entries.
type Transaction struct {
	ID          uuid.UUID
	Description string
	CreatedAt   time.Time
}

// Entry is a single append-only ledger row. Amount is always positive;
// sign/direction is carried by Type, never by the sign of Amount.
type Entry struct {
	ID             uuid.UUID
	TransactionID  uuid.UUID
	AccountID      uuid.UUID
	Amount         decimal.Decimal
	Type           EntryType
	Description    string
	SequenceNumber int64
	CreatedAt      time.Time
}

// PostingLine is the caller-supplied half of a transaction: one account,
// one positive amount, one description. PostTransaction pairs a slice of
// debit lines with a slice of credit lines.
type PostingLine struct {
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// SignedAmount returns the entry's amount with the sign it contributes
// to the given account type's balance: ASSET accounts move with DEBIT
// (+) and against CREDIT (-); LIABILITY and EQUITY accounts are the
// mirror image.
func (e Entry) SignedAmount(accountType AccountType) decimal.Decimal {
	positive := e.Type == EntryTypeDebit
	if accountType == AccountTypeLiability || accountType == AccountTypeEquity {
		positive = !positive
	}

	if positive {
		return e.Amount
	}

	return e.Amount.Neg()
}

// Balance sums the signed amounts of entries for a single account,
// given that account's type. The result is always derived, never
// stored, so replaying the same entries always yields the same value.
func Balance(accountType AccountType, entries []Entry) decimal.Decimal {
	total := decimal.Zero

	for _, e := range entries {
		total = total.Add(e.SignedAmount(accountType))
	}

	return total
}
