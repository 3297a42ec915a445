// Package query holds the read-side use cases. Reads never open a
// transaction of their own: they run against whatever executor
// GetExecutor resolves for the incoming context, same as writes.
package query

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/ledgerrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/paymentrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/ledger"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/payment"
)

// UseCase bundles the collaborators the read layer needs.
type UseCase struct {
	PaymentRepo paymentrepo.Repository
	LedgerRepo  ledgerrepo.Repository
}

// GetPayment returns a single payment by id.
func (uc *UseCase) GetPayment(ctx context.Context, id uuid.UUID) (payment.Payment, error) {
	return uc.PaymentRepo.FindByID(ctx, id)
}

// AccountBalance derives an account's current balance by replaying
// every entry ever posted against it. Balances are never stored: this
// is the only place a balance is computed, and it is safe to call as
// often as needed since ledger entries are immutable once posted.
func (uc *UseCase) AccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	account, err := uc.LedgerRepo.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	entries, err := uc.LedgerRepo.EntriesForAccount(ctx, accountID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return ledger.Balance(account.Type, entries), nil
}

// TransactionEntries returns every entry belonging to a single ledger
// transaction, in posting order.
func (uc *UseCase) TransactionEntries(ctx context.Context, transactionID uuid.UUID) ([]ledger.Entry, error) {
	return uc.LedgerRepo.EntriesForTransaction(ctx, transactionID)
}
