package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/msdcl/payment-ledger-system-sub000/internal/apperr"
)

// ValidatePosting performs the pure, store-independent half of
// post_transaction: both sides non-empty, every amount strictly
// positive, and the sums exactly equal. It does not check that the
// referenced accounts exist — that requires the store and is left to
// the caller.
func ValidatePosting(debits, credits []PostingLine) error {
	if len(debits) == 0 || len(credits) == 0 {
		return apperr.LedgerError{
			Message: "a transaction requires at least one debit and one credit line",
			Err:     apperr.ErrUnbalanced,
		}
	}

	sumDebits := decimal.Zero
	sumCredits := decimal.Zero

	for _, d := range debits {
		if !d.Amount.IsPositive() {
			return apperr.LedgerError{
				Message: "debit amount must be strictly positive",
				Err:     apperr.ErrUnbalanced,
			}
		}

		sumDebits = sumDebits.Add(d.Amount)
	}

	for _, c := range credits {
		if !c.Amount.IsPositive() {
			return apperr.LedgerError{
				Message: "credit amount must be strictly positive",
				Err:     apperr.ErrUnbalanced,
			}
		}

		sumCredits = sumCredits.Add(c.Amount)
	}

	if !sumDebits.Equal(sumCredits) {
		return apperr.LedgerError{
			Message: "sum of debits must equal sum of credits",
			Err:     apperr.ErrUnbalanced,
		}
	}

	return nil
}
