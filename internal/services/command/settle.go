package command

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/msdcl/payment-ledger-system-sub000/internal/apperr"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/ledger"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/outbox"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/payment"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/dbtx"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
)

// paymentSettledEvent is the outbox payload published once a payment's
// ledger posting has committed.
type paymentSettledEvent struct {
	PaymentID           uuid.UUID `json:"payment_id"`
	LedgerTransactionID uuid.UUID `json:"ledger_transaction_id"`
	Amount              string    `json:"amount"`
	Currency            string    `json:"currency"`
	SettledAt           time.Time `json:"settled_at"`
}

// Settle moves an AUTHORIZED payment to SETTLED: it posts a single
// balanced ledger transaction (one debit against from_account, one
// matching credit against to_account) and appends a PaymentSettled
// outbox event, all inside one store transaction. Calling Settle twice
// on an already-settled payment is a no-op that returns the existing
// ledger transaction id, since settlement must be safe to retry after a
// crash between commit and caller acknowledgment.
func (uc *UseCase) Settle(ctx context.Context, paymentID uuid.UUID) (uuid.UUID, error) {
	logger := mlog.FromContext(ctx)
	tracer := mlog.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "command.settle_payment")
	defer span.End()

	var ledgerTxID uuid.UUID

	err := dbtx.RunInTransaction(ctx, uc.DB, func(ctx context.Context) error {
		p, err := uc.PaymentRepo.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}

		if p.LedgerTransactionID != nil {
			logger.Infof("payment %s already settled as ledger transaction %s, skipping", p.ID, *p.LedgerTransactionID)

			ledgerTxID = *p.LedgerTransactionID

			return nil
		}

		if p.Status != payment.StatusAuthorized {
			return apperr.InvalidTransitionError{From: string(p.Status), To: string(payment.StatusSettled)}
		}

		debits := []ledger.PostingLine{{AccountID: p.FromAccountID, Amount: p.Amount, Description: "payment " + p.ID.String()}}
		credits := []ledger.PostingLine{{AccountID: p.ToAccountID, Amount: p.Amount, Description: "payment " + p.ID.String()}}

		txID, err := uc.LedgerRepo.PostTransaction(ctx, "settlement of payment "+p.ID.String(), debits, credits)
		if err != nil {
			return err
		}

		settled, err := p.Settle(txID, time.Now())
		if err != nil {
			return err
		}

		if _, err := uc.PaymentRepo.Update(ctx, settled); err != nil {
			return err
		}

		payload, err := json.Marshal(paymentSettledEvent{
			PaymentID:           settled.ID,
			LedgerTransactionID: txID,
			Amount:              settled.Amount.String(),
			Currency:            string(settled.Currency),
			SettledAt:           settled.UpdatedAt,
		})
		if err != nil {
			return err
		}

		event, err := outbox.New("Payment", settled.ID.String(), "PaymentSettled", payload)
		if err != nil {
			return err
		}

		if err := uc.OutboxRepo.Append(ctx, event); err != nil {
			return err
		}

		ledgerTxID = txID

		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	logger.Infof("settled payment %s as ledger transaction %s", paymentID, ledgerTxID)

	return ledgerTxID, nil
}
