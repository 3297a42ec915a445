package command

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/msdcl/payment-ledger-system-sub000/internal/apperr"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/payment"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
)

// AdmitPaymentInput is the validated shape the HTTP layer hands to
// AdmitPayment.
type AdmitPaymentInput struct {
	Amount      decimal.Decimal
	Currency    payment.Currency
	FromAccount uuid.UUID
	ToAccount   uuid.UUID
	DedupKey    string
}

// AdmitPaymentResult tells the caller whether this admission created a
// new payment (so the HTTP layer can answer 201) or recognized a
// duplicate (so it can answer 200 with the identical representation).
type AdmitPaymentResult struct {
	Payment payment.Payment
	Created bool
}

// AdmitPayment resolves idempotency, then creates the payment if it is
// genuinely new. Two concurrent admissions racing past a cache-and-store
// miss both attempt the insert; the loser's unique-violation is caught
// and turned into a re-resolve, so both callers end up returning the
// same payment id — one with Created=true, one with Created=false.
func (uc *UseCase) AdmitPayment(ctx context.Context, in AdmitPaymentInput) (AdmitPaymentResult, error) {
	logger := mlog.FromContext(ctx)
	tracer := mlog.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "command.admit_payment")
	defer span.End()

	if in.DedupKey == "" {
		return AdmitPaymentResult{}, apperr.ErrMissingDedupKey
	}

	if id, found, err := uc.Resolve(ctx, in.DedupKey); err != nil {
		return AdmitPaymentResult{}, err
	} else if found {
		p, err := uc.PaymentRepo.FindByID(ctx, id)
		if err != nil {
			return AdmitPaymentResult{}, err
		}

		return AdmitPaymentResult{Payment: p, Created: false}, nil
	}

	now := time.Now()

	p, err := payment.New(uuid.New(), in.Amount, in.Currency, in.FromAccount, in.ToAccount, in.DedupKey, now)
	if err != nil {
		return AdmitPaymentResult{}, err
	}

	created, err := uc.PaymentRepo.Create(ctx, p)
	if err != nil {
		var conflict apperr.ConflictError
		if errors.As(err, &conflict) {
			logger.Infof("lost admission race for dedup key %s, re-resolving", in.DedupKey)

			winner, findErr := uc.PaymentRepo.FindByIdempotencyKey(ctx, in.DedupKey)
			if findErr != nil {
				return AdmitPaymentResult{}, findErr
			}

			return AdmitPaymentResult{Payment: winner, Created: false}, nil
		}

		return AdmitPaymentResult{}, err
	}

	uc.remember(ctx, in.DedupKey, created.ID)

	logger.Infof("admitted new payment %s for dedup key %s", created.ID, in.DedupKey)

	return AdmitPaymentResult{Payment: created, Created: true}, nil
}

// AuthorizePayment moves a CREATED payment to AUTHORIZED. This is a
// prerequisite most deployments call automatically after fraud/risk
// checks run (out of scope here); it is exposed so the settlement
// coordinator has an AUTHORIZED payment to act on.
func (uc *UseCase) AuthorizePayment(ctx context.Context, id uuid.UUID) (payment.Payment, error) {
	p, err := uc.PaymentRepo.FindByID(ctx, id)
	if err != nil {
		return payment.Payment{}, err
	}

	next, err := p.Authorize(time.Now())
	if err != nil {
		return payment.Payment{}, err
	}

	return uc.PaymentRepo.Update(ctx, next)
}
