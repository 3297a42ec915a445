// Package payment models the payment aggregate as an immutable record
// plus pure transition functions, per the "immutable payment with
// state-transition methods" design note: no method here mutates a
// Payment or touches the store. Status is a closed sum type; illegal
// transitions are denied by an explicit table, not by subclassing.
package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/msdcl/payment-ledger-system-sub000/internal/apperr"
)

// Currency is a closed, boundary-validated 3-letter code rather than a
// free-form string threaded down to the database.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyBRL Currency = "BRL"
	CurrencyJPY Currency = "JPY"
)

var validCurrencies = map[Currency]bool{
	CurrencyUSD: true,
	CurrencyEUR: true,
	CurrencyGBP: true,
	CurrencyBRL: true,
	CurrencyJPY: true,
}

// IsValid reports whether c is a recognized currency code.
func (c Currency) IsValid() bool {
	return validCurrencies[c]
}

// Status is the closed set of payment lifecycle states.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusAuthorized Status = "AUTHORIZED"
	StatusSettled    Status = "SETTLED"
	StatusFailed     Status = "FAILED"
)

// IsTerminal reports whether s admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusSettled || s == StatusFailed
}

// allowedEdges is the complete transition table. Any edge not listed
// here, including self-transitions, is rejected.
var allowedEdges = map[Status]map[Status]bool{
	StatusCreated:    {StatusAuthorized: true, StatusFailed: true},
	StatusAuthorized: {StatusSettled: true, StatusFailed: true},
}

// Payment is an immutable snapshot of the payment aggregate.
type Payment struct {
	ID                  uuid.UUID
	Amount              decimal.Decimal
	Currency            Currency
	FromAccountID       uuid.UUID
	ToAccountID         uuid.UUID
	Status              Status
	FailureReason       *string
	IdempotencyKey      string
	LedgerTransactionID *uuid.UUID
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// New validates and constructs a brand-new CREATED payment. It does not
// check for idempotency-key collisions; that is the store's job via its
// unique constraint (see the idempotency resolver).
func New(id uuid.UUID, amount decimal.Decimal, currency Currency, from, to uuid.UUID, idempotencyKey string, now time.Time) (Payment, error) {
	if !amount.IsPositive() {
		return Payment{}, apperr.ValidationError{EntityType: "Payment", Field: "amount", Message: "amount must be greater than zero"}
	}

	if !currency.IsValid() {
		return Payment{}, apperr.ValidationError{EntityType: "Payment", Field: "currency", Message: "unrecognized currency code"}
	}

	if from == to {
		return Payment{}, apperr.ValidationError{EntityType: "Payment", Field: "to_account_id", Message: "from_account_id and to_account_id must differ"}
	}

	if idempotencyKey == "" {
		return Payment{}, apperr.ErrMissingDedupKey
	}

	return Payment{
		ID:             id,
		Amount:         amount,
		Currency:       currency,
		FromAccountID:  from,
		ToAccountID:    to,
		Status:         StatusCreated,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// transition returns a new Payment with status set to `to`, or
// InvalidTransitionError if the edge from p.Status to `to` is not in
// allowedEdges. p itself is left untouched.
func (p Payment) transition(to Status, now time.Time) (Payment, error) {
	if !allowedEdges[p.Status][to] {
		return Payment{}, apperr.InvalidTransitionError{From: string(p.Status), To: string(to)}
	}

	next := p
	next.Status = to
	next.UpdatedAt = now

	return next, nil
}

// Authorize moves a CREATED payment to AUTHORIZED.
func (p Payment) Authorize(now time.Time) (Payment, error) {
	return p.transition(StatusAuthorized, now)
}

// Fail moves a CREATED or AUTHORIZED payment to FAILED, recording why.
func (p Payment) Fail(reason string, now time.Time) (Payment, error) {
	next, err := p.transition(StatusFailed, now)
	if err != nil {
		return Payment{}, err
	}

	next.FailureReason = &reason

	return next, nil
}

// Settle moves an AUTHORIZED payment to SETTLED and attaches the ledger
// transaction id that funded it. Callers (the settlement coordinator)
// are responsible for actually posting the ledger entries; this is the
// pure state-shape half of that operation.
func (p Payment) Settle(ledgerTransactionID uuid.UUID, now time.Time) (Payment, error) {
	next, err := p.transition(StatusSettled, now)
	if err != nil {
		return Payment{}, err
	}

	next.LedgerTransactionID = &ledgerTransactionID

	return next, nil
}
