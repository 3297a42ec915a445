package command

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/ledgerrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/outboxrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/paymentrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/apperr"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/payment"
)

func newSettleUseCase(t *testing.T) (*UseCase, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &UseCase{
		DB:          db,
		PaymentRepo: paymentrepo.NewPostgreSQLRepository(db),
		LedgerRepo:  ledgerrepo.NewPostgreSQLRepository(db),
		OutboxRepo:  outboxrepo.NewPostgreSQLRepository(db),
	}, mock
}

func authorizedPayment() payment.Payment {
	now := time.Now()

	return payment.Payment{
		ID:             uuid.New(),
		Amount:         decimal.RequireFromString("10.00"),
		Currency:       payment.CurrencyUSD,
		FromAccountID:  uuid.New(),
		ToAccountID:    uuid.New(),
		Status:         payment.StatusAuthorized,
		IdempotencyKey: "settle-key",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestSettle_AlreadySettled_ShortCircuits(t *testing.T) {
	uc, mock := newSettleUseCase(t)

	p := authorizedPayment()
	existingTxID := uuid.New()
	p.LedgerTransactionID = &existingTxID

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM payments").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "amount", "currency", "from_account_id", "to_account_id",
			"status", "failure_reason", "idempotency_key", "ledger_transaction_id",
			"created_at", "updated_at",
		}).AddRow(p.ID, p.Amount, p.Currency, p.FromAccountID, p.ToAccountID,
			p.Status, p.FailureReason, p.IdempotencyKey, p.LedgerTransactionID,
			p.CreatedAt, p.UpdatedAt))
	mock.ExpectCommit()

	got, err := uc.Settle(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, existingTxID, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettle_Success_PostsLedgerAndAppendsOutbox(t *testing.T) {
	uc, mock := newSettleUseCase(t)

	p := authorizedPayment()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM payments").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "amount", "currency", "from_account_id", "to_account_id",
			"status", "failure_reason", "idempotency_key", "ledger_transaction_id",
			"created_at", "updated_at",
		}).AddRow(p.ID, p.Amount, p.Currency, p.FromAccountID, p.ToAccountID,
			p.Status, p.FailureReason, p.IdempotencyKey, p.LedgerTransactionID,
			p.CreatedAt, p.UpdatedAt))

	mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))

	// Debit leg against from_account.
	mock.ExpectQuery("SELECT 1 FROM accounts").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("INSERT INTO ledger_entries").WillReturnResult(sqlmock.NewResult(1, 1))

	// Credit leg against to_account.
	mock.ExpectQuery("SELECT 1 FROM accounts").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("INSERT INTO ledger_entries").WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec("UPDATE payments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO outbox_events").WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectCommit()

	txID, err := uc.Settle(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, txID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettle_WrongStatus_Rejected(t *testing.T) {
	uc, mock := newSettleUseCase(t)

	p := authorizedPayment()
	p.Status = payment.StatusCreated

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM payments").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "amount", "currency", "from_account_id", "to_account_id",
			"status", "failure_reason", "idempotency_key", "ledger_transaction_id",
			"created_at", "updated_at",
		}).AddRow(p.ID, p.Amount, p.Currency, p.FromAccountID, p.ToAccountID,
			p.Status, p.FailureReason, p.IdempotencyKey, p.LedgerTransactionID,
			p.CreatedAt, p.UpdatedAt))
	mock.ExpectRollback()

	_, err := uc.Settle(context.Background(), p.ID)
	require.Error(t, err)

	var transErr apperr.InvalidTransitionError
	assert.ErrorAs(t, err, &transErr)
	require.NoError(t, mock.ExpectationsWereMet())
}
