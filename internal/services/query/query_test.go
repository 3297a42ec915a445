package query

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/ledgerrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/paymentrepo"
)

func TestAccountBalance_SumsSignedEntries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	uc := &UseCase{
		PaymentRepo: paymentrepo.NewPostgreSQLRepository(db),
		LedgerRepo:  ledgerrepo.NewPostgreSQLRepository(db),
	}

	accountID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM accounts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_number", "type", "created_at"}).
			AddRow(accountID, "ACC-1", "ASSET", now))

	mock.ExpectQuery("SELECT (.+) FROM ledger_entries").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "transaction_id", "account_id", "amount", "entry_type", "description", "sequence_number", "created_at",
		}).
			AddRow(uuid.New(), uuid.New(), accountID, "100.00", "DEBIT", "", 1, now).
			AddRow(uuid.New(), uuid.New(), accountID, "40.00", "CREDIT", "", 2, now))

	balance, err := uc.AccountBalance(context.Background(), accountID)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("60.00").Equal(balance))
	require.NoError(t, mock.ExpectationsWereMet())
}
