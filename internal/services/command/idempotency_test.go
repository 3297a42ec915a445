package command

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/paymentrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/payment"
)

// fakeCache is a hand-rolled stand-in for idempotency.Cache: small
// enough that a generated mock would add nothing a plain struct can't.
type fakeCache struct {
	getValue string
	getErr   error
	setErr   error
	sets     map[string]string
}

func (f *fakeCache) Get(ctx context.Context, dedupKey string) (string, error) {
	return f.getValue, f.getErr
}

func (f *fakeCache) Set(ctx context.Context, dedupKey, paymentID string, ttl time.Duration) error {
	if f.sets == nil {
		f.sets = map[string]string{}
	}

	f.sets[dedupKey] = paymentID

	return f.setErr
}

func newCommandUseCase(t *testing.T) (*UseCase, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &UseCase{
		DB:          db,
		PaymentRepo: paymentrepo.NewPostgreSQLRepository(db),
	}, mock
}

func TestResolve_CacheHit_SkipsStore(t *testing.T) {
	uc, mock := newCommandUseCase(t)

	paymentID := uuid.New()
	uc.IdempotencyCache = &fakeCache{getValue: paymentID.String()}

	id, found, err := uc.Resolve(context.Background(), "dedup-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, paymentID, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_CacheMiss_FallsThroughToStoreAndRemembers(t *testing.T) {
	uc, mock := newCommandUseCase(t)

	cache := &fakeCache{getErr: goredis.Nil}
	uc.IdempotencyCache = cache

	paymentID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM payments").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "amount", "currency", "from_account_id", "to_account_id",
			"status", "failure_reason", "idempotency_key", "ledger_transaction_id",
			"created_at", "updated_at",
		}).AddRow(paymentID, "10.00", payment.CurrencyUSD, uuid.New(), uuid.New(),
			payment.StatusCreated, nil, "dedup-1", nil, now, now))

	id, found, err := uc.Resolve(context.Background(), "dedup-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, paymentID, id)
	require.Equal(t, paymentID.String(), cache.sets["dedup-1"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_CacheError_FallsThroughToStore(t *testing.T) {
	uc, mock := newCommandUseCase(t)

	uc.IdempotencyCache = &fakeCache{getErr: errors.New("connection reset")}

	mock.ExpectQuery("SELECT (.+) FROM payments").
		WillReturnError(sql.ErrNoRows)

	_, found, err := uc.Resolve(context.Background(), "dedup-1")
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_NotFoundAnywhere(t *testing.T) {
	uc, mock := newCommandUseCase(t)

	mock.ExpectQuery("SELECT (.+) FROM payments").
		WillReturnError(sql.ErrNoRows)

	id, found, err := uc.Resolve(context.Background(), "dedup-1")
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_NoCacheConfigured_GoesStraightToStore(t *testing.T) {
	uc, mock := newCommandUseCase(t)

	paymentID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM payments").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "amount", "currency", "from_account_id", "to_account_id",
			"status", "failure_reason", "idempotency_key", "ledger_transaction_id",
			"created_at", "updated_at",
		}).AddRow(paymentID, "10.00", payment.CurrencyUSD, uuid.New(), uuid.New(),
			payment.StatusCreated, nil, "dedup-1", nil, now, now))

	id, found, err := uc.Resolve(context.Background(), "dedup-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, paymentID, id)
	require.NoError(t, mock.ExpectationsWereMet())
}
