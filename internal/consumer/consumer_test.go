package consumer

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/processedeventrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/rabbitmq"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
)

// fakeConsumer hands back a fresh, immediately-closed channel on every
// call, counting how many times it was asked to (re)subscribe.
type fakeConsumer struct {
	calls int32
}

func (f *fakeConsumer) Consume(ctx context.Context, queue string) (<-chan rabbitmq.Delivery, error) {
	atomic.AddInt32(&f.calls, 1)

	out := make(chan rabbitmq.Delivery)
	close(out)

	return out, nil
}

func TestProcess_LostClaim_SkipsHandler(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO processed_events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	called := false

	d := &Driver{
		DB:                 db,
		ProcessedEventRepo: processedeventrepo.NewPostgreSQLRepository(db),
		ConsumerGroup:      "ledger-projector",
		Handler:            func(ctx context.Context, msg rabbitmq.Message) error { called = true; return nil },
		Logger:             &mlog.NoneLogger{},
	}

	processed, err := d.process(context.Background(), rabbitmq.Message{EventID: uuid.New()})
	require.NoError(t, err)
	require.False(t, processed)
	require.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcess_WonClaim_HandlerFailure_RecordsFailedRowAndSwallowsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO processed_events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE processed_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	d := &Driver{
		DB:                 db,
		ProcessedEventRepo: processedeventrepo.NewPostgreSQLRepository(db),
		ConsumerGroup:      "ledger-projector",
		Handler:            func(ctx context.Context, msg rabbitmq.Message) error { return errors.New("boom") },
		Logger:             &mlog.NoneLogger{},
	}

	processed, err := d.process(context.Background(), rabbitmq.Message{EventID: uuid.New(), EventType: "PaymentSettled", AggregateType: "Payment", AggregateID: "agg-1"})
	require.NoError(t, err)
	require.True(t, processed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcess_ConcurrentClaim_OnlyWinnerRunsHandler(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	eventID := uuid.New()

	// First delivery wins the claim and runs the handler.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO processed_events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE processed_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// A concurrent redelivery of the same pair loses the claim and never
	// runs the handler at all.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO processed_events").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var handlerCalls int

	d := &Driver{
		DB:                 db,
		ProcessedEventRepo: processedeventrepo.NewPostgreSQLRepository(db),
		ConsumerGroup:      "ledger-projector",
		Handler:            func(ctx context.Context, msg rabbitmq.Message) error { handlerCalls++; return nil },
		Logger:             &mlog.NoneLogger{},
	}

	msg := rabbitmq.Message{EventID: eventID, EventType: "PaymentSettled", AggregateType: "Payment", AggregateID: "agg-1"}

	firstProcessed, err := d.process(context.Background(), msg)
	require.NoError(t, err)
	require.True(t, firstProcessed)

	secondProcessed, err := d.process(context.Background(), msg)
	require.NoError(t, err)
	require.False(t, secondProcessed)

	require.Equal(t, 1, handlerCalls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_ResubscribesAfterChannelCloses(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	consumer := &fakeConsumer{}

	d := &Driver{
		DB:                 db,
		ProcessedEventRepo: processedeventrepo.NewPostgreSQLRepository(db),
		Consumer:           consumer,
		ConsumerGroup:      "ledger-projector",
		Queue:              "payments.ledger-projector",
		Handler:            func(ctx context.Context, msg rabbitmq.Message) error { return nil },
		Logger:             &mlog.NoneLogger{},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = d.Run(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, atomic.LoadInt32(&consumer.calls), int32(2))
}
