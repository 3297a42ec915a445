package outboxdispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/outboxrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/rabbitmq"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/rabbitmq/mock"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/outbox"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
)

func TestDrainOnce_DeliversAndMarksPublished(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctrl := gomock.NewController(t)
	producer := mock.NewMockProducer(ctrl)

	eventID := uuid.New()
	now := time.Now()

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("SELECT (.+) FROM outbox_events").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "aggregate_type", "aggregate_id", "event_type", "payload",
			"created_at", "published_at", "retry_count", "max_retries", "last_error",
			"sequence_number",
		}).AddRow(eventID, "Payment", "agg-1", "PaymentSettled", []byte(`{}`), now, nil, 0, 5, nil, int64(1)))
	sqlMock.ExpectCommit()

	sqlMock.ExpectExec("UPDATE outbox_events").WillReturnResult(sqlmock.NewResult(0, 1))

	producer.EXPECT().
		Publish(gomock.Any(), "payments", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, msg rabbitmq.Message) error {
			require.Equal(t, eventID, msg.EventID)
			return nil
		})

	d := &Dispatcher{
		DB:         db,
		OutboxRepo: outboxrepo.NewPostgreSQLRepository(db),
		Producer:   producer,
		Exchange:   "payments",
		Logger:     &mlog.NoneLogger{},
	}

	d.drainOnce(context.Background())

	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestDrainOnce_FailureBlocksLaterEventsForSameAggregate(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctrl := gomock.NewController(t)
	producer := mock.NewMockProducer(ctrl)

	firstID, secondID := uuid.New(), uuid.New()
	now := time.Now()

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("SELECT (.+) FROM outbox_events").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "aggregate_type", "aggregate_id", "event_type", "payload",
			"created_at", "published_at", "retry_count", "max_retries", "last_error",
			"sequence_number",
		}).
			AddRow(firstID, "Payment", "agg-1", "PaymentSettled", []byte(`{}`), now, nil, 0, 5, nil, int64(1)).
			AddRow(secondID, "Payment", "agg-1", "PaymentAuthorized", []byte(`{}`), now, nil, 0, 5, nil, int64(2)))
	sqlMock.ExpectCommit()

	sqlMock.ExpectExec("UPDATE outbox_events").WillReturnResult(sqlmock.NewResult(0, 1))

	// Exactly one Publish call: the first event's failure must block the
	// dispatcher from even attempting the second, same-aggregate event
	// in this batch.
	producer.EXPECT().
		Publish(gomock.Any(), "payments", gomock.Any()).
		Times(1).
		Return(errors.New("broker unreachable"))

	d := &Dispatcher{
		DB:         db,
		OutboxRepo: outboxrepo.NewPostgreSQLRepository(db),
		Producer:   producer,
		Exchange:   "payments",
		Logger:     &mlog.NoneLogger{},
	}

	d.drainOnce(context.Background())

	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestDeliver_PublishFailure_MarksFailed(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctrl := gomock.NewController(t)
	producer := mock.NewMockProducer(ctrl)
	producer.EXPECT().
		Publish(gomock.Any(), "payments", gomock.Any()).
		Return(errors.New("broker unreachable"))

	sqlMock.ExpectExec("UPDATE outbox_events").WillReturnResult(sqlmock.NewResult(0, 1))

	d := &Dispatcher{
		DB:         db,
		OutboxRepo: outboxrepo.NewPostgreSQLRepository(db),
		Producer:   producer,
		Exchange:   "payments",
		Logger:     &mlog.NoneLogger{},
	}

	event, err := outbox.New("Payment", "agg-1", "PaymentSettled", []byte(`{}`))
	require.NoError(t, err)

	d.deliver(context.Background(), event)

	require.NoError(t, sqlMock.ExpectationsWereMet())
}
