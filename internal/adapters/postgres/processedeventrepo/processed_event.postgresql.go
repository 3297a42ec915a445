// Package processedeventrepo is the Postgres-specific implementation of
// the per-consumer-group dedup table that makes event consumption
// idempotent.
package processedeventrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/outbox"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/dbtx"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repository provides the processed-event table's persistence
// operations. Claim and Complete are always called from within the
// same store transaction as the consumer's handler invocation.
type Repository interface {
	// Claim inserts a PROCESSING row for (eventID, consumerGroup) and
	// reports whether this call won the race. A concurrent claim for the
	// same pair hits the primary key and DOES NOT error — it simply
	// reports false, so the caller knows to skip the handler rather than
	// run it twice.
	Claim(ctx context.Context, eventID uuid.UUID, eventType, aggregateType, aggregateID, consumerGroup string) (bool, error)
	// Complete overwrites a claimed row with its final outcome.
	Complete(ctx context.Context, pe outbox.ProcessedEvent) error
}

// PostgreSQLRepository is the Postgres-backed Repository.
type PostgreSQLRepository struct {
	DB *sql.DB
}

// NewPostgreSQLRepository returns a new processed-event repository.
func NewPostgreSQLRepository(db *sql.DB) *PostgreSQLRepository {
	return &PostgreSQLRepository{DB: db}
}

// Claim attempts to insert a PROCESSING placeholder row. The
// (event_id, consumer_group) primary key is the single source of truth
// against double-processing: ON CONFLICT DO NOTHING means a losing
// concurrent claim affects zero rows instead of erroring, and the
// caller never invokes the handler for a pair it didn't win.
func (r *PostgreSQLRepository) Claim(ctx context.Context, eventID uuid.UUID, eventType, aggregateType, aggregateID, consumerGroup string) (bool, error) {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Insert("processed_events").
		Columns("event_id", "event_type", "aggregate_type", "aggregate_id", "consumer_group", "processed_at", "result").
		Values(eventID, eventType, aggregateType, aggregateID, consumerGroup, time.Now(), outbox.ResultProcessing).
		Suffix("ON CONFLICT (event_id, consumer_group) DO NOTHING").
		ToSql()
	if err != nil {
		return false, err
	}

	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// Complete overwrites the PROCESSING placeholder with the handler's
// final outcome. It is only ever called by the attempt that won Claim,
// so no concurrency control is needed here beyond the row already being
// locked by the surrounding transaction.
func (r *PostgreSQLRepository) Complete(ctx context.Context, pe outbox.ProcessedEvent) error {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Update("processed_events").
		Set("processed_at", pe.ProcessedAt).
		Set("result", pe.Result).
		Set("error_message", pe.ErrorMessage).
		Where(squirrel.Eq{"event_id": pe.EventID, "consumer_group": pe.ConsumerGroup}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = exec.ExecContext(ctx, query, args...)

	return err
}
