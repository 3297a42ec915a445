// Package outboxrepo is the Postgres-specific implementation of the
// transactional outbox: append-within-a-transaction, lease-based
// polling with SKIP LOCKED, and the mark-published / mark-failed
// transitions the dispatcher drives.
package outboxrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/outbox"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/dbtx"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var eventColumns = []string{
	"id", "aggregate_type", "aggregate_id", "event_type", "payload",
	"created_at", "published_at", "retry_count", "max_retries", "last_error",
	"sequence_number",
}

// Repository provides the outbox's persistence operations.
type Repository interface {
	// Append must be called with an open transaction in ctx: if the
	// surrounding transaction rolls back, the row disappears with it.
	Append(ctx context.Context, e outbox.Event) error
	LeaseBatch(ctx context.Context, batchSize int) ([]outbox.Event, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	ListDeadLettered(ctx context.Context, limit int) ([]outbox.Event, error)
}

// PostgreSQLRepository is the Postgres-backed Repository.
type PostgreSQLRepository struct {
	DB *sql.DB
}

// NewPostgreSQLRepository returns a new outbox repository over db.
func NewPostgreSQLRepository(db *sql.DB) *PostgreSQLRepository {
	return &PostgreSQLRepository{DB: db}
}

// Append inserts e. sequence_number is assigned by the store via a
// monotonic sequence (ledger_entries-style), never by application code.
func (r *PostgreSQLRepository) Append(ctx context.Context, e outbox.Event) error {
	if dbtx.TxFromContext(ctx) == nil {
		return errors.New("outbox: Append requires an open transaction in ctx")
	}

	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Insert("outbox_events").
		Columns("id", "aggregate_type", "aggregate_id", "event_type", "payload", "created_at", "max_retries", "sequence_number").
		Values(e.ID, e.AggregateType, e.AggregateID, e.EventType, e.Payload, e.CreatedAt, e.MaxRetries, squirrel.Expr("nextval('outbox_events_sequence_number_seq')")).
		ToSql()
	if err != nil {
		return err
	}

	_, err = exec.ExecContext(ctx, query, args...)

	return err
}

// LeaseBatch selects up to batchSize unpublished, non-dead-lettered rows
// ordered oldest-first, using FOR UPDATE SKIP LOCKED so concurrent
// dispatcher instances never contend for the same row — each sees the
// oldest row its peers have not already locked.
func (r *PostgreSQLRepository) LeaseBatch(ctx context.Context, batchSize int) ([]outbox.Event, error) {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Select(eventColumns...).
		From("outbox_events").
		Where(squirrel.Eq{"published_at": nil}).
		Where(squirrel.Expr("retry_count < max_retries")).
		OrderBy("created_at ASC").
		Limit(uint64(batchSize)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]outbox.Event, 0, batchSize)

	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// MarkPublished sets published_at exactly once and clears last_error.
// Called in a short transaction separate from the delivery attempt, so
// broker I/O never happens while holding a store transaction open.
func (r *PostgreSQLRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Update("outbox_events").
		Set("published_at", time.Now()).
		Set("last_error", nil).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"published_at": nil}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = exec.ExecContext(ctx, query, args...)

	return err
}

// MarkFailed increments retry_count and records errMsg, leaving
// published_at null so the row is retried on the next poll (or
// classified dead-letter once retry_count reaches max_retries).
func (r *PostgreSQLRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Update("outbox_events").
		Set("retry_count", squirrel.Expr("retry_count + 1")).
		Set("last_error", errMsg).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = exec.ExecContext(ctx, query, args...)

	return err
}

// ListDeadLettered is the read-only operator visibility surface
// resolved in SPEC_FULL.md §5.2: rows that have exhausted their retry
// budget and now require manual intervention.
func (r *PostgreSQLRepository) ListDeadLettered(ctx context.Context, limit int) ([]outbox.Event, error) {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Select(eventColumns...).
		From("outbox_events").
		Where(squirrel.Eq{"published_at": nil}).
		Where(squirrel.Expr("retry_count >= max_retries")).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]outbox.Event, 0)

	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (outbox.Event, error) {
	var e outbox.Event

	err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload,
		&e.CreatedAt, &e.PublishedAt, &e.RetryCount, &e.MaxRetries, &e.LastError,
		&e.SequenceNumber)

	return e, err
}
