// Package paymentrepo is the Postgres-specific implementation of the
// payment aggregate's persistence.
package paymentrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/msdcl/payment-ledger-system-sub000/internal/apperr"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/payment"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/dbtx"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const uniqueViolation = "23505"

// Repository provides the payment aggregate's persistence operations.
type Repository interface {
	Create(ctx context.Context, p payment.Payment) (payment.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (payment.Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (payment.Payment, error)
	Update(ctx context.Context, p payment.Payment) (payment.Payment, error)
}

// PostgreSQLRepository is the Postgres-backed Repository.
type PostgreSQLRepository struct {
	DB *sql.DB
}

// NewPostgreSQLRepository returns a new payment repository over db.
func NewPostgreSQLRepository(db *sql.DB) *PostgreSQLRepository {
	return &PostgreSQLRepository{DB: db}
}

var paymentColumns = []string{
	"id", "amount", "currency", "from_account_id", "to_account_id",
	"status", "failure_reason", "idempotency_key", "ledger_transaction_id",
	"created_at", "updated_at",
}

// Create inserts a new CREATED payment row. If the idempotency_key
// unique constraint fires — the loser of a concurrent admission race —
// it returns a ConflictError wrapping ErrDuplicateDedupKey so the caller
// can re-resolve and return the winner's record instead of failing the
// request.
func (r *PostgreSQLRepository) Create(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Insert("payments").
		Columns(paymentColumns...).
		Values(p.ID, p.Amount, p.Currency, p.FromAccountID, p.ToAccountID, p.Status, p.FailureReason, p.IdempotencyKey, p.LedgerTransactionID, p.CreatedAt, p.UpdatedAt).
		ToSql()
	if err != nil {
		return payment.Payment{}, err
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		var pgErr *pgconn.PgError
		if (errors.As(err, &pqErr) && pqErr.Code == uniqueViolation) || (errors.As(err, &pgErr) && pgErr.Code == uniqueViolation) {
			return payment.Payment{}, apperr.ConflictError{Message: "idempotency key already in use", Err: apperr.ErrDuplicateDedupKey}
		}

		return payment.Payment{}, err
	}

	return p, nil
}

// FindByID fetches a payment by primary key.
func (r *PostgreSQLRepository) FindByID(ctx context.Context, id uuid.UUID) (payment.Payment, error) {
	return r.findBy(ctx, squirrel.Eq{"id": id}, id.String())
}

// FindByIdempotencyKey fetches a payment by its dedup key. This is the
// authoritative fallback the idempotency resolver calls on a cache miss.
func (r *PostgreSQLRepository) FindByIdempotencyKey(ctx context.Context, key string) (payment.Payment, error) {
	return r.findBy(ctx, squirrel.Eq{"idempotency_key": key}, key)
}

func (r *PostgreSQLRepository) findBy(ctx context.Context, pred squirrel.Eq, ref string) (payment.Payment, error) {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Select(paymentColumns...).From("payments").Where(pred).ToSql()
	if err != nil {
		return payment.Payment{}, err
	}

	p, err := scanOne(exec.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Payment{}, apperr.NotFoundError{EntityType: "Payment", ID: ref}
	}

	return p, err
}

// Update persists a transitioned payment (status and, if settled,
// ledger_transaction_id). It must be called from within the same store
// transaction as any accompanying ledger posting.
func (r *PostgreSQLRepository) Update(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Update("payments").
		Set("status", p.Status).
		Set("failure_reason", p.FailureReason).
		Set("ledger_transaction_id", p.LedgerTransactionID).
		Set("updated_at", p.UpdatedAt).
		Where(squirrel.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return payment.Payment{}, err
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		var pgErr *pgconn.PgError
		if (errors.As(err, &pqErr) && pqErr.Code == uniqueViolation) || (errors.As(err, &pgErr) && pgErr.Code == uniqueViolation) {
			return payment.Payment{}, apperr.ConflictError{Message: "ledger transaction already bound to another payment", Err: apperr.ErrAlreadySettled}
		}

		return payment.Payment{}, err
	}

	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (payment.Payment, error) {
	var p payment.Payment

	err := row.Scan(&p.ID, &p.Amount, &p.Currency, &p.FromAccountID, &p.ToAccountID,
		&p.Status, &p.FailureReason, &p.IdempotencyKey, &p.LedgerTransactionID,
		&p.CreatedAt, &p.UpdatedAt)

	return p, err
}
