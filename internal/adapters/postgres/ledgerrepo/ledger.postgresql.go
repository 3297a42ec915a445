// Package ledgerrepo is the Postgres-specific implementation of the
// ledger engine's persistence: accounts, transactions, and entries.
package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/msdcl/payment-ledger-system-sub000/internal/apperr"
	"github.com/msdcl/payment-ledger-system-sub000/internal/domain/ledger"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/dbtx"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repository provides the ledger engine's persistence operations.
type Repository interface {
	AccountExists(ctx context.Context, id uuid.UUID) (bool, error)
	GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	PostTransaction(ctx context.Context, description string, debits, credits []ledger.PostingLine) (uuid.UUID, error)
	EntriesForAccount(ctx context.Context, accountID uuid.UUID) ([]ledger.Entry, error)
	EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]ledger.Entry, error)
}

// PostgreSQLRepository is the Postgres-backed Repository.
type PostgreSQLRepository struct {
	DB *sql.DB
}

// NewPostgreSQLRepository returns a new ledger repository over db.
func NewPostgreSQLRepository(db *sql.DB) *PostgreSQLRepository {
	return &PostgreSQLRepository{DB: db}
}

// AccountExists reports whether an account row with id exists.
// PostTransaction calls it for every posting line inside its write
// transaction and fails with UnknownAccount when it returns false.
func (r *PostgreSQLRepository) AccountExists(ctx context.Context, id uuid.UUID) (bool, error) {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Select("1").From("accounts").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return false, err
	}

	var dummy int

	err = exec.QueryRowContext(ctx, query, args...).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// GetAccount fetches a single account by id.
func (r *PostgreSQLRepository) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Select("id", "account_number", "type", "created_at").
		From("accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return ledger.Account{}, err
	}

	var a ledger.Account

	err = exec.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.AccountNumber, &a.Type, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, apperr.NotFoundError{EntityType: "Account", ID: id.String()}
	}

	if err != nil {
		return ledger.Account{}, err
	}

	return a, nil
}

// PostTransaction performs the store half of post_transaction: it
// pre-validates with ledger.ValidatePosting, then inserts the
// transaction row and every entry row. A deferred constraint on
// ledger_entries re-checks the balance at commit time; if the caller's
// surrounding transaction commits, that check has already passed.
//
// PostTransaction must be called with a transaction already open in ctx
// (see dbtx.RunInTransaction) whenever it is part of a larger business
// operation such as settlement; called standalone it opens its own.
func (r *PostgreSQLRepository) PostTransaction(ctx context.Context, description string, debits, credits []ledger.PostingLine) (uuid.UUID, error) {
	if err := ledger.ValidatePosting(debits, credits); err != nil {
		return uuid.Nil, err
	}

	if dbtx.TxFromContext(ctx) == nil {
		var txID uuid.UUID

		err := dbtx.RunInTransaction(ctx, r.DB, func(ctx context.Context) error {
			var err error
			txID, err = r.postWithinTx(ctx, description, debits, credits)
			return err
		})

		return txID, err
	}

	return r.postWithinTx(ctx, description, debits, credits)
}

func (r *PostgreSQLRepository) postWithinTx(ctx context.Context, description string, debits, credits []ledger.PostingLine) (uuid.UUID, error) {
	exec := dbtx.GetExecutor(ctx, r.DB)

	txID := uuid.New()
	now := time.Now()

	insertTx, args, err := psql.Insert("transactions").
		Columns("id", "description", "created_at").
		Values(txID, description, now).
		ToSql()
	if err != nil {
		return uuid.Nil, err
	}

	if _, err := exec.ExecContext(ctx, insertTx, args...); err != nil {
		return uuid.Nil, wrapConstraintErr(err)
	}

	if err := r.insertEntries(ctx, exec, txID, ledger.EntryTypeDebit, debits); err != nil {
		return uuid.Nil, err
	}

	if err := r.insertEntries(ctx, exec, txID, ledger.EntryTypeCredit, credits); err != nil {
		return uuid.Nil, err
	}

	return txID, nil
}

func (r *PostgreSQLRepository) insertEntries(ctx context.Context, exec dbtx.Executor, txID uuid.UUID, entryType ledger.EntryType, lines []ledger.PostingLine) error {
	for _, line := range lines {
		exists, err := r.AccountExists(ctx, line.AccountID)
		if err != nil {
			return err
		}

		if !exists {
			return apperr.LedgerError{Message: "unknown account " + line.AccountID.String(), Err: apperr.ErrUnknownAccount}
		}

		insert, args, err := psql.Insert("ledger_entries").
			Columns("id", "transaction_id", "account_id", "amount", "entry_type", "description", "sequence_number", "created_at").
			Values(uuid.New(), txID, line.AccountID, line.Amount, entryType, line.Description, squirrel.Expr("nextval('ledger_entries_sequence_number_seq')"), time.Now()).
			ToSql()
		if err != nil {
			return err
		}

		if _, err := exec.ExecContext(ctx, insert, args...); err != nil {
			return wrapConstraintErr(err)
		}
	}

	return nil
}

// wrapConstraintErr maps a check_violation (SQLSTATE 23514) returned by
// an insert statement to LedgerConstraintViolation; every other error is
// returned unchanged. It is applied to statement errors only: the
// deferred balance trigger fires at COMMIT, and that commit error is
// returned unmapped by the RunInTransaction call that commits.
func wrapConstraintErr(err error) error {
	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	if (errors.As(err, &pqErr) && pqErr.Code == "23514") || (errors.As(err, &pgErr) && pgErr.Code == "23514") {
		return apperr.LedgerError{Message: "ledger balance constraint violated", Err: apperr.ErrLedgerConstraintViolation}
	}

	return err
}

// EntriesForAccount returns every entry posted against accountID, in
// insertion order, used to derive its balance.
func (r *PostgreSQLRepository) EntriesForAccount(ctx context.Context, accountID uuid.UUID) ([]ledger.Entry, error) {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Select("id", "transaction_id", "account_id", "amount", "entry_type", "description", "sequence_number", "created_at").
		From("ledger_entries").
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("sequence_number ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// EntriesForTransaction returns every entry belonging to transactionID.
func (r *PostgreSQLRepository) EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]ledger.Entry, error) {
	exec := dbtx.GetExecutor(ctx, r.DB)

	query, args, err := psql.Select("id", "transaction_id", "account_id", "amount", "entry_type", "description", "sequence_number", "created_at").
		From("ledger_entries").
		Where(squirrel.Eq{"transaction_id": transactionID}).
		OrderBy("sequence_number ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]ledger.Entry, error) {
	entries := make([]ledger.Entry, 0)

	for rows.Next() {
		var e ledger.Entry

		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.Amount, &e.Type, &e.Description, &e.SequenceNumber, &e.CreatedAt); err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
