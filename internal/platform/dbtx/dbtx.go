// Package dbtx provides the scoped-transaction combinator used by every
// write path in the service: RunInTransaction opens a *sql.Tx, hands it
// to the closure via context, and commits or rolls back depending on
// whether the closure returns an error (or panics). Repositories pull
// their executor out of the context with GetExecutor so the same
// repository method works whether or not it is running inside a
// surrounding business transaction.
package dbtx

import (
	"context"
	"database/sql"
)

type txKey struct{}

// Executor is satisfied by both *sql.DB and *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ContextWithTx attaches an open transaction to ctx.
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction attached to ctx, or nil if none
// is open.
func TxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// GetExecutor returns the transaction in ctx if one is open, otherwise
// falls back to db. Repository code should always query through the
// value this returns rather than db directly, so it transparently joins
// whatever transaction its caller opened.
func GetExecutor(ctx context.Context, db Executor) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}

	return db
}

// RunInTransaction opens a transaction on db, attaches it to ctx, and
// invokes fn. fn's error determines the outcome: nil commits, non-nil
// rolls back and is returned unchanged. A panic inside fn is recovered
// only long enough to roll back, then re-panicked with the same value:
// it is never turned into an error, since a panic means the caller's
// invariants cannot be trusted.
func RunInTransaction(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	ctx = ContextWithTx(ctx, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(ctx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return nil
}
