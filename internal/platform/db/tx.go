package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const (
	// TenantIDKey carries the resolved tenant identifier.
	TenantIDKey contextKey = "tenant_id"
	// DBConnKey carries the tenant-scoped pooled connection for the request.
	DBConnKey contextKey = "db_conn"
	// TxKey carries an open transaction; repositories prefer it over the pool.
	TxKey contextKey = "db_tx"
)

// ConnFromContext retrieves the tenant-scoped connection, if any.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// TxFromContext retrieves the open transaction, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(TxKey).(pgx.Tx)
	return tx
}

// ContextWithTx returns a child context carrying tx.
func ContextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, TxKey, tx)
}

// TenantFromContext retrieves the tenant ID, if any.
func TenantFromContext(ctx context.Context) string {
	tid, _ := ctx.Value(TenantIDKey).(string)
	return tid
}

// TxRunner groups multiple repository writes into one transaction. The
// callback receives a context carrying the transaction; every repository
// call made with it joins the same transaction. A non-nil error from the
// callback rolls everything back.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// RunnerFromPool builds a TxRunner over the tenant-scoped connection when the
// request carries one, and the shared pool otherwise. Nested calls join the
// transaction already in the context instead of opening a second one.
func RunnerFromPool(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		if tx := TxFromContext(ctx); tx != nil {
			return fn(ctx)
		}

		var (
			tx  pgx.Tx
			err error
		)
		if conn := ConnFromContext(ctx); conn != nil {
			tx, err = conn.Begin(ctx)
		} else {
			tx, err = pool.Begin(ctx)
		}
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(ContextWithTx(ctx, tx)); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}
}

// PassthroughRunner executes the callback without a real transaction. For
// tests with in-memory repositories.
func PassthroughRunner() TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
}
