package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "db_tx"

// WithTx stores a transaction in the context so repositories resolve it
// instead of the pool.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// TxFromContext retrieves the transaction from context, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}

// RunSerializable executes fn inside a SERIALIZABLE transaction injected
// into the context. Check-then-act sequences (conflict detection followed by
// a write) depend on this isolation level: without it two concurrent callers
// can both pass the conflict check before either commits.
func RunSerializable(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	return run(ctx, pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
}

// RunTx executes fn inside a transaction at the default isolation level.
func RunTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	return run(ctx, pool, pgx.TxOptions{}, fn)
}

func run(ctx context.Context, pool *pgxpool.Pool, opts pgx.TxOptions, fn func(ctx context.Context) error) error {
	// Nested calls join the enclosing transaction.
	if tx := TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
