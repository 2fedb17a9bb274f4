// Package postgres implements the domain repositories on PostgreSQL.
package postgres

import (
	"context"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/cart-coupons/db"
)

const (
	// foreignKeyViolation is the SQLSTATE for a missing referenced row.
	foreignKeyViolation = "23503"

	// migrationLockID keys the advisory lock held while the schema is applied,
	// so replicas starting together do not run the DDL concurrently.
	migrationLockID int64 = 0x6b617274
)

// PoolOption tunes the pool configuration before the pool is created.
type PoolOption func(cfg *pgxpool.Config)

// WithMaxConns caps the number of open connections.
func WithMaxConns(n int32) PoolOption {
	return func(cfg *pgxpool.Config) { cfg.MaxConns = n }
}

// NewPool connects to databaseURL with NUMERIC columns mapped to
// shopspring decimals. The pool is pinged once so an unreachable server fails
// here rather than on the first query.
func NewPool(ctx context.Context, databaseURL string, opts ...PoolOption) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database url")
	}
	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	for _, o := range opts {
		o(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return pool, nil
}

// RunMigrations applies the embedded schema in one transaction under an
// advisory lock. The schema is idempotent, so repeated runs are no-ops.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
			return errors.Wrap(err, "acquire migration lock")
		}
		if _, err := tx.Exec(ctx, db.Schema); err != nil {
			return errors.Wrap(err, "apply schema")
		}
		return nil
	})
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
