// Package db provides the PostgreSQL-backed storage boundary for the truth
// validator. The engine only ever reads: it fetches the current stored
// conditions per location once per run and never writes anything back.
// Repositories accept a DBTX interface satisfied by both *pgxpool.Pool and
// pgx.Tx so the same code works inside or outside a transaction.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
