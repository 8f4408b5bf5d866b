// Package store provides the data access layer. All queries are hand-written
// pgx against the Postgres schema in migrations/. Callers use the domain
// methods grouped per entity file rather than the pool directly.
//
// Convention: lookups return (nil, nil) when the row does not exist; errors
// are reserved for database failures.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the central data access object.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying pgxpool for callers that need pgx native
// operations (health checks, worker SKIP LOCKED claims).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// withTx runs fn inside a transaction. The transaction is committed if fn
// returns nil, rolled back otherwise.
func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on panic or fn error
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
