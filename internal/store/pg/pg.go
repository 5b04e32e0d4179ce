// Package pg implements the auth repositories over PostgreSQL using pgxpool
// and raw SQL.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beanfolio/roastery/internal/domain/repository"
)

// Store bundles the pg-backed repositories over one pool.
type Store struct {
	pool *pgxpool.Pool

	Users    *userRepo
	Accounts *linkedAccountRepo
	Tokens   *tokenRepo
	Flows    *flowStateStore
	Audit    *auditLog
}

// New connects the pool and wires the repositories.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{
		pool:     pool,
		Users:    &userRepo{pool: pool},
		Accounts: &linkedAccountRepo{pool: pool},
		Tokens:   &tokenRepo{pool: pool},
		Flows:    &flowStateStore{pool: pool},
		Audit:    &auditLog{pool: pool},
	}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks connectivity, for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// mapErr translates driver errors into repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// nullIfEmpty returns nil for empty strings so optional columns store NULL.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
