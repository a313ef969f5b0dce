// Package postgres implements the ledger.Writer interface over a
// PostgreSQL-backed receipts table.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cexlabs/hypervisor/ledger"
)

// Store records execution receipts to a Postgres table via pgx.
type Store struct {
	pool *pgxpool.Pool
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewStore dials cfg and verifies connectivity before returning.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger/postgres: ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Record inserts r into the receipts table.
func (s *Store) Record(ctx context.Context, r ledger.Receipt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO execution_receipts (session_id, commitment, quote, route, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.SessionID, r.Commitment, r.Quote, r.Route, r.RecordedAt)
	if err != nil {
		return fmt.Errorf("ledger/postgres: insert receipt: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var _ ledger.Writer = (*Store)(nil)
