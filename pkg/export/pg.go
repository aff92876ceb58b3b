package export

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSink persists run results into PostgreSQL: one row per bus and
// timestamp, one row per branch and timestamp, plus the worst-case
// scenarios, all keyed by run ID so repeated studies coexist.
type PGSink struct {
	pool *pgxpool.Pool
}

// NewPGSink connects a results sink to PostgreSQL and creates the result
// tables if they do not exist.
func NewPGSink(ctx context.Context, databaseURL string) (*PGSink, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGSink{pool: pool}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

// Name implements Sink.
func (s *PGSink) Name() string {
	return "postgres"
}

// Ping checks database connectivity.
func (s *PGSink) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (s *PGSink) Close() error {
	s.pool.Close()
	return nil
}
