package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresClient manages the connection pool to PostgreSQL. A pool rather
// than a single connection lets constraint checks run concurrently.
type PostgresClient struct {
	pool *pgxpool.Pool
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{pool: pool}, nil
}

// Close closes the connection pool
func (c *PostgresClient) Close() {
	c.pool.Close()
}

// GetPool returns the underlying connection pool
func (c *PostgresClient) GetPool() *pgxpool.Pool {
	return c.pool
}

// Source returns the relations source for tables in schemaName.
func (c *PostgresClient) Source(schemaName string) *Source {
	if schemaName == "" {
		schemaName = "public"
	}
	q := &pgxQuerier{pool: c.pool}
	return &Source{
		q:      q,
		d:      postgresDialect,
		cat:    &postgresCatalog{q: q, schema: schemaName},
		schema: schemaName,
	}
}
