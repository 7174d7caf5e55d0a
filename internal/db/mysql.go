package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// MySQLClient manages the connection to MySQL
type MySQLClient struct {
	db *sql.DB
}

// NewMySQLClient creates a new MySQL client
func NewMySQLClient(ctx context.Context, connString string) (*MySQLClient, error) {
	db, err := sql.Open("mysql", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &MySQLClient{db: db}, nil
}

// Close closes the database connection
func (c *MySQLClient) Close() error {
	return c.db.Close()
}

// GetDB returns the underlying database connection
func (c *MySQLClient) GetDB() *sql.DB {
	return c.db
}

// Source returns the relations source for tables in database schemaName.
func (c *MySQLClient) Source(schemaName string) *Source {
	return newSQLSource(c.db, mysqlDialect, schemaName)
}

// newSQLSource builds a Source over a database/sql handle.
func newSQLSource(db *sql.DB, d dialect, schemaName string) *Source {
	q := &sqlQuerier{db: db}
	var cat catalog
	switch d.name {
	case mysqlDialect.name:
		cat = &mysqlCatalog{q: q, schema: schemaName}
	default:
		cat = &sqliteCatalog{q: q}
	}
	return &Source{q: q, d: d, cat: cat, schema: schemaName}
}

// ParseDatabaseName extracts the database name from a MySQL DSN, e.g.
// "user:pass@tcp(host:3306)/shop?parseTime=true" yields "shop".
func ParseDatabaseName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("MySQL DSN names no database")
	}
	return cfg.DBName, nil
}
