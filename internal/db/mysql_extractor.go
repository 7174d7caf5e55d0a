package db

import (
	"context"
	"database/sql"
)

// mysqlCatalog reads tables and keys of one MySQL database
type mysqlCatalog struct {
	q      querier
	schema string
}

func (c *mysqlCatalog) tableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	r, err := c.q.query(ctx, query, c.schema)
	if err != nil {
		return nil, err
	}
	return scanStrings(r)
}

// columns extracts column names and types, e.g. "varchar(255)" or "int unsigned"
func (c *mysqlCatalog) columns(ctx context.Context, tableName string) ([]string, []string, error) {
	query := `
		SELECT column_name, column_type
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`
	r, err := c.q.query(ctx, query, c.schema, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	var names, types []string
	for r.Next() {
		var name string
		var columnType sql.NullString
		if err := r.Scan(&name, &columnType); err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		types = append(types, columnType.String)
	}
	return names, types, r.Err()
}

// primaryKey extracts primary key columns
func (c *mysqlCatalog) primaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`
	r, err := c.q.query(ctx, query, c.schema, tableName)
	if err != nil {
		return nil, err
	}
	return scanStrings(r)
}

// foreignKeys extracts foreign key constraints, one row per column pair
func (c *mysqlCatalog) foreignKeys(ctx context.Context, tableName string) ([]fkConstraint, error) {
	query := `
		SELECT
			kcu.constraint_name,
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name
		FROM information_schema.key_column_usage kcu
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.constraint_name, kcu.ordinal_position
	`
	r, err := c.q.query(ctx, query, c.schema, tableName)
	if err != nil {
		return nil, err
	}
	return scanConstraints(r)
}
