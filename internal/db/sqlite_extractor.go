package db

import (
	"context"
	"database/sql"
)

// sqliteCatalog reads tables and keys through the pragma table functions
type sqliteCatalog struct {
	q querier
}

func (c *sqliteCatalog) tableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`
	r, err := c.q.query(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanStrings(r)
}

// columns extracts column names and declared types for a table
func (c *sqliteCatalog) columns(ctx context.Context, tableName string) ([]string, []string, error) {
	query := `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`

	r, err := c.q.query(ctx, query, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	var names, types []string
	for r.Next() {
		var name, typ string
		if err := r.Scan(&name, &typ); err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		types = append(types, typ)
	}
	return names, types, r.Err()
}

// primaryKey extracts primary key columns in key order
func (c *sqliteCatalog) primaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk`

	r, err := c.q.query(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	return scanStrings(r)
}

// foreignKeys extracts foreign key constraints. SQLite does not name them,
// so the pragma id stands in for the name.
func (c *sqliteCatalog) foreignKeys(ctx context.Context, tableName string) ([]fkConstraint, error) {
	query := `
		SELECT CAST(id AS TEXT), "from", "table", "to"
		FROM pragma_foreign_key_list(?)
		ORDER BY id, seq
	`
	r, err := c.q.query(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []fkConstraint
	for r.Next() {
		var id, column, refTable string
		// "to" is NULL when the constraint references the parent's primary key implicitly.
		var refColumn sql.NullString
		if err := r.Scan(&id, &column, &refTable, &refColumn); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].name == id {
			out[n-1].columns = append(out[n-1].columns, column)
			out[n-1].refColumns = append(out[n-1].refColumns, refColumn.String)
			continue
		}
		out = append(out, fkConstraint{
			name:       id,
			columns:    []string{column},
			refTable:   refTable,
			refColumns: []string{refColumn.String},
		})
	}
	return out, r.Err()
}
