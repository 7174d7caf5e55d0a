package db

import (
	"context"
	"fmt"
)

// postgresCatalog reads tables and keys of one PostgreSQL schema
type postgresCatalog struct {
	q      querier
	schema string
}

func (c *postgresCatalog) tableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	r, err := c.q.query(ctx, query, c.schema)
	if err != nil {
		return nil, err
	}
	return scanStrings(r)
}

// columns extracts column names and normalized types for a table
func (c *postgresCatalog) columns(ctx context.Context, tableName string) ([]string, []string, error) {
	query := `
		SELECT column_name, data_type, udt_name, character_maximum_length
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`
	r, err := c.q.query(ctx, query, c.schema, tableName)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	var names, types []string
	for r.Next() {
		var name, dataType, udtName string
		var charMaxLength *int
		if err := r.Scan(&name, &dataType, &udtName, &charMaxLength); err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		types = append(types, normalizePostgresType(dataType, udtName, charMaxLength))
	}
	return names, types, r.Err()
}

// primaryKey extracts primary key columns in key order
func (c *postgresCatalog) primaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position
	`
	r, err := c.q.query(ctx, query, c.schema, tableName)
	if err != nil {
		return nil, err
	}
	return scanStrings(r)
}

// foreignKeys reads pg_constraint directly: information_schema cannot pair
// the columns of compound foreign keys reliably.
func (c *postgresCatalog) foreignKeys(ctx context.Context, tableName string) ([]fkConstraint, error) {
	query := `
		SELECT con.conname, a.attname, ref.relname, ra.attname
		FROM pg_constraint con
		JOIN pg_class cl ON cl.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = cl.relnamespace
		JOIN pg_class ref ON ref.oid = con.confrelid
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refattnum, ord)
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = k.refattnum
		WHERE con.contype = 'f'
			AND n.nspname = $1
			AND cl.relname = $2
		ORDER BY con.conname, k.ord
	`
	r, err := c.q.query(ctx, query, c.schema, tableName)
	if err != nil {
		return nil, err
	}
	return scanConstraints(r)
}

// scanConstraints groups (name, column, ref table, ref column) rows ordered
// by constraint name into constraints.
func scanConstraints(r rows) ([]fkConstraint, error) {
	defer r.Close()

	var out []fkConstraint
	for r.Next() {
		var name, column, refTable, refColumn string
		if err := r.Scan(&name, &column, &refTable, &refColumn); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].name == name {
			out[n-1].columns = append(out[n-1].columns, column)
			out[n-1].refColumns = append(out[n-1].refColumns, refColumn)
			continue
		}
		out = append(out, fkConstraint{
			name:       name,
			columns:    []string{column},
			refTable:   refTable,
			refColumns: []string{refColumn},
		})
	}
	return out, r.Err()
}

// normalizePostgresType maps verbose SQL type names to commonly-used PostgreSQL equivalents
func normalizePostgresType(dataType, udtName string, charMaxLength *int) string {
	switch dataType {
	case "timestamp with time zone":
		return "timestamptz"
	case "timestamp without time zone":
		return "timestamp"
	case "character varying":
		if charMaxLength != nil {
			return fmt.Sprintf("varchar(%d)", *charMaxLength)
		}
		return "varchar"
	case "character":
		if charMaxLength != nil {
			return fmt.Sprintf("char(%d)", *charMaxLength)
		}
		return "char"
	case "ARRAY":
		// udt_name has an underscore prefix for arrays, e.g. "_int4"
		if len(udtName) > 1 && udtName[0] == '_' {
			return udtName[1:] + "[]"
		}
		return "array"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}
