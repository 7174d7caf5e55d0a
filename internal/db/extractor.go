package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tordrt/keygraph/internal/schema"
	"github.com/tordrt/keygraph/internal/storage"
)

// catalog reads table structure and declared keys from one backend.
type catalog interface {
	tableNames(ctx context.Context) ([]string, error)
	columns(ctx context.Context, table string) (names, types []string, err error)
	primaryKey(ctx context.Context, table string) ([]string, error)
	foreignKeys(ctx context.Context, table string) ([]fkConstraint, error)
}

// fkConstraint is one declared foreign key constraint, possibly compound.
type fkConstraint struct {
	name       string
	columns    []string
	refTable   string
	refColumns []string
}

// Extractor handles key extraction from a database
type Extractor struct {
	src *Source
}

// NewExtractor creates a new extractor over src
func NewExtractor(src *Source) *Extractor {
	return &Extractor{src: src}
}

// Source returns the source the extractor reads from.
func (e *Extractor) Source() *Source { return e.src }

// ExtractSnapshot extracts tables and their single-column keys.
// If tables is empty, extracts all tables in the schema.
//
// Compound keys cannot be modelled and are skipped with a warning, as are
// foreign keys whose referenced column is not the parent's primary key and
// foreign keys to tables outside the extraction.
func (e *Extractor) ExtractSnapshot(ctx context.Context, tables []string) (*schema.Snapshot, error) {
	tableNames, err := e.getTableNames(ctx, tables)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	snap := &schema.Snapshot{}
	pks := make(map[string]string, len(tableNames))

	for _, tableName := range tableNames {
		cols, types, err := e.src.cat.columns(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract columns of %s: %w", tableName, err)
		}
		if len(cols) == 0 {
			return nil, fmt.Errorf("table %s not found", tableName)
		}
		snap.Tables = append(snap.Tables, schema.Table{Name: tableName, Columns: cols, Types: types})

		pk, err := e.src.cat.primaryKey(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract primary key of %s: %w", tableName, err)
		}
		switch len(pk) {
		case 0:
		case 1:
			pks[tableName] = pk[0]
			snap.PrimaryKeys = append(snap.PrimaryKeys, schema.PrimaryKey{Table: tableName, Column: pk[0]})
		default:
			slog.Warn("skipping compound primary key", "table", tableName, "columns", pk)
		}
	}

	for _, tableName := range tableNames {
		fks, err := e.src.cat.foreignKeys(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract foreign keys of %s: %w", tableName, err)
		}
		for _, fk := range fks {
			if len(fk.columns) != 1 || len(fk.refColumns) != 1 {
				slog.Warn("skipping compound foreign key", "table", tableName, "constraint", fk.name, "columns", fk.columns)
				continue
			}
			pk, ok := pks[fk.refTable]
			if !ok {
				slog.Debug("skipping foreign key to table without extracted primary key",
					"table", tableName, "constraint", fk.name, "parent", fk.refTable)
				continue
			}
			// SQLite leaves the referenced column empty when it is the primary key.
			if ref := fk.refColumns[0]; ref != "" && ref != pk {
				slog.Warn("skipping foreign key to non-primary-key column",
					"table", tableName, "constraint", fk.name, "parent", fk.refTable, "column", ref)
				continue
			}
			snap.ForeignKeys = append(snap.ForeignKeys, schema.ForeignKey{
				ChildTable:  tableName,
				ChildColumn: fk.columns[0],
				ParentTable: fk.refTable,
			})
		}
	}

	return snap, nil
}

// Relations returns one relation per table of snap.
func (e *Extractor) Relations(snap *schema.Snapshot) map[string]storage.Relation {
	out := make(map[string]storage.Relation, len(snap.Tables))
	for _, t := range snap.Tables {
		out[t.Name] = e.src.Relation(t.Name)
	}
	return out
}

// getTableNames returns the list of tables to extract
func (e *Extractor) getTableNames(ctx context.Context, requestedTables []string) ([]string, error) {
	if len(requestedTables) > 0 {
		return requestedTables, nil
	}
	return e.src.cat.tableNames(ctx)
}
