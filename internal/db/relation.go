package db

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/tordrt/keygraph/internal/storage"
)

// Source hands out relations for the tables of one database connection.
// Relations of the same Source compare inclusion with a single anti-join.
type Source struct {
	q      querier
	d      dialect
	cat    catalog
	schema string
}

// Relation returns a handle to table. The table is not looked up until the
// handle is used.
func (s *Source) Relation(table string) *Relation {
	return &Relation{src: s, table: table}
}

// Dialect names the backend, e.g. "postgres".
func (s *Source) Dialect() string { return s.d.name }

// Relation is a table living in a SQL database. Checks run as single
// queries on the server; only samples of offending values are fetched.
type Relation struct {
	src   *Source
	table string
}

var (
	_ storage.Relation    = (*Relation)(nil)
	_ storage.ValueLister = (*Relation)(nil)
)

// Table returns the table name.
func (r *Relation) Table() string { return r.table }

func (r *Relation) ident() string {
	q := r.src.d.quote(r.table)
	if r.src.schema != "" && r.src.d.name != sqliteDialect.name {
		return r.src.d.quote(r.src.schema) + "." + q
	}
	return q
}

func (r *Relation) col(column string) string {
	return r.src.d.quote(column)
}

// Columns implements storage.Relation.
func (r *Relation) Columns(ctx context.Context) ([]string, error) {
	cols, _, err := r.src.cat.columns(ctx, r.table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", r.table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", r.table)
	}
	return cols, nil
}

// RowCount implements storage.Relation.
func (r *Relation) RowCount(ctx context.Context) (int64, error) {
	query := "SELECT COUNT(*) FROM " + r.ident()

	res, err := r.src.q.query(ctx, query)
	if err != nil {
		return 0, err
	}
	defer res.Close()

	var n int64
	if res.Next() {
		if err := res.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, res.Err()
}

// IsUnique implements storage.Relation with one GROUP BY query.
//
// The server picks the sample under its own collation and only then is it
// re-sorted with storage.Compare. When counts tie at the cut-off, the sample
// may hold other values than a Frame with the same data would report.
func (r *Relation) IsUnique(ctx context.Context, column string) (storage.Uniqueness, error) {
	c := r.col(column)
	query := fmt.Sprintf(
		"SELECT %s, COUNT(*) FROM %s WHERE %s IS NOT NULL GROUP BY %s HAVING COUNT(*) > 1 ORDER BY COUNT(*) DESC, %s LIMIT %d",
		c, r.ident(), c, c, c, storage.SampleSize,
	)

	res, err := r.src.q.query(ctx, query)
	if err != nil {
		return storage.Uniqueness{}, err
	}
	defer res.Close()

	type dup struct {
		value any
		count int64
	}
	var dups []dup
	for res.Next() {
		var d dup
		if err := res.Scan(&d.value, &d.count); err != nil {
			return storage.Uniqueness{}, err
		}
		d.value = storage.Normalize(d.value)
		dups = append(dups, d)
	}
	if err := res.Err(); err != nil {
		return storage.Uniqueness{}, err
	}

	// Backend collations differ; re-sort the sample the way Frame does.
	slices.SortStableFunc(dups, func(a, b dup) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return storage.Compare(a.value, b.value)
	})
	out := storage.Uniqueness{Unique: len(dups) == 0}
	for _, d := range dups {
		out.Duplicates = append(out.Duplicates, d.value)
	}
	return out, nil
}

// ValuesIncluded implements storage.Relation. When parent is a relation of
// the same Source the check is one NOT EXISTS anti-join; otherwise both
// sides are materialised through storage.IncludedValues. The anti-join
// sample is cut by the server's ORDER BY, so like IsUnique it may differ
// from the Frame sample when the column has more than SampleSize misses.
func (r *Relation) ValuesIncluded(ctx context.Context, column string, parent storage.Relation, parentColumn string) (storage.Inclusion, error) {
	p, ok := parent.(*Relation)
	if !ok || p.src != r.src {
		return storage.IncludedValues(ctx, r, column, parent, parentColumn)
	}

	c := "c." + r.col(column)
	query := fmt.Sprintf(
		"SELECT DISTINCT %s FROM %s c WHERE %s IS NOT NULL AND NOT EXISTS (SELECT 1 FROM %s p WHERE p.%s = %s) ORDER BY %s LIMIT %d",
		c, r.ident(), c, p.ident(), p.col(parentColumn), c, c, storage.SampleSize,
	)

	missing, err := r.scanValues(ctx, query)
	if err != nil {
		return storage.Inclusion{}, err
	}
	slices.SortFunc(missing, storage.Compare)
	return storage.Inclusion{Included: len(missing) == 0, Missing: missing}, nil
}

// DistinctValues implements storage.ValueLister.
func (r *Relation) DistinctValues(ctx context.Context, column string) ([]any, error) {
	c := r.col(column)
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL", c, r.ident(), c)

	vals, err := r.scanValues(ctx, query)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(vals, storage.Compare)
	return vals, nil
}

func (r *Relation) scanValues(ctx context.Context, query string) ([]any, error) {
	res, err := r.src.q.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var out []any
	for res.Next() {
		var v any
		if err := res.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, storage.Normalize(v))
	}
	return out, res.Err()
}
