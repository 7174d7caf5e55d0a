package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// rows is the subset of pgx.Rows and *sql.Rows the package reads from.
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// querier runs a read-only query on one backend connection pool.
type querier interface {
	query(ctx context.Context, sql string, args ...any) (rows, error)
}

type pgxQuerier struct {
	pool *pgxpool.Pool
}

func (q *pgxQuerier) query(ctx context.Context, sql string, args ...any) (rows, error) {
	r, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type sqlQuerier struct {
	db *sql.DB
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { _ = r.Rows.Close() }

func (q *sqlQuerier) query(ctx context.Context, query string, args ...any) (rows, error) {
	r, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{r}, nil
}

// dialect holds the SQL spelling differences between backends.
type dialect struct {
	name  string
	quote func(string) string
}

var (
	postgresDialect = dialect{name: "postgres", quote: quoteDouble}
	mysqlDialect    = dialect{name: "mysql", quote: quoteBacktick}
	sqliteDialect   = dialect{name: "sqlite", quote: quoteDouble}
)

// quoteDouble escapes double quotes by doubling them and wraps the name.
func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// scanStrings reads a single string column from every row.
func scanStrings(r rows) ([]string, error) {
	defer r.Close()

	var out []string
	for r.Next() {
		var s string
		if err := r.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, r.Err()
}
